package preview

import (
	"image"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
	"go.uber.org/zap"
)

// Cache maps segments to their previews. It is the single source of truth
// for the renderer and must only be used from the UI goroutine.
//
// Entries are created when a segment first becomes visible, reset by edits,
// and destroyed when the segment is deleted.
type Cache struct {
	source      SegmentSource
	service     PeakService
	completions <-chan peaks.Completion
	redraw      RedrawSink

	layout     Layout
	viewport   image.Rectangle
	wantMinima bool

	entries    map[composition.SegmentID]*Entry
	generators map[composition.SegmentID]*Generator

	logger  *zap.Logger
	metrics Metrics
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLayout sets the initial time-to-pixel mapping.
func WithLayout(l Layout) CacheOption {
	return func(c *Cache) {
		c.layout = l
	}
}

// WithViewport limits generation to segments overlapping r.
// Until a viewport is set nothing is visible and nothing is generated.
func WithViewport(r image.Rectangle) CacheOption {
	return func(c *Cache) {
		c.viewport = r
	}
}

// WithCompletions sets the channel Pump drains.
func WithCompletions(ch <-chan peaks.Completion) CacheOption {
	return func(c *Cache) {
		c.completions = ch
	}
}

// WithRedrawSink sets who hears about changed areas.
func WithRedrawSink(s RedrawSink) CacheOption {
	return func(c *Cache) {
		c.redraw = s
	}
}

// WithMinima asks the worker for min values as well as max values.
func WithMinima(want bool) CacheOption {
	return func(c *Cache) {
		c.wantMinima = want
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCacheMetrics sets where discard counts go.
func WithCacheMetrics(m Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// NewCache creates an empty cache reading segments from source and
// requesting peaks from service.
func NewCache(source SegmentSource, service PeakService, opts ...CacheOption) *Cache {
	c := &Cache{
		source:     source,
		service:    service,
		layout:     DefaultLayout(),
		wantMinima: true,
		entries:    make(map[composition.SegmentID]*Entry),
		generators: make(map[composition.SegmentID]*Generator),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the entry for id. It never starts any work.
func (c *Cache) Get(id composition.SegmentID) (Entry, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Invalidate resets the entry for id and regenerates it if visible.
// A segment that has become visible gets its entry here.
func (c *Cache) Invalidate(id composition.SegmentID) {
	seg, ok := c.source.Segment(id)
	if !ok {
		c.Remove(id)
		return
	}

	e, exists := c.entries[id]
	if exists {
		c.dirty(e.Rect)
		if gen := c.generators[id]; gen != nil {
			gen.Cancel()
		}
		e.reset()
	}

	rect := c.layout.Rect(seg)
	if !c.visible(rect) {
		if exists {
			e.Rect = rect
		}
		return
	}
	if !exists {
		e = &Entry{}
		c.entries[id] = e
	}
	c.generate(seg, e, rect)
}

// Remove cancels any generation for id and drops its entry.
func (c *Cache) Remove(id composition.SegmentID) {
	if gen := c.generators[id]; gen != nil {
		gen.Release()
		delete(c.generators, id)
	}
	if e, ok := c.entries[id]; ok {
		c.dirty(e.Rect)
		delete(c.entries, id)
	}
}

// OnReady moves the entry to Ready with the generator's tiles.
func (c *Cache) OnReady(id composition.SegmentID) {
	e, gen := c.entries[id], c.generators[id]
	if e == nil || gen == nil {
		return
	}
	e.State = Ready
	e.Token = 0
	e.Tiles = gen.Tiles()
	e.Channels = gen.Channels()
	c.dirty(e.Rect)
}

// OnFailed marks the entry Unavailable.
func (c *Cache) OnFailed(id composition.SegmentID) {
	e := c.entries[id]
	if e == nil {
		return
	}
	e.reset()
	e.State = Unavailable
	if c.metrics != nil {
		c.metrics.ObserveUnavailable()
	}
	c.logger.Debug("no preview available", zap.Uint32("segment", uint32(id)))
	c.dirty(e.Rect)
}

// SetViewport scrolls. Segments coming into view are generated, pending
// segments leaving it are cancelled and reset.
func (c *Cache) SetViewport(r image.Rectangle) {
	c.viewport = r
	for _, id := range c.source.Segments() {
		e := c.entries[id]
		if e == nil || e.State != Pending || c.visible(e.Rect) {
			continue
		}
		if gen := c.generators[id]; gen != nil {
			gen.Cancel()
		}
		e.reset()
	}
	c.Sync()
	c.dirty(r)
}

// Viewport returns the visible area. Empty means nothing is visible yet.
func (c *Cache) Viewport() image.Rectangle {
	return c.viewport
}

// SetLayout changes the zoom. Every entry is invalidated.
func (c *Cache) SetLayout(l Layout) {
	c.SetView(l, c.viewport)
}

// SetView changes zoom and visible area together. Every entry is
// invalidated once against the new geometry, so no request is issued for
// the old one.
func (c *Cache) SetView(l Layout, viewport image.Rectangle) {
	c.dirty(c.viewport)
	c.layout = l
	c.viewport = viewport
	for _, id := range c.source.Segments() {
		if _, ok := c.entries[id]; ok {
			c.Invalidate(id)
		}
	}
	c.Sync()
	c.dirty(viewport)
}

// Layout returns the current time-to-pixel mapping.
func (c *Cache) Layout() Layout {
	return c.layout
}

// Sync creates or regenerates entries for every visible segment that has
// nothing to show.
func (c *Cache) Sync() {
	for _, id := range c.source.Segments() {
		seg, ok := c.source.Segment(id)
		if !ok {
			continue
		}
		rect := c.layout.Rect(seg)
		if !c.visible(rect) {
			continue
		}
		e := c.entries[id]
		if e == nil {
			e = &Entry{}
			c.entries[id] = e
		} else if e.State != Empty {
			continue
		}
		c.generate(seg, e, rect)
	}
}

// Pump hands every completion waiting on the channel to its generator and
// returns how many there were. It never blocks.
func (c *Cache) Pump() int {
	if c.completions == nil {
		return 0
	}
	n := 0
	for {
		select {
		case done, ok := <-c.completions:
			if !ok {
				return n
			}
			n++
			c.dispatch(done)
		default:
			return n
		}
	}
}

func (c *Cache) dispatch(done peaks.Completion) {
	gen := c.generators[done.Segment]
	if gen == nil || !c.source.Live(done.Segment) {
		c.service.TakeResult(done.Token)
		c.logger.Debug("completion for unknown segment dropped",
			zap.Uint32("segment", uint32(done.Segment)),
			zap.Uint64("token", uint64(done.Token)),
		)
		if c.metrics != nil {
			c.metrics.ObserveStale()
		}
		return
	}
	gen.HandleCompletion(done.Token)
}

// Stats counts entries by state.
func (c *Cache) Stats() Stats {
	var s Stats
	for _, e := range c.entries {
		switch e.State {
		case Empty:
			s.Empty++
		case Pending:
			s.Pending++
		case Ready:
			s.Ready++
		case Unavailable:
			s.Unavailable++
		}
	}
	return s
}

// SegmentChanged implements composition.Observer.
func (c *Cache) SegmentChanged(id composition.SegmentID) {
	c.Invalidate(id)
}

// SegmentRemoved implements composition.Observer.
func (c *Cache) SegmentRemoved(id composition.SegmentID) {
	c.Remove(id)
}

func (c *Cache) generate(seg composition.Segment, e *Entry, rect image.Rectangle) {
	e.reset()
	e.Kind = seg.Kind
	e.Rect = rect
	defer c.dirty(rect)

	if seg.Kind == composition.KindNotation {
		e.Notation = NotationRects(seg, rect, c.layout)
		e.State = Ready
		return
	}

	gen := c.generators[seg.ID]
	if gen == nil {
		gen = NewGenerator(seg.ID, c.service, c, c.wantMinima, c.logger, c.metrics)
		c.generators[seg.ID] = gen
	}
	token, err := gen.GenerateAsync(seg, rect)
	if err != nil {
		c.logger.Warn("peak request rejected",
			zap.Uint32("segment", uint32(seg.ID)),
			zap.Error(err),
		)
		return
	}
	e.State = Pending
	e.Token = token
}

func (c *Cache) visible(r image.Rectangle) bool {
	return r.Overlaps(c.viewport)
}

func (c *Cache) dirty(r image.Rectangle) {
	if c.redraw != nil && !r.Empty() {
		c.redraw.Invalidate(r)
	}
}

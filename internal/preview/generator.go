package preview

import (
	"image"
	"image/color"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
	"go.uber.org/zap"
)

// Generator owns the waveform of one audio segment. It keeps at most one
// request outstanding and accepts only the result of its latest token.
//
// Used by: Cache (one per audio segment with an entry)
// Connects to: PeakService (submit, cancel, take), GenerationSink (ready/failed)
type Generator struct {
	segment    composition.SegmentID
	service    PeakService
	sink       GenerationSink
	wantMinima bool

	logger  *zap.Logger
	metrics Metrics

	latest  peaks.Token
	pending bool
	live    bool

	rect  image.Rectangle
	color color.RGBA

	tiles    []Tile
	channels int
}

// NewGenerator creates a generator for segment. logger and metrics may be nil.
func NewGenerator(segment composition.SegmentID, service PeakService, sink GenerationSink, wantMinima bool, logger *zap.Logger, metrics Metrics) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		segment:    segment,
		service:    service,
		sink:       sink,
		wantMinima: wantMinima,
		logger:     logger,
		metrics:    metrics,
		live:       true,
	}
}

// GenerateAsync requests a waveform for seg drawn into rect. Any request
// still outstanding is cancelled first. The returned token is the new latest.
func (g *Generator) GenerateAsync(seg composition.Segment, rect image.Rectangle) (peaks.Token, error) {
	g.Cancel()

	token, err := g.service.Submit(peaks.Request{
		Segment:    g.segment,
		File:       seg.AudioFile,
		Start:      seg.AudioStart,
		End:        seg.AudioEnd,
		Width:      rect.Dx(),
		WantMinima: g.wantMinima,
	})
	if err != nil {
		return 0, err
	}

	g.latest = token
	g.pending = true
	g.rect = rect
	g.color = waveColor(seg.Color)
	return token, nil
}

// Cancel withdraws the latest request. If the worker already started it the
// result still arrives and is discarded by HandleCompletion.
func (g *Generator) Cancel() {
	if !g.pending {
		return
	}
	g.pending = false
	if !g.service.Cancel(g.latest) {
		g.logger.Debug("request already started, result will be discarded",
			zap.Uint32("segment", uint32(g.segment)),
			zap.Uint64("token", uint64(g.latest)),
		)
	}
}

// Release cancels and marks the segment gone. Completions after this are
// drained and ignored.
func (g *Generator) Release() {
	g.Cancel()
	g.live = false
	g.tiles = nil
}

// HandleCompletion processes the completion for token. The stored result is
// always taken so the worker's result map never grows.
func (g *Generator) HandleCompletion(token peaks.Token) {
	res, ok := g.service.TakeResult(token)

	if !g.live {
		g.logger.Debug("completion for removed segment dropped",
			zap.Uint32("segment", uint32(g.segment)),
			zap.Uint64("token", uint64(token)),
		)
		return
	}
	if !g.pending || token != g.latest {
		g.logger.Debug("stale peaks discarded",
			zap.Uint32("segment", uint32(g.segment)),
			zap.Uint64("token", uint64(token)),
			zap.Uint64("latest", uint64(g.latest)),
		)
		if g.metrics != nil {
			g.metrics.ObserveStale()
		}
		return
	}
	g.pending = false

	if !ok || res.Channels == 0 {
		g.tiles = nil
		g.channels = 0
		g.sink.OnFailed(g.segment)
		return
	}

	g.channels = res.Channels
	g.tiles = renderTiles(res.Values, res.Channels, g.rect.Dx(), g.rect.Dy(), g.wantMinima, g.color)
	g.sink.OnReady(g.segment)
}

// Latest is the most recently submitted token, or zero.
func (g *Generator) Latest() peaks.Token {
	return g.latest
}

// Pending reports whether a request is outstanding.
func (g *Generator) Pending() bool {
	return g.pending
}

// Tiles returns the last accepted waveform.
func (g *Generator) Tiles() []Tile {
	return g.tiles
}

// Channels returns the channel count of the last accepted waveform.
func (g *Generator) Channels() int {
	return g.channels
}

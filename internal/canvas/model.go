package canvas

import (
	"errors"
	"fmt"
	"time"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
	"github.com/billie-coop/segcanvas/internal/preview"
	"github.com/charmbracelet/bubbles/v2/key"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"go.uber.org/zap"
)

const (
	redrawTimerID = "redraw"
	rowsPerTrack  = 3
	statusLines   = 1
	nudge         = 250 * time.Millisecond
)

// palette is cycled by the recolor key.
var palette = []string{"#4fa3ff", "#ff8800", "#33cc66", "#cc33aa", "#e0e040"}

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// QueueStatus reports the peak pipeline's counters. peaks.Manager implements it.
type QueueStatus interface {
	Status() peaks.Status
}

// Metrics counts repaints. A nil Metrics records nothing.
type Metrics interface {
	ObserveRedraw()
}

// Model is the bubbletea model for the canvas.
type Model struct {
	comp   *composition.Composition
	cache  *preview.Cache
	damage *Damage
	queue  QueueStatus

	timer   *RedrawTimer
	painter *Painter
	keys    KeyMap

	logger  *zap.Logger
	metrics Metrics

	width, height int
	scroll        int
	selected      composition.SegmentID
	frame         int
	redraws       int
	lastErr       error

	showHelp bool
	help     string
	view     string
}

// Option configures a Model.
type Option func(*Model)

// WithRedrawInterval sets the coalescing period.
func WithRedrawInterval(d time.Duration) Option {
	return func(m *Model) {
		m.timer = NewRedrawTimer(redrawTimerID, d)
	}
}

// WithCellWidth sets how many pixels one terminal column covers.
func WithCellWidth(px int) Option {
	return func(m *Model) {
		m.painter = NewPainter(px, rowsPerTrack)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets where repaint counts go.
func WithMetrics(metrics Metrics) Option {
	return func(m *Model) {
		m.metrics = metrics
	}
}

// New creates the canvas. damage must be the RedrawSink the cache reports to.
func New(comp *composition.Composition, cache *preview.Cache, damage *Damage, queue QueueStatus, opts ...Option) *Model {
	m := &Model{
		comp:    comp,
		cache:   cache,
		damage:  damage,
		queue:   queue,
		timer:   NewRedrawTimer(redrawTimerID, DefaultRedrawInterval),
		painter: NewPainter(4, rowsPerTrack),
		keys:    DefaultKeyMap(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if ids := comp.Segments(); len(ids) > 0 {
		m.selected = ids[0]
	}
	return m
}

// Init starts the redraw timer.
func (m *Model) Init() tea.Cmd {
	return m.timer.Start()
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		if !m.timer.Owns(msg) {
			return m, nil
		}
		m.flush()
		return m, m.timer.Update(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

// View renders the UI
func (m *Model) View() tea.View {
	if m.showHelp {
		return tea.NewView(m.help)
	}
	return tea.NewView(m.view + "\n" + statusStyle.Render(m.statusLine()))
}

// Redraws returns how many times damaged cells were repainted.
func (m *Model) Redraws() int {
	return m.redraws
}

// Painter exposes the cell grid.
func (m *Model) Painter() *Painter {
	return m.painter
}

// flush runs once per tick: hand completions to their generators, then
// repaint whatever they and any edits damaged.
func (m *Model) flush() {
	m.cache.Pump()

	if m.cache.Stats().Pending > 0 {
		// Keep the spinner moving on pending segments.
		m.frame++
		m.damagePending()
	}

	area, ok := m.damage.Take()
	if !ok {
		return
	}
	m.painter.Paint(area, m.scene())
	m.view = m.painter.Render()
	m.redraws++
	if m.metrics != nil {
		m.metrics.ObserveRedraw()
	}
}

func (m *Model) damagePending() {
	for _, id := range m.comp.Segments() {
		e, ok := m.cache.Get(id)
		if ok && e.State == preview.Pending {
			m.damage.Invalidate(e.Rect)
		}
	}
}

func (m *Model) scene() Scene {
	ids := m.comp.Segments()
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		e, ok := m.cache.Get(id)
		if !ok {
			continue
		}
		seg, ok := m.comp.Segment(id)
		if !ok {
			continue
		}
		items = append(items, Item{Segment: seg, Entry: e, Selected: id == m.selected})
	}
	return Scene{Layout: m.cache.Layout(), Items: items, Frame: m.frame}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.painter.Resize(width, max(0, height-statusLines))
	m.painter.Scroll(m.scroll)
	m.cache.SetViewport(m.painter.Viewport(m.cache.Layout()))
	if m.showHelp {
		m.help = renderHelp(m.keys, width)
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.timer.Stop()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		if m.showHelp {
			m.help = renderHelp(m.keys, m.width)
		}
	case key.Matches(msg, m.keys.ScrollLeft):
		m.scrollBy(-m.scrollStep())
	case key.Matches(msg, m.keys.ScrollRight):
		m.scrollBy(m.scrollStep())
	case key.Matches(msg, m.keys.ZoomIn):
		m.zoom(2)
	case key.Matches(msg, m.keys.ZoomOut):
		m.zoom(0.5)
	case key.Matches(msg, m.keys.Next):
		m.selectBy(1)
	case key.Matches(msg, m.keys.Prev):
		m.selectBy(-1)
	case key.Matches(msg, m.keys.Later):
		err = m.move(nudge)
	case key.Matches(msg, m.keys.Earlier):
		err = m.move(-nudge)
	case key.Matches(msg, m.keys.Lengthen):
		err = m.resizeSelected(nudge)
	case key.Matches(msg, m.keys.Shorten):
		err = m.resizeSelected(-nudge)
	case key.Matches(msg, m.keys.Retune):
		err = m.comp.Retune(m.selected, 1)
	case key.Matches(msg, m.keys.Recolor):
		err = m.recolor()
	case key.Matches(msg, m.keys.Delete):
		err = m.deleteSelected()
	}
	if err != nil {
		m.lastErr = err
		m.logger.Debug("edit rejected", zap.Uint32("segment", uint32(m.selected)), zap.Error(err))
	}
	return nil
}

func (m *Model) scrollStep() int {
	cols, _ := m.painter.Size()
	return max(1, cols/4) * m.painter.cellWidth
}

func (m *Model) scrollBy(dx int) {
	m.scroll = max(0, m.scroll+dx)
	m.painter.Scroll(m.scroll)
	m.cache.SetViewport(m.painter.Viewport(m.cache.Layout()))
}

func (m *Model) zoom(factor float64) {
	layout := m.cache.Layout().Zoom(factor)
	m.scroll = int(float64(m.scroll) * factor)
	m.painter.Scroll(m.scroll)
	m.cache.SetView(layout, m.painter.Viewport(layout))
}

func (m *Model) selectBy(step int) {
	ids := m.comp.Segments()
	if len(ids) == 0 {
		m.selected = 0
		return
	}
	i := 0
	for j, id := range ids {
		if id == m.selected {
			i = j
			break
		}
	}
	i = (i + step + len(ids)) % len(ids)

	m.markSelection()
	m.selected = ids[i]
	m.markSelection()
}

// markSelection damages the selected segment so its highlight is repainted.
func (m *Model) markSelection() {
	if e, ok := m.cache.Get(m.selected); ok {
		m.damage.Invalidate(e.Rect)
	}
}

var errNoSelection = errors.New("no segment selected")

func (m *Model) current() (composition.Segment, error) {
	seg, ok := m.comp.Segment(m.selected)
	if !ok {
		return composition.Segment{}, errNoSelection
	}
	return seg, nil
}

func (m *Model) move(d time.Duration) error {
	seg, err := m.current()
	if err != nil {
		return err
	}
	return m.comp.Move(seg.ID, seg.Track, max(0, seg.Start+d))
}

func (m *Model) resizeSelected(d time.Duration) error {
	seg, err := m.current()
	if err != nil {
		return err
	}
	return m.comp.Resize(seg.ID, seg.End+d)
}

func (m *Model) recolor() error {
	seg, err := m.current()
	if err != nil {
		return err
	}
	next := palette[0]
	for i, c := range palette {
		if c == seg.Color {
			next = palette[(i+1)%len(palette)]
			break
		}
	}
	return m.comp.Recolor(seg.ID, next)
}

func (m *Model) deleteSelected() error {
	id := m.selected
	if err := m.comp.Delete(id); err != nil {
		return err
	}
	if ids := m.comp.Segments(); len(ids) > 0 {
		m.selected = ids[0]
		m.markSelection()
	} else {
		m.selected = 0
	}
	return nil
}

func (m *Model) statusLine() string {
	st := m.cache.Stats()
	line := fmt.Sprintf("%d segments · %d ready · %d pending · %d unavailable",
		m.comp.Len(), st.Ready, st.Pending, st.Unavailable)
	if m.queue != nil {
		q := m.queue.Status()
		line += fmt.Sprintf(" · queue %d · decoded %d", q.Pending, q.Completed)
	}
	line += fmt.Sprintf(" · redraws %d · ? help", m.redraws)
	if m.lastErr != nil {
		line += " · " + m.lastErr.Error()
	}
	return line
}

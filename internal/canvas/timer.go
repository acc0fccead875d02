package canvas

import (
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
)

// DefaultRedrawInterval is how often damage is flushed to the screen.
const DefaultRedrawInterval = 100 * time.Millisecond

// TickMsg is sent by a RedrawTimer.
type TickMsg struct {
	Time time.Time
	ID   string // distinguishes timers sharing a program
}

// RedrawTimer is a periodic tick for coalescing redraws.
type RedrawTimer struct {
	id        string
	interval  time.Duration
	isRunning bool
	ticks     uint64
}

// NewRedrawTimer creates a stopped timer.
func NewRedrawTimer(id string, interval time.Duration) *RedrawTimer {
	if interval <= 0 {
		interval = DefaultRedrawInterval
	}
	return &RedrawTimer{
		id:       id,
		interval: interval,
	}
}

// Start begins ticking.
func (t *RedrawTimer) Start() tea.Cmd {
	t.isRunning = true
	return t.tick()
}

// Stop halts the timer after the tick already in flight.
func (t *RedrawTimer) Stop() {
	t.isRunning = false
}

// IsRunning returns whether the timer is currently running.
func (t *RedrawTimer) IsRunning() bool {
	return t.isRunning
}

// Interval returns the tick period.
func (t *RedrawTimer) Interval() time.Duration {
	return t.interval
}

// Ticks returns how many of this timer's ticks were handled.
func (t *RedrawTimer) Ticks() uint64 {
	return t.ticks
}

// Owns reports whether msg is one of this timer's ticks.
func (t *RedrawTimer) Owns(msg tea.Msg) bool {
	tick, ok := msg.(TickMsg)
	return ok && tick.ID == t.id
}

// Update handles tick messages and schedules the next one.
func (t *RedrawTimer) Update(msg tea.Msg) tea.Cmd {
	if !t.Owns(msg) {
		return nil
	}
	t.ticks++
	if t.isRunning {
		return t.tick()
	}
	return nil
}

func (t *RedrawTimer) tick() tea.Cmd {
	return tea.Tick(t.interval, func(tm time.Time) tea.Msg {
		return TickMsg{Time: tm, ID: t.id}
	})
}

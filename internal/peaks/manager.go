package peaks

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrShutdown is returned by Submit once Shutdown has been called.
var ErrShutdown = errors.New("peaks: manager is shut down")

// defaultCompletionBuffer is how many completions can wait for the UI before
// the worker blocks on the next one.
const defaultCompletionBuffer = 64

// Manager owns the request queue and its single worker.
// This is the main entry point for the peak pipeline.
//
// The worker is started by the first Submit, not by NewManager, so a canvas
// with no audio never spawns a goroutine.
type Manager struct {
	queue       *Queue
	worker      *Worker
	completions chan Completion

	logger  *zap.Logger
	metrics Metrics

	abort     chan struct{}
	abortOnce sync.Once

	// Lifecycle
	mutex   sync.Mutex
	started bool
	stopped bool

	cancelled uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets where measurements go.
func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithCompletionBuffer sets the capacity of the completion channel.
func WithCompletionBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.completions = make(chan Completion, n)
		}
	}
}

// NewManager creates a manager that decodes with decoder.
func NewManager(decoder Decoder, opts ...Option) *Manager {
	m := &Manager{
		queue:       NewQueue(),
		completions: make(chan Completion, defaultCompletionBuffer),
		logger:      zap.NewNop(),
		abort:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.worker = newWorker(m.queue, decoder, m.completions, m.abort, m.logger, m.metrics)
	return m
}

// Submit enqueues req and returns its token without waiting.
// The first call starts the worker.
func (m *Manager) Submit(req Request) (Token, error) {
	m.mutex.Lock()
	if m.stopped {
		m.mutex.Unlock()
		return 0, ErrShutdown
	}
	if !m.started {
		m.started = true
		go m.worker.run()
		m.logger.Info("peak worker started")
	}
	m.mutex.Unlock()

	token, err := m.queue.Push(req)
	if err != nil {
		return 0, err
	}

	if m.metrics != nil {
		m.metrics.ObserveSubmit(req.Width)
		m.metrics.ObserveQueueDepth(m.queue.Len())
	}
	m.logger.Debug("peak request queued",
		zap.Uint64("token", uint64(token)),
		zap.Uint32("segment", uint32(req.Segment)),
		zap.Int("width", req.Width),
	)
	return token, nil
}

// Cancel drops the request if the worker has not started it.
// Returns true only if the request was removed; a started request still
// completes and announces its result.
func (m *Manager) Cancel(token Token) bool {
	if !m.queue.Remove(token) {
		return false
	}

	m.mutex.Lock()
	m.cancelled++
	m.mutex.Unlock()

	if m.metrics != nil {
		m.metrics.ObserveCancel()
		m.metrics.ObserveQueueDepth(m.queue.Len())
	}
	m.logger.Debug("peak request cancelled", zap.Uint64("token", uint64(token)))
	return true
}

// TakeResult returns and removes the stored result for token.
// Returns false if it was already taken or never produced.
func (m *Manager) TakeResult(token Token) (*Result, bool) {
	return m.queue.Take(token)
}

// Completions delivers one message per finished request.
// Drain it from the UI goroutine.
func (m *Manager) Completions() <-chan Completion {
	return m.completions
}

// Status is a snapshot of the pipeline for display and debugging.
type Status struct {
	Pending   int
	Stored    int
	Completed uint64
	Failed    uint64
	Cancelled uint64
	Running   bool
}

// Status returns current queue counters.
func (m *Manager) Status() Status {
	m.mutex.Lock()
	running := m.started && !m.finished()
	cancelled := m.cancelled
	m.mutex.Unlock()

	return Status{
		Pending:   m.queue.Len(),
		Stored:    m.queue.Stored(),
		Completed: m.worker.processed.Load(),
		Failed:    m.worker.failed.Load(),
		Cancelled: cancelled,
		Running:   running,
	}
}

// Shutdown stops accepting requests and waits for the worker to finish what
// is queued. If ctx ends first, queued requests are dropped, the request in
// progress is allowed to finish, and ctx.Err() is returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mutex.Lock()
	m.stopped = true
	started := m.started
	m.mutex.Unlock()

	m.queue.Close()
	if !started {
		return nil
	}

	select {
	case <-m.worker.done:
		m.logger.Info("peak worker stopped")
		return nil
	case <-ctx.Done():
	}

	m.abortOnce.Do(func() { close(m.abort) })
	dropped := m.queue.Clear()
	<-m.worker.done

	m.logger.Info("peak worker aborted", zap.Int("dropped", dropped))
	return ctx.Err()
}

func (m *Manager) finished() bool {
	select {
	case <-m.worker.done:
		return true
	default:
		return false
	}
}

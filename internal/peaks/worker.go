package peaks

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Worker pulls requests from a queue and decodes them one at a time.
// There is exactly one per Manager: decoding is I/O bound and the audio file
// subsystem is read serially.
//
// Used by: Manager (starts it, waits for it)
// Connects to: Queue (pulls requests, stores results), Decoder
type Worker struct {
	queue   *Queue
	decoder Decoder
	out     chan<- Completion
	abort   <-chan struct{}
	done    chan struct{}

	logger  *zap.Logger
	metrics Metrics

	processed atomic.Uint64
	failed    atomic.Uint64
}

func newWorker(queue *Queue, decoder Decoder, out chan<- Completion, abort <-chan struct{}, logger *zap.Logger, metrics Metrics) *Worker {
	return &Worker{
		queue:   queue,
		decoder: decoder,
		out:     out,
		abort:   abort,
		done:    make(chan struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// run is the main worker loop. It returns when the queue is closed and
// drained, or when an abort interrupts a pending notification.
func (w *Worker) run() {
	defer close(w.done)

	for {
		token, req, ok := w.queue.Pop() // parks while empty
		if !ok {
			return
		}
		if !w.process(token, req) {
			return
		}
	}
}

// process decodes one request, stores the result and announces it.
// Returns false if the announcement was abandoned because of an abort.
func (w *Worker) process(token Token, req Request) bool {
	start := time.Now()
	channels, values := w.decode(req)
	duration := time.Since(start)

	w.queue.Store(&Result{Token: token, Channels: channels, Values: values})
	w.processed.Add(1)

	if w.metrics != nil {
		w.metrics.ObserveDecode(duration, channels)
		w.metrics.ObserveQueueDepth(w.queue.Len())
	}

	if channels == 0 {
		w.failed.Add(1)
		w.logger.Warn("peak decode produced no channels",
			zap.Uint64("token", uint64(token)),
			zap.Uint32("segment", uint32(req.Segment)),
			zap.Uint32("file", uint32(req.File)),
		)
	} else {
		w.logger.Debug("peaks decoded",
			zap.Uint64("token", uint64(token)),
			zap.Uint32("segment", uint32(req.Segment)),
			zap.Int("width", req.Width),
			zap.Int("channels", channels),
			zap.Duration("took", duration),
		)
	}

	select {
	case w.out <- Completion{Token: token, Segment: req.Segment}:
		return true
	case <-w.abort:
		w.logger.Debug("completion dropped on shutdown", zap.Uint64("token", uint64(token)))
		return false
	}
}

// decode calls the decoder, turning a panic into a failed decode.
func (w *Worker) decode(req Request) (channels int, values []float32) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("peak decoder panicked",
				zap.Uint32("file", uint32(req.File)),
				zap.String("panic", fmt.Sprint(r)),
			)
			channels, values = 0, nil
		}
	}()
	return w.decoder.DecodePeaks(req.File, req.Start, req.End, req.Width, req.WantMinima)
}

// Package metrics exposes the preview pipeline to Prometheus.
//
// A *Pipeline satisfies peaks.Metrics, preview.Metrics and canvas.Metrics.
// A nil *Pipeline records nothing, so callers can pass it through when
// metrics are disabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds every collector for one canvas.
type Pipeline struct {
	submitted     prometheus.Counter
	cancelled     prometheus.Counter
	decoded       *prometheus.CounterVec
	decodeSeconds prometheus.Histogram
	requestWidth  prometheus.Histogram
	queueDepth    prometheus.Gauge
	stale         prometheus.Counter
	unavailable   prometheus.Counter
	redraws       prometheus.Counter
}

// NewPipeline registers the pipeline collectors with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		submitted: f.NewCounter(prometheus.CounterOpts{
			Name: "segcanvas_peak_requests_submitted_total",
			Help: "Peak requests submitted to the worker queue",
		}),
		cancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "segcanvas_peak_requests_cancelled_total",
			Help: "Peak requests removed from the queue before they started",
		}),
		decoded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segcanvas_peak_decodes_total",
				Help: "Peak requests decoded by the worker, by outcome",
			},
			[]string{"result"}, // "ok", "failed"
		),
		decodeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name: "segcanvas_peak_decode_duration_seconds",
			Help: "Time spent decoding one peak request",
			Buckets: []float64{
				0.001, // tiny segments
				0.005,
				0.01,
				0.05,
				0.1,
				0.5,
				1,
				5, // long files on slow disks
			},
		}),
		requestWidth: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "segcanvas_peak_request_width_pixels",
			Help:    "Requested preview width",
			Buckets: prometheus.ExponentialBuckets(16, 2, 8),
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "segcanvas_peak_queue_depth",
			Help: "Requests waiting for the worker",
		}),
		stale: f.NewCounter(prometheus.CounterOpts{
			Name: "segcanvas_preview_stale_results_total",
			Help: "Completed results discarded because a newer request superseded them or the segment was removed",
		}),
		unavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "segcanvas_preview_unavailable_total",
			Help: "Previews that could not be produced because the audio was unreadable",
		}),
		redraws: f.NewCounter(prometheus.CounterOpts{
			Name: "segcanvas_canvas_redraws_total",
			Help: "Coalesced canvas repaints",
		}),
	}
}

// ObserveSubmit records a queued request.
func (p *Pipeline) ObserveSubmit(width int) {
	if p == nil {
		return
	}
	p.submitted.Inc()
	p.requestWidth.Observe(float64(width))
}

// ObserveCancel records a request removed before it started.
func (p *Pipeline) ObserveCancel() {
	if p == nil {
		return
	}
	p.cancelled.Inc()
}

// ObserveDecode records one finished decode. Zero channels is a failure.
func (p *Pipeline) ObserveDecode(d time.Duration, channels int) {
	if p == nil {
		return
	}
	result := "ok"
	if channels == 0 {
		result = "failed"
	}
	p.decoded.WithLabelValues(result).Inc()
	p.decodeSeconds.Observe(d.Seconds())
}

// ObserveQueueDepth records the number of waiting requests.
func (p *Pipeline) ObserveQueueDepth(n int) {
	if p == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

// ObserveStale records a discarded result.
func (p *Pipeline) ObserveStale() {
	if p == nil {
		return
	}
	p.stale.Inc()
}

// ObserveUnavailable records a preview that failed to decode.
func (p *Pipeline) ObserveUnavailable() {
	if p == nil {
		return
	}
	p.unavailable.Inc()
}

// ObserveRedraw records one canvas repaint.
func (p *Pipeline) ObserveRedraw() {
	if p == nil {
		return
	}
	p.redraws.Inc()
}

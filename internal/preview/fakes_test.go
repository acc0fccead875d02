package preview

import (
	"errors"
	"image"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
)

// fakeService is a PeakService whose worker is driven by the test.
type fakeService struct {
	next    peaks.Token
	queued  map[peaks.Token]peaks.Request
	started map[peaks.Token]peaks.Request
	results map[peaks.Token]*peaks.Result
	out     chan peaks.Completion
	err     error
}

func newFakeService() *fakeService {
	return &fakeService{
		queued:  make(map[peaks.Token]peaks.Request),
		started: make(map[peaks.Token]peaks.Request),
		results: make(map[peaks.Token]*peaks.Result),
		out:     make(chan peaks.Completion, 32),
	}
}

func (f *fakeService) Submit(req peaks.Request) (peaks.Token, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	f.queued[f.next] = req
	return f.next, nil
}

func (f *fakeService) Cancel(token peaks.Token) bool {
	if _, ok := f.queued[token]; !ok {
		return false
	}
	delete(f.queued, token)
	return true
}

func (f *fakeService) TakeResult(token peaks.Token) (*peaks.Result, bool) {
	res, ok := f.results[token]
	delete(f.results, token)
	return res, ok
}

// start takes a queued request so it can no longer be cancelled.
func (f *fakeService) start(token peaks.Token) {
	req, ok := f.queued[token]
	if !ok {
		panic("start: token not queued")
	}
	delete(f.queued, token)
	f.started[token] = req
}

// finish produces a result filled with level and posts the completion.
func (f *fakeService) finish(token peaks.Token, channels int, level float32) {
	if _, ok := f.queued[token]; ok {
		f.start(token)
	}
	req, ok := f.started[token]
	if !ok {
		panic("finish: token never started")
	}
	delete(f.started, token)

	stride := channels
	if req.WantMinima {
		stride *= 2
	}
	values := make([]float32, req.Width*stride)
	for i := range values {
		values[i] = level
		if req.WantMinima && i%2 == 1 {
			values[i] = -level
		}
	}
	f.results[token] = &peaks.Result{Token: token, Channels: channels, Values: values}
	f.out <- peaks.Completion{Token: token, Segment: req.Segment}
}

var errRejected = errors.New("rejected")

type recordingSink struct {
	ready  []composition.SegmentID
	failed []composition.SegmentID
}

func (s *recordingSink) OnReady(id composition.SegmentID)  { s.ready = append(s.ready, id) }
func (s *recordingSink) OnFailed(id composition.SegmentID) { s.failed = append(s.failed, id) }

type damage struct {
	rects []image.Rectangle
}

func (d *damage) Invalidate(r image.Rectangle) { d.rects = append(d.rects, r) }

func (d *damage) union() image.Rectangle {
	var u image.Rectangle
	for _, r := range d.rects {
		u = u.Union(r)
	}
	return u
}

type discardCounter struct {
	stale       int
	unavailable int
}

func (m *discardCounter) ObserveStale()       { m.stale++ }
func (m *discardCounter) ObserveUnavailable() { m.unavailable++ }

package preview

import (
	"image"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
)

// GenerationSink is told when a generator has finished with a segment.
// Cache implements it.
type GenerationSink interface {
	OnReady(id composition.SegmentID)
	OnFailed(id composition.SegmentID)
}

// RedrawSink collects areas of the canvas that need repainting.
// Calls are cheap; the renderer decides when to actually repaint.
type RedrawSink interface {
	Invalidate(r image.Rectangle)
}

// PeakService is the part of peaks.Manager a generator talks to.
type PeakService interface {
	Submit(req peaks.Request) (peaks.Token, error)
	Cancel(token peaks.Token) bool
	TakeResult(token peaks.Token) (*peaks.Result, bool)
}

// SegmentSource is read access to the composition.
type SegmentSource interface {
	Segment(id composition.SegmentID) (composition.Segment, bool)
	Live(id composition.SegmentID) bool
	Segments() []composition.SegmentID
}

// Metrics counts discarded work. A nil Metrics records nothing.
type Metrics interface {
	ObserveStale()
	ObserveUnavailable()
}

var (
	_ GenerationSink       = (*Cache)(nil)
	_ composition.Observer = (*Cache)(nil)
	_ PeakService          = (*peaks.Manager)(nil)
	_ SegmentSource        = (*composition.Composition)(nil)
)

package peaks

import (
	"time"

	"github.com/billie-coop/segcanvas/internal/audiofile"
	"github.com/billie-coop/segcanvas/internal/composition"
)

// Token identifies one submitted request. Tokens only grow: a larger token
// was submitted later. Zero is never issued.
type Token uint64

// Request asks for the peaks of one segment's audio range.
// Immutable once submitted.
type Request struct {
	Segment composition.SegmentID
	File    audiofile.FileID

	// Start and End bound the range inside the source file.
	Start time.Duration
	End   time.Duration

	// Width is the number of pixel columns to reduce the range to.
	Width int

	// WantMinima asks for a min value next to every max value.
	WantMinima bool
}

// Result is the computed answer for one token.
// Channels is zero when the file could not be decoded.
type Result struct {
	Token    Token
	Channels int
	Values   []float32
}

// Completion announces that the result for Token is stored.
type Completion struct {
	Token   Token
	Segment composition.SegmentID
}

// Decoder produces peak values from an audio file. It is called only from
// the worker goroutine, once per started request.
type Decoder interface {
	DecodePeaks(file audiofile.FileID, start, end time.Duration, width int, wantMinima bool) (channels int, values []float32)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(file audiofile.FileID, start, end time.Duration, width int, wantMinima bool) (int, []float32)

// DecodePeaks calls f.
func (f DecoderFunc) DecodePeaks(file audiofile.FileID, start, end time.Duration, width int, wantMinima bool) (int, []float32) {
	return f(file, start, end, width, wantMinima)
}

// Metrics receives pipeline measurements. A nil Metrics records nothing.
type Metrics interface {
	ObserveSubmit(width int)
	ObserveCancel()
	ObserveDecode(d time.Duration, channels int)
	ObserveQueueDepth(n int)
}

package composition

import (
	"time"

	"github.com/billie-coop/segcanvas/internal/audiofile"
)

// SegmentID is the stable identity of a segment. Zero is never assigned.
type SegmentID uint32

// Kind tells which preview a segment gets.
type Kind int

const (
	// KindNotation segments preview as note dashes.
	KindNotation Kind = iota
	// KindAudio segments preview as a waveform.
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindNotation:
		return "notation"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Note is one event of a notation segment. Start is relative to the segment start.
type Note struct {
	Pitch    int
	Start    time.Duration
	Duration time.Duration
}

// Segment is a time-bounded piece of content on a track.
type Segment struct {
	ID    SegmentID
	Track int
	Kind  Kind
	Start time.Duration
	End   time.Duration
	Color string
	Label string

	// Audio segments only: the source file and the sample range it plays.
	AudioFile  audiofile.FileID
	AudioStart time.Duration
	AudioEnd   time.Duration

	// Notation segments only.
	Notes []Note
}

// Duration is the length of the segment on the timeline.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

func (s Segment) clone() Segment {
	if s.Notes != nil {
		notes := make([]Note, len(s.Notes))
		copy(notes, s.Notes)
		s.Notes = notes
	}
	return s
}

package preview

import (
	"image"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
)

// State is where an entry is in its lifecycle.
type State int

const (
	// Empty has nothing to show. Fresh, invalidated or scrolled away.
	Empty State = iota
	// Pending waits for the worker to answer Token.
	Pending
	// Ready has tiles (audio) or dashes (notation).
	Ready
	// Unavailable means the audio could not be decoded. Drawn as a solid block.
	Unavailable
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Entry is the cached preview of one segment.
type Entry struct {
	State State
	Kind  composition.Kind

	// Token is set only while State is Pending.
	Token peaks.Token

	// Rect is the segment's pixel rectangle as last laid out.
	Rect image.Rectangle

	// Audio previews.
	Tiles    []Tile
	Channels int

	// Notation previews, in canvas pixels.
	Notation []image.Rectangle
}

func (e *Entry) reset() {
	e.State = Empty
	e.Token = 0
	e.Tiles = nil
	e.Channels = 0
	e.Notation = nil
}

// Stats counts entries by state.
type Stats struct {
	Empty       int
	Pending     int
	Ready       int
	Unavailable int
}

// Total is the number of entries.
func (s Stats) Total() int {
	return s.Empty + s.Pending + s.Ready + s.Unavailable
}

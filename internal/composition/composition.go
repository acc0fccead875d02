package composition

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Observer is told about edits after they are applied.
type Observer interface {
	// SegmentChanged reports a structural edit (move, resize, retune, recolor)
	// or a newly added segment.
	SegmentChanged(id SegmentID)
	// SegmentRemoved reports a deletion. The ID is already tombstoned.
	SegmentRemoved(id SegmentID)
}

// Composition is the arena of segments arranged on tracks.
type Composition struct {
	// slots[i] holds segment ID i+1; nil once deleted.
	slots      []*Segment
	tombstones *roaring.Bitmap
	tracks     int
	observers  []Observer
}

// New creates an empty composition.
func New() *Composition {
	return &Composition{
		tombstones: roaring.New(),
	}
}

// AddObserver registers o for edit notifications.
func (c *Composition) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// Add stores a copy of seg under a fresh ID and returns the ID.
// Any ID already set on seg is ignored.
func (c *Composition) Add(seg Segment) SegmentID {
	seg = seg.clone()
	seg.ID = SegmentID(len(c.slots) + 1)
	if seg.Kind == KindAudio && seg.AudioEnd == 0 {
		seg.AudioEnd = seg.AudioStart + seg.Duration()
	}
	c.slots = append(c.slots, &seg)
	if seg.Track+1 > c.tracks {
		c.tracks = seg.Track + 1
	}
	c.changed(seg.ID)
	return seg.ID
}

// Segment returns a copy of the segment, or false if id is unknown or deleted.
func (c *Composition) Segment(id SegmentID) (Segment, bool) {
	seg := c.slot(id)
	if seg == nil {
		return Segment{}, false
	}
	return seg.clone(), true
}

// Live reports whether id names an existing segment.
func (c *Composition) Live(id SegmentID) bool {
	if id == 0 || int(id) > len(c.slots) {
		return false
	}
	return !c.tombstones.Contains(uint32(id))
}

// Segments returns the IDs of all live segments in creation order.
func (c *Composition) Segments() []SegmentID {
	ids := make([]SegmentID, 0, len(c.slots)-int(c.tombstones.GetCardinality()))
	for i, seg := range c.slots {
		if seg != nil {
			ids = append(ids, SegmentID(i+1))
		}
	}
	return ids
}

// Len returns the number of live segments.
func (c *Composition) Len() int {
	return len(c.slots) - int(c.tombstones.GetCardinality())
}

// Tracks returns the number of tracks in use.
func (c *Composition) Tracks() int {
	return c.tracks
}

// Move places the segment on track at start, keeping its length.
func (c *Composition) Move(id SegmentID, track int, start time.Duration) error {
	seg, err := c.mustSlot(id)
	if err != nil {
		return err
	}
	if track < 0 || start < 0 {
		return fmt.Errorf("segment %d: invalid position track=%d start=%v", id, track, start)
	}
	length := seg.Duration()
	seg.Track = track
	seg.Start = start
	seg.End = start + length
	if track+1 > c.tracks {
		c.tracks = track + 1
	}
	c.changed(id)
	return nil
}

// Resize moves the end of the segment. Audio segments play correspondingly
// more or less of their source file.
func (c *Composition) Resize(id SegmentID, end time.Duration) error {
	seg, err := c.mustSlot(id)
	if err != nil {
		return err
	}
	if end <= seg.Start {
		return fmt.Errorf("segment %d: end %v is not after start %v", id, end, seg.Start)
	}
	seg.End = end
	if seg.Kind == KindAudio {
		seg.AudioEnd = seg.AudioStart + seg.Duration()
	}
	c.changed(id)
	return nil
}

// Retune shifts every note by semitones. It is a structural edit for every
// kind of segment.
func (c *Composition) Retune(id SegmentID, semitones int) error {
	seg, err := c.mustSlot(id)
	if err != nil {
		return err
	}
	for i := range seg.Notes {
		seg.Notes[i].Pitch += semitones
	}
	c.changed(id)
	return nil
}

// Recolor sets the segment color.
func (c *Composition) Recolor(id SegmentID, color string) error {
	seg, err := c.mustSlot(id)
	if err != nil {
		return err
	}
	seg.Color = color
	c.changed(id)
	return nil
}

// Delete removes the segment and tombstones its ID.
func (c *Composition) Delete(id SegmentID) error {
	if _, err := c.mustSlot(id); err != nil {
		return err
	}
	c.slots[id-1] = nil
	c.tombstones.Add(uint32(id))
	for _, o := range c.observers {
		o.SegmentRemoved(id)
	}
	return nil
}

func (c *Composition) slot(id SegmentID) *Segment {
	if !c.Live(id) {
		return nil
	}
	return c.slots[id-1]
}

func (c *Composition) mustSlot(id SegmentID) (*Segment, error) {
	seg := c.slot(id)
	if seg == nil {
		return nil, fmt.Errorf("segment %d does not exist", id)
	}
	return seg, nil
}

func (c *Composition) changed(id SegmentID) {
	for _, o := range c.observers {
		o.SegmentChanged(id)
	}
}

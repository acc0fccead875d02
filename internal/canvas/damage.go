package canvas

import "image"

// Damage accumulates the union of areas needing a repaint.
// It implements preview.RedrawSink.
type Damage struct {
	area    image.Rectangle
	reports int
}

// NewDamage creates an empty accumulator.
func NewDamage() *Damage {
	return &Damage{}
}

// Invalidate adds r to the damaged area.
func (d *Damage) Invalidate(r image.Rectangle) {
	d.area = d.area.Union(r)
	d.reports++
}

// Take returns the damaged area and clears it. False means nothing to do.
func (d *Damage) Take() (image.Rectangle, bool) {
	area := d.area
	d.area = image.Rectangle{}
	d.reports = 0
	return area, !area.Empty()
}

// Pending returns how many reports were merged since the last Take.
func (d *Damage) Pending() int {
	return d.reports
}

package preview

import (
	"image"

	"github.com/billie-coop/segcanvas/internal/composition"
)

// NotationRects lays out one dash per note inside rect. Higher pitches sit
// higher. The pitch range of the segment fills the rectangle's height.
// Notes that fall outside the segment are clipped or skipped.
func NotationRects(seg composition.Segment, rect image.Rectangle, layout Layout) []image.Rectangle {
	if len(seg.Notes) == 0 || rect.Empty() {
		return nil
	}

	low, high := seg.Notes[0].Pitch, seg.Notes[0].Pitch
	for _, n := range seg.Notes[1:] {
		low = min(low, n.Pitch)
		high = max(high, n.Pitch)
	}

	rows := high - low + 1
	dash := max(1, rect.Dy()/rows)
	// Leftover height is split above and below so a single pitch is centred.
	pad := max(0, (rect.Dy()-dash*rows)/2)

	// rowY is the top of a pitch row relative to rect.
	rowY := func(row int) int {
		if dash*rows <= rect.Dy() {
			return pad + row*dash
		}
		// More pitches than pixels: squeeze rows together.
		return row * (rect.Dy() - dash) / (rows - 1)
	}

	rects := make([]image.Rectangle, 0, len(seg.Notes))
	for _, n := range seg.Notes {
		x0 := rect.Min.X + layout.X(n.Start)
		x1 := x0 + max(1, layout.X(n.Duration))
		y0 := rect.Min.Y + rowY(high-n.Pitch)

		r := image.Rect(x0, y0, x1, y0+dash).Intersect(rect)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
	}
	return rects
}

package preview

import (
	"image"
	"math"
	"time"

	"github.com/billie-coop/segcanvas/internal/composition"
)

// Layout maps timeline positions to canvas pixels.
type Layout struct {
	PixelsPerSecond float64
	TrackHeight     int
}

// DefaultLayout is 30 pixels per second with 48 pixel tracks.
func DefaultLayout() Layout {
	return Layout{PixelsPerSecond: 30, TrackHeight: 48}
}

// X converts a time offset to a pixel offset.
func (l Layout) X(t time.Duration) int {
	return int(math.Round(t.Seconds() * l.PixelsPerSecond))
}

// Time converts a pixel offset back to a time offset.
func (l Layout) Time(x int) time.Duration {
	if l.PixelsPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(x) / l.PixelsPerSecond * float64(time.Second))
}

// Rect is the segment's rectangle on the canvas. It is at least one pixel wide.
func (l Layout) Rect(seg composition.Segment) image.Rectangle {
	x0 := l.X(seg.Start)
	x1 := l.X(seg.End)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	y0 := seg.Track * l.TrackHeight
	return image.Rect(x0, y0, x1, y0+l.TrackHeight)
}

// Zoom returns the layout scaled horizontally by factor.
func (l Layout) Zoom(factor float64) Layout {
	if factor > 0 {
		l.PixelsPerSecond *= factor
	}
	return l
}

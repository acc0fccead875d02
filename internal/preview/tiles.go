package preview

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// TileWidth is the width of every tile except possibly the last.
const TileWidth = 64

// defaultWave is used when a segment has no usable color.
var defaultWave = color.RGBA{R: 0x4f, G: 0xa3, B: 0xff, A: 0xff}

// Tile is one slice of a rendered waveform. X is the offset of the tile's
// left edge from the segment's left edge.
type Tile struct {
	X     int
	Image *image.RGBA
}

// Width is the tile's horizontal extent in pixels.
func (t Tile) Width() int {
	return t.Image.Bounds().Dx()
}

// waveColor parses a "#rrggbb" segment color.
func waveColor(s string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		return defaultWave
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// renderTiles draws peak values into tiles covering exactly width pixels.
// Each channel gets an equal horizontal lane. Values are laid out per column,
// per channel: max then min with minima, or the absolute peak without.
func renderTiles(values []float32, channels, width, height int, wantMinima bool, c color.RGBA) []Tile {
	if channels <= 0 || width <= 0 || height <= 0 {
		return nil
	}

	stride := channels
	if wantMinima {
		stride *= 2
	}
	columns := len(values) / stride

	lane := max(1, height/channels)
	tiles := make([]Tile, 0, (width+TileWidth-1)/TileWidth)
	for off := 0; off < width; off += TileWidth {
		w := min(TileWidth, width-off)
		img := image.NewRGBA(image.Rect(0, 0, w, height))

		for x := 0; x < w; x++ {
			if columns == 0 {
				break
			}
			// Scale when the worker answered with a different column count.
			col := (off + x) * columns / width
			base := col * stride

			for ch := 0; ch < channels; ch++ {
				var hi, lo float32
				if wantMinima {
					hi, lo = values[base+ch*2], values[base+ch*2+1]
				} else {
					hi = abs32(values[base+ch])
					lo = -hi
				}
				top := ch * lane
				drawColumn(img, x, top, min(top+lane, height), hi, lo, c)
			}
		}
		tiles = append(tiles, Tile{X: off, Image: img})
	}
	return tiles
}

// drawColumn fills column x of a lane [top, bottom) from hi down to lo,
// where 1 is the lane's top edge and -1 its bottom edge.
func drawColumn(img *image.RGBA, x, top, bottom int, hi, lo float32, c color.RGBA) {
	h := bottom - top
	if h <= 0 {
		return
	}
	hi, lo = clamp(hi), clamp(lo)
	if lo > hi {
		hi, lo = lo, hi
	}
	mid := float32(h-1) / 2
	y0 := top + int(mid-hi*mid+0.5)
	y1 := top + int(mid-lo*mid+0.5)
	for y := y0; y <= y1 && y < bottom; y++ {
		img.SetRGBA(x, y, c)
	}
}

// Coverage reports the fraction of lit pixels inside r, where r is relative
// to the segment's top-left corner. It returns false if r misses every tile.
func Coverage(tiles []Tile, r image.Rectangle) (float64, bool) {
	lit, total := 0, 0
	for _, t := range tiles {
		in := r.Intersect(t.Image.Bounds().Add(image.Pt(t.X, 0)))
		if in.Empty() {
			continue
		}
		for y := in.Min.Y; y < in.Max.Y; y++ {
			for x := in.Min.X; x < in.Max.X; x++ {
				if t.Image.RGBAAt(x-t.X, y).A != 0 {
					lit++
				}
			}
		}
		total += in.Dx() * in.Dy()
	}
	if total == 0 {
		return 0, false
	}
	return float64(lit) / float64(total), true
}

// Extent is the total width covered by tiles.
func Extent(tiles []Tile) int {
	w := 0
	for _, t := range tiles {
		w += t.Width()
	}
	return w
}

func clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

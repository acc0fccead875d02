package canvas

import (
	"image"
	"strings"
	"testing"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/preview"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestPainter_NeverPanics(t *testing.T) {
	layout := preview.DefaultLayout()
	entries := []preview.Entry{
		{},
		{State: preview.Pending, Rect: image.Rect(0, 0, 40, 48)},
		{State: preview.Ready, Kind: composition.KindAudio, Rect: image.Rect(0, 0, 40, 48)},
		{State: preview.Ready, Kind: composition.KindNotation, Rect: image.Rect(0, 0, 40, 48)},
		{State: preview.Unavailable, Rect: image.Rect(-10, -10, 5, 5)},
		{State: preview.State(42), Rect: image.Rect(0, 0, 1, 1)},
		{State: preview.Ready, Kind: composition.KindAudio, Rect: image.Rect(0, 0, 400, 48),
			Tiles: []preview.Tile{{X: 0, Image: image.NewRGBA(image.Rect(0, 0, 3, 2))}}},
	}

	for _, e := range entries {
		p := NewPainter(4, 3)
		p.Resize(20, 6)
		scene := Scene{Layout: layout, Items: []Item{{Entry: e, Selected: true}}, Frame: 7}
		assert.NotPanics(t, func() {
			p.Paint(image.Rect(-100, -100, 1000, 1000), scene)
			_ = p.Render()
		}, "state %v", e.State)
	}
}

func TestPainter_EmptyGrid(t *testing.T) {
	p := NewPainter(0, 0)
	p.Resize(0, 0)
	assert.NotPanics(t, func() {
		p.Paint(image.Rect(0, 0, 100, 100), Scene{Layout: preview.DefaultLayout()})
	})
	assert.Equal(t, "", p.Render())
	assert.Zero(t, p.Glyph(0, 0))
}

func TestPainter_OnlyDamagedCellsChange(t *testing.T) {
	layout := preview.DefaultLayout()
	p := NewPainter(4, 3)
	p.Resize(10, 3)

	unavailable := Scene{Layout: layout, Items: []Item{{
		Entry: preview.Entry{State: preview.Unavailable, Rect: image.Rect(0, 0, 40, 48)},
	}}}
	p.Paint(image.Rect(0, 0, 40, 48), unavailable)
	assert.Equal(t, unavailableGlyph, p.Glyph(9, 2))

	// Repaint only the left half with nothing in it.
	p.Paint(image.Rect(0, 0, 20, 48), Scene{Layout: layout})
	assert.Equal(t, blankGlyph, p.Glyph(0, 0))
	assert.Equal(t, blankGlyph, p.Glyph(4, 2))
	assert.Equal(t, unavailableGlyph, p.Glyph(5, 0))
}

func TestPainter_Render(t *testing.T) {
	p := NewPainter(4, 1)
	p.Resize(6, 2)
	scene := Scene{
		Layout: preview.Layout{PixelsPerSecond: 30, TrackHeight: 10},
		Items: []Item{{
			Segment: composition.Segment{Color: "#ff0000"},
			Entry:   preview.Entry{State: preview.Unavailable, Rect: image.Rect(4, 0, 12, 10)},
		}},
	}
	p.Paint(image.Rect(0, 0, 24, 20), scene)

	lines := strings.Split(ansi.Strip(p.Render()), "\n")
	assert.Equal(t, []string{" ██   ", "      "}, lines)
}

func TestPainter_Viewport(t *testing.T) {
	p := NewPainter(4, 3)
	p.Resize(10, 7)
	p.Scroll(100)

	assert.Equal(t, image.Rect(100, 0, 140, 112), p.Viewport(preview.DefaultLayout()))
}

func TestLevelGlyph(t *testing.T) {
	tests := []struct {
		cov  float64
		want rune
	}{
		{0, ' '},
		{0.01, '░'},
		{0.25, '░'},
		{0.5, '▒'},
		{0.75, '▓'},
		{1, '█'},
		{3, '█'},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levelGlyph(tt.cov), "coverage %v", tt.cov)
	}
}

func TestHelpMarkdown(t *testing.T) {
	md := helpMarkdown(DefaultKeyMap())
	for _, b := range DefaultKeyMap().Bindings() {
		assert.Contains(t, md, b.Help().Desc)
	}
	assert.NotEmpty(t, renderHelp(DefaultKeyMap(), 0))
}

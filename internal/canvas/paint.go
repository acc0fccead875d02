package canvas

import (
	"image"
	"math"
	"strings"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/preview"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/lipgloss/v2"
)

// Glyphs, from silent to full coverage.
var levels = []rune{' ', '░', '▒', '▓', '█'}

const (
	blankGlyph       = ' '
	bodyGlyph        = '·'
	dashGlyph        = '━'
	unavailableGlyph = '█'

	unavailableColor = "241"
	defaultColor     = "#4fa3ff"
)

// Item is one segment as the painter sees it.
type Item struct {
	Segment  composition.Segment
	Entry    preview.Entry
	Selected bool
}

// Scene is everything needed to paint one frame.
type Scene struct {
	Layout preview.Layout
	Items  []Item
	Frame  int // advances the pending spinner
}

type cell struct {
	glyph    rune
	color    string
	selected bool
}

// Painter maps pixel-space previews onto terminal cells. It keeps the last
// frame so only damaged cells are recomputed.
type Painter struct {
	cols, rows   int
	cellWidth    int
	rowsPerTrack int
	originX      int

	grid    [][]cell
	spinner []rune
}

// NewPainter creates a painter where one column is cellWidth pixels wide and
// every track is rowsPerTrack rows tall.
func NewPainter(cellWidth, rowsPerTrack int) *Painter {
	return &Painter{
		cellWidth:    max(1, cellWidth),
		rowsPerTrack: max(1, rowsPerTrack),
		spinner:      spinnerGlyphs(spinner.Dot),
	}
}

// Resize sets the grid size in cells. The grid is cleared.
func (p *Painter) Resize(cols, rows int) {
	p.cols, p.rows = max(0, cols), max(0, rows)
	p.grid = make([][]cell, p.rows)
	for r := range p.grid {
		p.grid[r] = make([]cell, p.cols)
		for c := range p.grid[r] {
			p.grid[r][c] = cell{glyph: blankGlyph}
		}
	}
}

// Scroll sets the pixel offset of the leftmost column.
func (p *Painter) Scroll(x int) {
	p.originX = x
}

// Size returns the grid size in cells.
func (p *Painter) Size() (cols, rows int) {
	return p.cols, p.rows
}

// Viewport is the pixel area the grid shows under layout.
func (p *Painter) Viewport(layout preview.Layout) image.Rectangle {
	return image.Rect(
		p.originX, 0,
		p.originX+p.cols*p.cellWidth, p.rowY(p.rows, layout),
	)
}

// Paint recomputes every cell overlapping area.
func (p *Painter) Paint(area image.Rectangle, scene Scene) {
	for r := 0; r < p.rows; r++ {
		for c := 0; c < p.cols; c++ {
			cr := p.cellRect(c, r, scene.Layout)
			if !cr.Overlaps(area) {
				continue
			}
			p.grid[r][c] = p.cellFor(cr, scene)
		}
	}
}

// Render turns the grid into styled lines.
func (p *Painter) Render() string {
	var sb strings.Builder
	for r, row := range p.grid {
		if r > 0 {
			sb.WriteByte('\n')
		}
		start := 0
		for c := 1; c <= len(row); c++ {
			if c < len(row) && sameStyle(row[c], row[start]) {
				continue
			}
			sb.WriteString(renderRun(row[start:c]))
			start = c
		}
	}
	return sb.String()
}

// Glyph returns the rune at a cell, for tests and debugging.
func (p *Painter) Glyph(col, row int) rune {
	if row < 0 || row >= p.rows || col < 0 || col >= p.cols {
		return 0
	}
	return p.grid[row][col].glyph
}

func (p *Painter) cellFor(cr image.Rectangle, scene Scene) cell {
	for _, it := range scene.Items {
		if !cr.Overlaps(it.Entry.Rect) {
			continue
		}
		c := cell{glyph: bodyGlyph, color: colorOf(it.Segment), selected: it.Selected}
		e := it.Entry

		switch {
		case e.Kind == composition.KindNotation && e.State == preview.Ready:
			for _, dash := range e.Notation {
				if cr.Overlaps(dash) {
					c.glyph = dashGlyph
					break
				}
			}
		case e.State == preview.Ready:
			if cov, ok := preview.Coverage(e.Tiles, cr.Sub(e.Rect.Min)); ok {
				c.glyph = levelGlyph(cov)
			}
		case e.State == preview.Unavailable:
			c.glyph = unavailableGlyph
			c.color = unavailableColor
		default:
			// Empty or pending: spinner in the first column of the segment.
			if cr.Min.X <= e.Rect.Min.X && len(p.spinner) > 0 {
				c.glyph = p.spinner[scene.Frame%len(p.spinner)]
			}
		}
		return c
	}
	return cell{glyph: blankGlyph}
}

func (p *Painter) cellRect(c, r int, layout preview.Layout) image.Rectangle {
	x0 := p.originX + c*p.cellWidth
	return image.Rect(x0, p.rowY(r, layout), x0+p.cellWidth, p.rowY(r+1, layout))
}

// rowY is the top pixel of row r.
func (p *Painter) rowY(r int, layout preview.Layout) int {
	track, sub := r/p.rowsPerTrack, r%p.rowsPerTrack
	return track*layout.TrackHeight + sub*layout.TrackHeight/p.rowsPerTrack
}

func levelGlyph(cov float64) rune {
	if math.IsNaN(cov) || cov <= 0 {
		return levels[0]
	}
	i := int(math.Ceil(cov * float64(len(levels)-1)))
	return levels[min(i, len(levels)-1)]
}

func colorOf(seg composition.Segment) string {
	if seg.Color == "" {
		return defaultColor
	}
	return seg.Color
}

func sameStyle(a, b cell) bool {
	return a.color == b.color && a.selected == b.selected
}

func renderRun(run []cell) string {
	glyphs := make([]rune, len(run))
	for i, c := range run {
		glyphs[i] = c.glyph
	}
	if run[0].color == "" && !run[0].selected {
		return string(glyphs)
	}
	style := lipgloss.NewStyle().Reverse(run[0].selected)
	if run[0].color != "" {
		style = style.Foreground(lipgloss.Color(run[0].color))
	}
	return style.Render(string(glyphs))
}

// spinnerGlyphs takes the first rune of every frame.
func spinnerGlyphs(s spinner.Spinner) []rune {
	var glyphs []rune
	for _, f := range s.Frames {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		glyphs = append(glyphs, []rune(f)[0])
	}
	return glyphs
}

// Package canvas is the terminal renderer for a composition.
//
// It paints whatever the preview cache holds and nothing else. Changes are
// reported to a Damage accumulator as pixel rectangles; a RedrawTimer ticks
// every redraw_interval and only then are completions pumped and the damaged
// cells repainted. Many ready signals between two ticks cost one repaint.
//
// The bubbletea Update loop is the UI goroutine: all edits, cache reads and
// painting happen there.
package canvas

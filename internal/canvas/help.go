package canvas

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour/v2"
)

// helpMarkdown builds the help page from the key map.
func helpMarkdown(keys KeyMap) string {
	var sb strings.Builder
	sb.WriteString("# segcanvas\n\n")
	sb.WriteString("Waveforms fill in as the background worker catches up. ")
	sb.WriteString("A solid block means the audio file could not be read.\n\n")
	sb.WriteString("| Key | Action |\n|---|---|\n")
	for _, b := range keys.Bindings() {
		h := b.Help()
		fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
	}
	return sb.String()
}

// renderHelp renders the help page for the given width. The raw markdown is
// returned if rendering fails.
func renderHelp(keys KeyMap, width int) string {
	md := helpMarkdown(keys)

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(max(20, width-4)), // Account for padding
	)
	if err != nil {
		return md
	}

	rendered, err := r.Render(md)
	if err != nil {
		return md
	}

	// Remove extra newlines that glamour adds
	return strings.TrimRight(rendered, "\n")
}

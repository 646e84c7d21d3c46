package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/vulnverified/valkyrie/internal/engine"
)

// WriteSummary prints the post-run counts.
func WriteSummary(w io.Writer, tool string, s engine.Summary, noColor bool) {
	label := "Checked:"
	if !noColor {
		label = lipgloss.NewStyle().Bold(true).Render(label)
	}
	fmt.Fprintf(w, "%s %d targets with %s, %d ok, %d failed\n", label, s.Targets, tool, s.Succeeded, s.Failed)
}

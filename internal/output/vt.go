package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vulnverified/valkyrie/internal/virustotal"
)

// WriteVTSummary prints the one-line verdict used by default.
func WriteVTSummary(w io.Writer, target string, rep *virustotal.Report, noColor bool) {
	writeTarget(w, target, noColor)

	hits := fmt.Sprintf("%d hits", rep.Stats.Positives())
	if !noColor {
		if rep.Stats.Positives() > 0 {
			hits = styleError.Render(hits)
		} else {
			hits = styleSuccess.Render(hits)
		}
	}
	line := fmt.Sprintf("VT: %s - %s", rep.Permalink, hits)
	if len(rep.Categories) > 0 {
		line += fmt.Sprintf(" (%s)", strings.Join(rep.Categories, ", "))
	}
	fmt.Fprintf(w, "  %s\n", line)
}

// WriteVTReport prints the full report with every flagging engine.
func WriteVTReport(w io.Writer, target string, rep *virustotal.Report, noColor bool) {
	writeTarget(w, target, noColor)

	kind := rep.Type
	if kind == "" {
		kind = "object"
	}
	fmt.Fprintf(w, "  Analysis URL: %s\n", rep.Permalink)
	fmt.Fprintf(w, "  The %s has been flagged %d/%d times.\n", strings.ReplaceAll(kind, "_", " "), rep.Stats.Positives(), rep.Stats.Total())
	if rep.Title != "" {
		fmt.Fprintf(w, "  Title: %s\n", rep.Title)
	}
	if len(rep.Categories) > 0 {
		fmt.Fprintf(w, "  Categories: %s\n", strings.Join(rep.Categories, ", "))
	}
	fmt.Fprintf(w, "  Reputation: %d\n", rep.Reputation)
	if !rep.LastAnalysis.IsZero() {
		fmt.Fprintf(w, "  Last analysis: %s\n", rep.LastAnalysis.UTC().Format(time.DateTime))
	}
	if rep.TimesSubmitted > 0 {
		fmt.Fprintf(w, "  Times submitted: %d\n", rep.TimesSubmitted)
	}

	flagged := rep.Flagged()
	if len(flagged) == 0 {
		return
	}
	fmt.Fprintln(w, "  Sources:")
	width := 0
	for _, r := range flagged {
		if len(r.Engine) > width {
			width = len(r.Engine)
		}
	}
	for _, r := range flagged {
		result := r.Result
		if result == "" {
			result = r.Category
		}
		fmt.Fprintf(w, "    %-*s : %s\n", width, r.Engine, result)
	}
}

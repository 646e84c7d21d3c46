package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/vulnverified/valkyrie/internal/dnslookup"
)

// Field is one key/value display row.
type Field struct {
	Key   string
	Value string
}

// WriteRecords prints the DNS records found for target.
func WriteRecords(w io.Writer, target string, records []dnslookup.Record, noColor bool) {
	writeTarget(w, target, noColor)
	if len(records) == 0 {
		fmt.Fprintln(w, "  No records found.")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Type, r.Value})
	}
	if noColor {
		writeAligned(w, rows)
		return
	}
	fmt.Fprintln(w, renderTable([]string{"Type", "Value"}, rows))
}

// WriteFields prints key/value attributes for target.
func WriteFields(w io.Writer, target string, fields []Field, noColor bool) {
	writeTarget(w, target, noColor)
	if len(fields) == 0 {
		fmt.Fprintln(w, "  No data.")
		return
	}

	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f.Key, f.Value})
	}
	if noColor {
		writeAligned(w, rows)
		return
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows))
}

// WriteMessage prints target followed by an indented note.
func WriteMessage(w io.Writer, target, msg string, noColor bool) {
	writeTarget(w, target, noColor)
	fmt.Fprintf(w, "  %s\n", msg)
}

func writeTarget(w io.Writer, target string, noColor bool) {
	if noColor {
		fmt.Fprintf(w, "> %s\n", target)
		return
	}
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render("> "+target))
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
		})

	for _, row := range rows {
		t.Row(row...)
	}
	return t.Render()
}

// writeAligned prints two-column rows as "  key: value" with keys padded
// to a common width.
func writeAligned(w io.Writer, rows [][]string) {
	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-*s: %s\n", width, row[0], strings.Join(row[1:], " "))
	}
}

// truncate keeps the first max runes of s.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

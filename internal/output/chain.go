package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vulnverified/valkyrie/internal/redirect"
)

// HeaderTruncateLength is the longest header value shown without
// --no-truncate.
const HeaderTruncateLength = 70

const hopPadding = "   "

// ChainOptions controls WriteChain.
type ChainOptions struct {
	NoTruncate     bool
	ShowAllHeaders bool
	NoColor        bool
}

var (
	styleInfo     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleRedirect = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleKey      = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
)

// WriteChain prints every hop of a redirect chain.
func WriteChain(w io.Writer, chain redirect.Chain, opts ChainOptions) {
	var allowed []string
	if !opts.ShowAllHeaders {
		allowed = redirect.SummaryHeaderNames()
	}

	for i, hop := range chain {
		marker := "->"
		if i > 0 {
			marker = ">>"
		}
		fmt.Fprintf(w, "%s %s\n", marker, hop.URL)

		if hop.Err != nil {
			msg := redirect.Describe(hop.Err)
			if !opts.NoColor {
				msg = styleError.Render(msg)
			}
			fmt.Fprintf(w, "%s%s\n", hopPadding, msg)
			continue
		}

		resp := hop.Response
		status := fmt.Sprintf("%s - %d - %s", redirect.FormatVersionText(resp.Proto), resp.StatusCode, resp.Reason)
		if !opts.NoColor {
			status = statusStyle(resp.StatusCode).Render(status)
		}
		fmt.Fprintf(w, "%s%s\n", hopPadding, status)

		headers := redirect.FilterHeaders(resp.Header, allowed)
		names := make([]string, 0, len(headers))
		for name := range headers {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			key := name
			if !opts.NoColor {
				key = styleKey.Render(name)
			}
			for _, val := range headers[name] {
				if !opts.NoTruncate {
					val = truncate(val, HeaderTruncateLength)
				}
				fmt.Fprintf(w, "%s%s: %s\n", hopPadding, key, strings.TrimSpace(val))
			}
		}
	}
}

func statusStyle(code int) lipgloss.Style {
	switch {
	case code >= 400:
		return styleError
	case code >= 300:
		return styleRedirect
	case code >= 200:
		return styleSuccess
	default:
		return styleInfo
	}
}

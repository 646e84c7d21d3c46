package input

import (
	"net/netip"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var (
	URLRegex    = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'` + "`" + `]+`)
	DomainRegex = regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z][a-z0-9-]{0,61}[a-z0-9]\b`)
	IPv4Regex   = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\b`)
	IPv6Regex   = regexp.MustCompile(`(?i)(?:[0-9a-f]{0,4}:){2,7}[0-9a-f]{0,4}`)
	EmailRegex  = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@(?:[a-z0-9-]+\.)+[a-z]{2,}\b`)
)

// urlTrailing is punctuation that usually belongs to the surrounding prose.
const urlTrailing = ".,;:!?]}"

// ExtractURLs returns every http(s) URL in text.
func ExtractURLs(text string, unique bool) []string {
	return collect(URLRegex.FindAllString(text, -1), unique, func(s string) (string, bool) {
		s = trimURL(s)
		return s, s != ""
	})
}

// trimURL drops trailing prose punctuation. A closing parenthesis is kept
// while it balances an opening one inside the URL.
func trimURL(s string) string {
	for s != "" {
		last := s[len(s)-1]
		switch {
		case strings.IndexByte(urlTrailing, last) >= 0:
		case last == ')' && strings.Count(s, "(") < strings.Count(s, ")"):
		default:
			return s
		}
		s = s[:len(s)-1]
	}
	return s
}

// ExtractDomains returns host names ending in a known public suffix.
func ExtractDomains(text string, unique bool) []string {
	return collect(DomainRegex.FindAllString(text, -1), unique, func(s string) (string, bool) {
		return s, IsDomain(s)
	})
}

// ExtractIPv4 returns every dotted-quad address in text.
func ExtractIPv4(text string, unique bool) []string {
	return collect(IPv4Regex.FindAllString(text, -1), unique, func(s string) (string, bool) {
		addr, err := netip.ParseAddr(s)
		return s, err == nil && addr.Is4()
	})
}

// ExtractIPv6 returns every IPv6 address in text. Matches glued to
// surrounding words, such as "Foo::Bar", are ignored.
func ExtractIPv6(text string, unique bool) []string {
	var matches []string
	for _, loc := range IPv6Regex.FindAllStringIndex(text, -1) {
		if isAddrByte(text, loc[0]-1) || isAddrByte(text, loc[1]) {
			continue
		}
		matches = append(matches, text[loc[0]:loc[1]])
	}
	return collect(matches, unique, func(s string) (string, bool) {
		if !hasIPv6Groups(s) {
			return s, false
		}
		addr, err := netip.ParseAddr(s)
		return s, err == nil && addr.Is6()
	})
}

// isAddrByte reports whether text[i] could continue an address or word.
func isAddrByte(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	c := text[i]
	return c == '_' || c == ':' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// hasIPv6Groups requires all eight groups, or a "::" plus at least one
// hex group.
func hasIPv6Groups(s string) bool {
	groups := strings.Split(s, ":")
	if !strings.Contains(s, "::") {
		return len(groups) == 8
	}
	for _, g := range groups {
		if g != "" {
			return true
		}
	}
	return false
}

// ExtractIPs returns IPv4 addresses followed by IPv6 addresses.
func ExtractIPs(text string, unique bool) []string {
	return append(ExtractIPv4(text, unique), ExtractIPv6(text, unique)...)
}

// ExtractEmails returns every email address in text.
func ExtractEmails(text string, unique bool) []string {
	return collect(EmailRegex.FindAllString(text, -1), unique, func(s string) (string, bool) {
		return s, true
	})
}

// IsDomain reports whether name has at least one label under an ICANN
// public suffix.
func IsDomain(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	if name == "" || !strings.Contains(name, ".") {
		return false
	}
	if _, err := netip.ParseAddr(name); err == nil {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(name)
	if !icann || suffix == name {
		return false
	}
	return true
}

func collect(matches []string, unique bool, keep func(string) (string, bool)) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		v, ok := keep(m)
		if !ok {
			continue
		}
		if unique {
			if seen[v] {
				continue
			}
			seen[v] = true
		}
		out = append(out, v)
	}
	return out
}

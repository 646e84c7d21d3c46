package redirect

import "strconv"

// RawVersion packs a protocol version as concatenated digits: 1.1 -> 11.
func RawVersion(major, minor int) int {
	return major*10 + minor
}

// FormatVersion renders a raw version as a decimal string: 11 -> "1.1".
func FormatVersion(raw int) string {
	s := strconv.Itoa(raw)
	if len(s) < 2 {
		return s + "."
	}
	return s[:1] + "." + s[1:]
}

// FormatVersionText renders a raw version for display: 20 -> "HTTP/2.0".
func FormatVersionText(raw int) string {
	return "HTTP/" + FormatVersion(raw)
}

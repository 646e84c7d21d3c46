package redirect

import (
	"net/url"
	"strings"
)

// NormalizeURL resolves a redirect target against the URL that produced it.
// It returns false when there is no usable target: the target is empty or
// one of the URLs cannot be parsed.
func NormalizeURL(base, target string) (string, bool) {
	if target == "" {
		return "", false
	}
	if strings.HasPrefix(target, "http") {
		return target, true
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	switch {
	case strings.HasPrefix(target, "//"):
		return u.Scheme + ":" + target, true
	case strings.HasPrefix(target, "/"):
		return u.Scheme + "://" + u.Host + target, true
	}

	// Plain relative reference: "image.jpg", "../up", "?q=1".
	ref, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	return u.ResolveReference(ref).String(), true
}

package redirect

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// UserAgents is the fixed browser user agent list. The Firefox entries carry
// the process start date as their Gecko build.
var UserAgents = buildUserAgents(time.Now())

// DefaultUserAgent is sent unless the caller overrides User-Agent.
var DefaultUserAgent = UserAgents[0]

var defaultHeaders = map[string]string{
	"Accept":          "*/*",
	"Accept-Language": "en-US,en;q=0.8",
	"Cache-Control":   "max-age=0",
	"Connection":      "keep-alive",
	"User-Agent":      DefaultUserAgent,
}

// CategorizedHeaders groups the response headers urlcheck shows by default.
var CategorizedHeaders = map[string][]string{
	"redirect": {"Location", "Refresh"},
	"server":   {"Server", "X-Powered-By", "Via"},
	"content":  {"Content-Type", "Content-Length", "Content-Disposition"},
	"caching":  {"Cache-Control", "Expires", "Last-Modified"},
	"security": {"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options"},
	"cookies":  {"Set-Cookie"},
}

func buildUserAgents(now time.Time) []string {
	gecko := now.Format("20060102")
	return []string{
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/48.0.2564.116 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/13.1.1 Safari/605.1.15",
		fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:77.0) Gecko/%s Firefox/77.0", gecko),
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.97 Safari/537.36",
		fmt.Sprintf("Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:77.0) Gecko/%s Firefox/77.0", gecko),
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.97 Safari/537.36",
	}
}

// DefaultHeaders returns a fresh copy of the default request headers.
func DefaultHeaders() http.Header {
	h := make(http.Header, len(defaultHeaders))
	for k, v := range defaultHeaders {
		h.Set(k, v)
	}
	return h
}

// MergeHeaders returns base with every key in override replacing the base
// value for that key.
func MergeHeaders(base, override http.Header) http.Header {
	merged := base.Clone()
	if merged == nil {
		merged = make(http.Header)
	}
	for k, vs := range override {
		merged.Del(k)
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	return merged
}

// FilterHeaders keeps the headers whose name matches one of keys,
// case-insensitively. An empty key list keeps everything.
func FilterHeaders(h http.Header, keys []string) http.Header {
	if len(keys) == 0 {
		return h
	}
	filtered := make(http.Header)
	for name, vals := range h {
		for _, k := range keys {
			if strings.EqualFold(name, k) {
				filtered[name] = vals
				break
			}
		}
	}
	return filtered
}

// SummaryHeaderNames flattens CategorizedHeaders into a sorted name list.
func SummaryHeaderNames() []string {
	var names []string
	for _, group := range CategorizedHeaders {
		names = append(names, group...)
	}
	sort.Strings(names)
	return names
}

// headerValue returns the first value of the first header whose name
// matches key case-insensitively.
func headerValue(h http.Header, key string) (string, bool) {
	if vals, ok := h[http.CanonicalHeaderKey(key)]; ok && len(vals) > 0 {
		return vals[0], true
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.EqualFold(name, key) && len(h[name]) > 0 {
			return h[name][0], true
		}
	}
	return "", false
}

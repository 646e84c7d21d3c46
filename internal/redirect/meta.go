package redirect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	metaURLMarker = regexp.MustCompile(`(?i)url=`)
	quoteStripper = strings.NewReplacer(`"`, "", `'`, "")
)

// ExtractMetaRefresh returns the target of the first
// <meta http-equiv="refresh"> tag in doc. Malformed content such as
// "5;url=" or "5" yields an empty target rather than an error.
func ExtractMetaRefresh(doc *goquery.Document) (string, bool) {
	if doc == nil {
		return "", false
	}
	meta := doc.Find(`meta[http-equiv="refresh"]`).First()
	if meta.Length() == 0 {
		return "", false
	}
	content, _ := meta.Attr("content")
	if content == "" {
		return "", false
	}

	parts := metaURLMarker.Split(content, 2)
	if len(parts) < 2 {
		return "", true
	}
	return strings.TrimSpace(quoteStripper.Replace(parts[1])), true
}

// MetaRefreshTarget parses body as HTML and extracts its meta refresh target.
func MetaRefreshTarget(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	return ExtractMetaRefresh(doc)
}

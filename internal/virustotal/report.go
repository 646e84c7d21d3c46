package virustotal

import (
	"regexp"
	"time"
)

// Stats counts engine verdicts.
type Stats struct {
	Harmless   int `json:"harmless"`
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Timeout    int `json:"timeout"`
}

// Positives is the number of engines flagging the object.
func (s Stats) Positives() int {
	return s.Malicious + s.Suspicious
}

// Total is the number of engines that returned a verdict.
func (s Stats) Total() int {
	return s.Harmless + s.Malicious + s.Suspicious + s.Undetected + s.Timeout
}

// EngineResult is one engine's verdict.
type EngineResult struct {
	Engine   string `json:"engine"`
	Category string `json:"category"`
	Result   string `json:"result,omitempty"`
}

// Report is the latest analysis of a URL, file, domain or IP address.
type Report struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Permalink      string         `json:"permalink"`
	URL            string         `json:"url,omitempty"`
	Title          string         `json:"title,omitempty"`
	Reputation     int            `json:"reputation"`
	TimesSubmitted int            `json:"times_submitted,omitempty"`
	LastAnalysis   time.Time      `json:"last_analysis_date,omitzero"`
	Stats          Stats          `json:"stats"`
	Categories     []string       `json:"categories,omitempty"`
	Results        []EngineResult `json:"results,omitempty"`
}

// Flagged returns the engines that reported the object as malicious or
// suspicious.
func (r *Report) Flagged() []EngineResult {
	return flagged(r.Results)
}

// Analysis is a queued or finished scan.
type Analysis struct {
	ID      string         `json:"id"`
	Status  string         `json:"status"`
	Date    time.Time      `json:"date,omitzero"`
	Stats   Stats          `json:"stats"`
	Results []EngineResult `json:"results,omitempty"`
}

// Completed reports whether the analysis has finished.
func (a *Analysis) Completed() bool {
	return a.Status == "completed"
}

// Flagged returns the engines that reported malicious or suspicious.
func (a *Analysis) Flagged() []EngineResult {
	return flagged(a.Results)
}

func flagged(results []EngineResult) []EngineResult {
	var out []EngineResult
	for _, r := range results {
		if r.Category == "malicious" || r.Category == "suspicious" {
			out = append(out, r)
		}
	}
	return out
}

var (
	md5Regex    = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
	sha1Regex   = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	sha256Regex = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
	sha512Regex = regexp.MustCompile(`^[a-fA-F0-9]{128}$`)
)

func IsMD5(s string) bool    { return md5Regex.MatchString(s) }
func IsSHA1(s string) bool   { return sha1Regex.MatchString(s) }
func IsSHA256(s string) bool { return sha256Regex.MatchString(s) }
func IsSHA512(s string) bool { return sha512Regex.MatchString(s) }

// HashType names the digest s looks like, or returns "" if none.
func HashType(s string) string {
	switch {
	case IsMD5(s):
		return "md5"
	case IsSHA1(s):
		return "sha1"
	case IsSHA256(s):
		return "sha256"
	case IsSHA512(s):
		return "sha512"
	}
	return ""
}

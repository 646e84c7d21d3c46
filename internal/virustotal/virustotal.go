// Package virustotal is a small client for the VirusTotal v3 API.
package virustotal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://www.virustotal.com/api/v3"
	DefaultPollInterval = 15 * time.Second

	guiBaseURL  = "https://www.virustotal.com/gui"
	maxBodySize = 8 * 1024 * 1024
)

var (
	ErrNoAPIKey     = errors.New("virustotal: no API key configured")
	ErrNotFound     = errors.New("virustotal: not found")
	ErrUnauthorized = errors.New("virustotal: invalid API key")
	ErrQuota        = errors.New("virustotal: quota exceeded")
)

// Client talks to the v3 REST API. Requests are throttled to the public
// API allowance.
type Client struct {
	APIKey       string
	BaseURL      string
	HTTPClient   *http.Client
	Limiter      *rate.Limiter
	PollInterval time.Duration
}

// New returns a client limited to four requests a minute.
func New(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		APIKey:       apiKey,
		BaseURL:      DefaultBaseURL,
		HTTPClient:   httpClient,
		Limiter:      rate.NewLimiter(rate.Every(time.Minute/4), 4),
		PollInterval: DefaultPollInterval,
	}
}

// URLID returns the identifier the API uses for a URL.
func URLID(u string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(u))
}

// URLReport returns the latest analysis of u.
func (c *Client) URLReport(ctx context.Context, u string) (*Report, error) {
	return c.report(ctx, "/urls/"+URLID(u))
}

// FileReport returns the report for a file hash.
func (c *Client) FileReport(ctx context.Context, hash string) (*Report, error) {
	if HashType(hash) == "" {
		return nil, fmt.Errorf("virustotal: %q is not an MD5, SHA1, SHA256 or SHA512 hash", hash)
	}
	return c.report(ctx, "/files/"+strings.ToLower(hash))
}

// DomainReport returns the report for a domain.
func (c *Client) DomainReport(ctx context.Context, domain string) (*Report, error) {
	return c.report(ctx, "/domains/"+url.PathEscape(strings.ToLower(domain)))
}

// IPReport returns the report for an IP address.
func (c *Client) IPReport(ctx context.Context, ip string) (*Report, error) {
	return c.report(ctx, "/ip_addresses/"+url.PathEscape(ip))
}

// ScanURL submits u for analysis and returns the analysis ID.
func (c *Client) ScanURL(ctx context.Context, u string) (string, error) {
	form := url.Values{"url": {u}}
	var out struct {
		Data struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/urls", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", errors.New("virustotal: scan response carried no analysis id")
	}
	return out.Data.ID, nil
}

// Analysis returns the current state of an analysis.
func (c *Client) Analysis(ctx context.Context, id string) (*Analysis, error) {
	var out struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status  string                  `json:"status"`
				Date    int64                   `json:"date"`
				Stats   Stats                   `json:"stats"`
				Results map[string]engineResult `json:"results"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/analyses/"+url.PathEscape(id), nil, "", &out); err != nil {
		return nil, err
	}
	a := out.Data.Attributes
	return &Analysis{
		ID:      out.Data.ID,
		Status:  a.Status,
		Date:    unixTime(a.Date),
		Stats:   a.Stats,
		Results: engineResults(a.Results),
	}, nil
}

// WaitForAnalysis polls an analysis until it completes or ctx ends.
func (c *Client) WaitForAnalysis(ctx context.Context, id string) (*Analysis, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		a, err := c.Analysis(ctx, id)
		if err != nil {
			return nil, err
		}
		if a.Completed() {
			return a, nil
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) report(ctx context.Context, path string) (*Report, error) {
	var out struct {
		Data struct {
			ID         string `json:"id"`
			Type       string `json:"type"`
			Attributes struct {
				URL                 string                  `json:"url"`
				Title               string                  `json:"title"`
				Reputation          int                     `json:"reputation"`
				TimesSubmitted      int                     `json:"times_submitted"`
				LastAnalysisDate    int64                   `json:"last_analysis_date"`
				LastAnalysisStats   Stats                   `json:"last_analysis_stats"`
				LastAnalysisResults map[string]engineResult `json:"last_analysis_results"`
				Categories          map[string]string       `json:"categories"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}

	d := out.Data
	a := d.Attributes
	return &Report{
		ID:             d.ID,
		Type:           d.Type,
		Permalink:      permalink(d.Type, d.ID),
		URL:            a.URL,
		Title:          a.Title,
		Reputation:     a.Reputation,
		TimesSubmitted: a.TimesSubmitted,
		LastAnalysis:   unixTime(a.LastAnalysisDate),
		Stats:          a.LastAnalysisStats,
		Categories:     categories(a.Categories),
		Results:        engineResults(a.LastAnalysisResults),
	}, nil
}

// apiError is the error body the API returns with non-2xx statuses.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-apikey", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("virustotal %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading virustotal response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrQuota
	default:
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("virustotal: %s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("virustotal: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding virustotal response: %w", err)
	}
	return nil
}

func permalink(objType, id string) string {
	if id == "" {
		return ""
	}
	kind := strings.ReplaceAll(objType, "_", "-")
	if kind == "" {
		kind = "url"
	}
	return guiBaseURL + "/" + kind + "/" + id
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func categories(m map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range m {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type engineResult struct {
	EngineName string `json:"engine_name"`
	Category   string `json:"category"`
	Result     string `json:"result"`
}

func engineResults(m map[string]engineResult) []EngineResult {
	out := make([]EngineResult, 0, len(m))
	for name, r := range m {
		engine := r.EngineName
		if engine == "" {
			engine = name
		}
		out = append(out, EngineResult{Engine: engine, Category: r.Category, Result: r.Result})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Engine) < strings.ToLower(out[j].Engine)
	})
	return out
}

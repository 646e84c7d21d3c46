// Package redirect follows HTTP redirect chains hop by hop.
package redirect

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds each hop when Request.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	maxBodySize = 1024 * 1024
)

// Doer issues a single HTTP request.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request describes one chain resolution.
type Request struct {
	Method            string
	URL               string
	Timeout           time.Duration
	Headers           http.Header
	Proxies           map[string]string // scheme or "all" -> proxy URL
	FollowMetaRefresh bool
	MaxHops           int // 0 means unbounded
}

// Response summarizes a successful hop.
type Response struct {
	StatusCode int         `json:"status_code"`
	Reason     string      `json:"reason"`
	Proto      int         `json:"http_version"`
	Header     http.Header `json:"headers"`
	Body       string      `json:"-"`
}

// Hop is one step in a chain. Exactly one of Response and Err is set.
type Hop struct {
	URL      string
	Response *Response
	Err      error
}

func (h Hop) MarshalJSON() ([]byte, error) {
	out := struct {
		URL      string    `json:"url"`
		Response *Response `json:"response,omitempty"`
		Error    string    `json:"error,omitempty"`
		Failure  string    `json:"failure,omitempty"`
	}{
		URL:      h.URL,
		Response: h.Response,
	}
	if h.Err != nil {
		out.Error = Describe(h.Err)
		out.Failure = Classify(h.Err).String()
	}
	return json.Marshal(out)
}

// Chain is the ordered list of hops for one starting URL.
type Chain []Hop

// Final returns the last hop, or the zero Hop for an empty chain.
func (c Chain) Final() Hop {
	if len(c) == 0 {
		return Hop{}
	}
	return c[len(c)-1]
}

// Failed reports whether the chain ended on a transport failure.
func (c Chain) Failed() bool {
	return c.Final().Err != nil
}

// Resolver follows redirects one request at a time so every hop is visible.
type Resolver struct {
	Client Doer
}

// ClientConfig configures NewClient.
type ClientConfig struct {
	Proxies map[string]string
	Timeout time.Duration
}

// NewClient returns an HTTP client that never follows redirects and
// accepts any TLS certificate.
func NewClient(cfg ClientConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:           proxyFunc(cfg.Proxies),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func proxyFunc(proxies map[string]string) func(*http.Request) (*url.URL, error) {
	if len(proxies) == 0 {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		raw, ok := proxies[req.URL.Scheme]
		if !ok {
			raw, ok = proxies["all"]
		}
		if !ok || raw == "" {
			return http.ProxyFromEnvironment(req)
		}
		return url.Parse(raw)
	}
}

// Resolve walks the redirect chain starting at req.URL. It never returns an
// error: a failed request becomes the final hop.
func (r *Resolver) Resolve(ctx context.Context, req Request) Chain {
	client := r.Client
	if client == nil {
		client = NewClient(ClientConfig{Proxies: req.Proxies, Timeout: req.Timeout})
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	headers := MergeHeaders(DefaultHeaders(), req.Headers)

	var chain Chain
	current := req.URL
	for current != "" {
		if req.MaxHops > 0 && len(chain) >= req.MaxHops {
			chain = append(chain, Hop{URL: current, Err: ErrTooManyRedirects})
			break
		}

		resp, err := fetch(ctx, client, method, current, headers, timeout)
		if err != nil {
			chain = append(chain, Hop{URL: current, Err: err})
			break
		}
		chain = append(chain, Hop{URL: current, Response: resp})

		next, ok := nextTarget(current, resp, req.FollowMetaRefresh)
		if !ok {
			break
		}
		current = next
	}
	return chain
}

func fetch(ctx context.Context, client Doer, method, target string, headers http.Header, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header = headers.Clone()
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Proto:      RawVersion(resp.ProtoMajor, resp.ProtoMinor),
		Header:     resp.Header,
		Body:       string(body),
	}, nil
}

func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if reason, ok := strings.CutPrefix(resp.Status, code+" "); ok {
		return reason
	}
	if resp.Status != "" && resp.Status != code {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}

// nextTarget picks the URL to request after resp. Location always wins;
// a meta refresh is only consulted when there is no Location value.
func nextTarget(current string, resp *Response, followMeta bool) (string, bool) {
	if loc, _ := headerValue(resp.Header, "Location"); loc != "" {
		return NormalizeURL(current, loc)
	}
	if !followMeta {
		return "", false
	}

	contentType, _ := headerValue(resp.Header, "Content-Type")
	contentType = strings.ToLower(contentType)
	if !strings.Contains(contentType, "html") && !strings.Contains(contentType, "plain") {
		return "", false
	}
	target, ok := MetaRefreshTarget(resp.Body)
	if !ok {
		return "", false
	}
	return NormalizeURL(current, target)
}

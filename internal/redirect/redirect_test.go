package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func fakeResponse(code int, header http.Header, body string) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestResolve_FollowsLocationHeaders(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			http.Redirect(w, r, "/b", http.StatusMovedPermanently)
		case "/b":
			w.Header().Set("Location", srv.URL+"/c")
			w.WriteHeader(http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("done"))
		}
	}))
	defer srv.Close()

	r := &Resolver{Client: NewClient(ClientConfig{Timeout: 5 * time.Second})}
	chain := r.Resolve(context.Background(), Request{Method: http.MethodGet, URL: srv.URL + "/a"})

	if len(chain) != 3 {
		t.Fatalf("got %d hops, want 3", len(chain))
	}
	wantURLs := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}
	wantCodes := []int{301, 302, 200}
	for i, hop := range chain {
		if hop.URL != wantURLs[i] {
			t.Errorf("hop %d url = %q, want %q", i, hop.URL, wantURLs[i])
		}
		if hop.Err != nil {
			t.Fatalf("hop %d unexpected error: %v", i, hop.Err)
		}
		if hop.Response.StatusCode != wantCodes[i] {
			t.Errorf("hop %d status = %d, want %d", i, hop.Response.StatusCode, wantCodes[i])
		}
	}
	if chain[0].Response.Reason != "Moved Permanently" {
		t.Errorf("reason = %q, want %q", chain[0].Response.Reason, "Moved Permanently")
	}
	if chain[0].Response.Proto != 11 {
		t.Errorf("proto = %d, want 11", chain[0].Response.Proto)
	}
	if chain.Final().Response.Body != "done" {
		t.Errorf("body = %q, want %q", chain.Final().Response.Body, "done")
	}
	if chain.Failed() {
		t.Error("chain should not be failed")
	}
}

func TestResolve_MetaRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			w.Header().Set("Content-Type", "text/HTML; charset=utf-8")
			w.Write([]byte(`<html><head><meta http-equiv="refresh" content="0; url=landing"></head></html>`))
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`<meta http-equiv="refresh" content="0; url=/landing">`))
		case "/both":
			w.Header().Set("Location", "/located")
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusFound)
			w.Write([]byte(`<meta http-equiv="refresh" content="0; url=/landing">`))
		default:
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	r := &Resolver{Client: NewClient(ClientConfig{})}
	ctx := context.Background()

	chain := r.Resolve(ctx, Request{URL: srv.URL + "/start", FollowMetaRefresh: true})
	if len(chain) != 2 {
		t.Fatalf("got %d hops, want 2", len(chain))
	}
	if chain[1].URL != srv.URL+"/landing" {
		t.Errorf("hop 1 url = %q, want %q", chain[1].URL, srv.URL+"/landing")
	}

	chain = r.Resolve(ctx, Request{URL: srv.URL + "/start", FollowMetaRefresh: false})
	if len(chain) != 1 {
		t.Errorf("got %d hops with meta refresh disabled, want 1", len(chain))
	}

	chain = r.Resolve(ctx, Request{URL: srv.URL + "/json", FollowMetaRefresh: true})
	if len(chain) != 1 {
		t.Errorf("got %d hops for non-html body, want 1", len(chain))
	}

	chain = r.Resolve(ctx, Request{URL: srv.URL + "/both", FollowMetaRefresh: true})
	if len(chain) != 2 {
		t.Fatalf("got %d hops, want 2", len(chain))
	}
	if chain[1].URL != srv.URL+"/located" {
		t.Errorf("location should win over meta refresh, got %q", chain[1].URL)
	}
}

func TestResolve_MergesHeaders(t *testing.T) {
	var gotUA, gotAccept, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotCustom = r.Header.Get("X-Trace")
	}))
	defer srv.Close()

	headers := http.Header{}
	headers.Set("User-Agent", "valkyrie-test")
	headers.Set("X-Trace", "1")

	r := &Resolver{Client: NewClient(ClientConfig{})}
	r.Resolve(context.Background(), Request{URL: srv.URL, Headers: headers})

	if gotUA != "valkyrie-test" {
		t.Errorf("user agent = %q, want %q", gotUA, "valkyrie-test")
	}
	if gotAccept != "*/*" {
		t.Errorf("accept = %q, want default %q", gotAccept, "*/*")
	}
	if gotCustom != "1" {
		t.Errorf("x-trace = %q, want %q", gotCustom, "1")
	}
}

func TestResolve_NilClientUsesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/end", http.StatusTemporaryRedirect)
		}
	}))
	defer srv.Close()

	var r Resolver
	chain := r.Resolve(context.Background(), Request{URL: srv.URL + "/"})
	if len(chain) != 2 {
		t.Fatalf("got %d hops, want 2", len(chain))
	}
}

func TestResolve_CaseInsensitiveLocation(t *testing.T) {
	var calls []string
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		calls = append(calls, r.URL.String())
		if r.URL.Path == "/first" {
			return fakeResponse(http.StatusFound, http.Header{"location": {"/second"}}, ""), nil
		}
		return fakeResponse(http.StatusOK, nil, ""), nil
	})

	chain := (&Resolver{Client: doer}).Resolve(context.Background(), Request{URL: "http://example.com/first"})
	if len(chain) != 2 {
		t.Fatalf("got %d hops, want 2", len(chain))
	}
	if calls[1] != "http://example.com/second" {
		t.Errorf("second request = %q, want %q", calls[1], "http://example.com/second")
	}
	if chain[0].Response.Reason != "Found" {
		t.Errorf("reason = %q, want %q", chain[0].Response.Reason, "Found")
	}
}

func TestResolve_EmptyLocationEndsChain(t *testing.T) {
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		return fakeResponse(http.StatusFound, http.Header{"Location": {""}}, ""), nil
	})

	chain := (&Resolver{Client: doer}).Resolve(context.Background(), Request{URL: "http://example.com/"})
	if len(chain) != 1 {
		t.Errorf("got %d hops, want 1", len(chain))
	}
}

func TestResolve_TransportErrorEndsChain(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return fakeResponse(http.StatusMovedPermanently, http.Header{"Location": {"https://other.example/"}}, ""), nil
		}
		return nil, boom
	})

	chain := (&Resolver{Client: doer}).Resolve(context.Background(), Request{URL: "http://example.com/"})
	if len(chain) != 2 {
		t.Fatalf("got %d hops, want 2", len(chain))
	}
	last := chain.Final()
	if last.URL != "https://other.example/" {
		t.Errorf("failed hop url = %q", last.URL)
	}
	if !errors.Is(last.Err, boom) {
		t.Errorf("err = %v, want %v", last.Err, boom)
	}
	if last.Response != nil {
		t.Error("failed hop should carry no response")
	}
	if !chain.Failed() {
		t.Error("chain should be failed")
	}
	if calls != 2 {
		t.Errorf("got %d requests, want 2", calls)
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
func (failingBody) Close() error             { return nil }

func TestResolve_FirstRequestFails(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")}
	var calls int
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, refused
	})

	start := "http://example.com/start"
	chain := (&Resolver{Client: doer}).Resolve(context.Background(), Request{URL: start})
	if len(chain) != 1 {
		t.Fatalf("got %d hops, want 1", len(chain))
	}
	if chain[0].URL != start {
		t.Errorf("hop url = %q, want %q", chain[0].URL, start)
	}
	if !errors.Is(chain[0].Err, refused) {
		t.Errorf("err = %v, want %v", chain[0].Err, refused)
	}
	if chain[0].Response != nil {
		t.Error("failed hop should carry no response")
	}
	if got := Describe(chain[0].Err); got != "Connection refused." {
		t.Errorf("Describe = %q, want %q", got, "Connection refused.")
	}
	if calls != 1 {
		t.Errorf("got %d requests, want 1", calls)
	}
}

func TestResolve_BodyReadErrorIsFailure(t *testing.T) {
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		resp := fakeResponse(http.StatusOK, nil, "")
		resp.Body = failingBody{}
		return resp, nil
	})

	chain := (&Resolver{Client: doer}).Resolve(context.Background(), Request{URL: "http://example.com/"})
	if len(chain) != 1 || chain[0].Err == nil {
		t.Fatalf("expected a single failed hop, got %+v", chain)
	}
}

func TestResolve_MalformedStartURL(t *testing.T) {
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request should be issued")
		return nil, nil
	})

	chain := (&Resolver{Client: doer}).Resolve(context.Background(), Request{URL: "://bad"})
	if len(chain) != 1 {
		t.Fatalf("got %d hops, want 1", len(chain))
	}
	if chain[0].URL != "://bad" || chain[0].Err == nil {
		t.Errorf("unexpected hop: %+v", chain[0])
	}
}

func TestResolve_MaxHops(t *testing.T) {
	var calls int
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return fakeResponse(http.StatusFound, http.Header{"Location": {"/loop"}}, ""), nil
	})

	chain := (&Resolver{Client: doer}).Resolve(context.Background(), Request{URL: "http://example.com/loop", MaxHops: 3})
	if calls != 3 {
		t.Errorf("got %d requests, want 3", calls)
	}
	if len(chain) != 4 {
		t.Fatalf("got %d hops, want 4", len(chain))
	}
	last := chain.Final()
	if !errors.Is(last.Err, ErrTooManyRedirects) {
		t.Errorf("err = %v, want ErrTooManyRedirects", last.Err)
	}
	if Describe(last.Err) != TooManyRedirectsErrorMessage {
		t.Errorf("describe = %q", Describe(last.Err))
	}
}

func TestResolve_TimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := &Resolver{Client: NewClient(ClientConfig{})}
	chain := r.Resolve(context.Background(), Request{URL: srv.URL, Timeout: 50 * time.Millisecond})
	if len(chain) != 1 {
		t.Fatalf("got %d hops, want 1", len(chain))
	}
	if got := Classify(chain[0].Err); got != KindTimeout {
		t.Errorf("kind = %v, want timeout (err: %v)", got, chain[0].Err)
	}
}

func TestHop_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Hop{URL: "http://x", Err: ErrTooManyRedirects})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"failure":"too_many_redirects"`) {
		t.Errorf("missing failure kind in %s", s)
	}
	if !strings.Contains(s, `"error":"Too many redirects."`) {
		t.Errorf("missing error message in %s", s)
	}
	if strings.Contains(s, `"response"`) {
		t.Errorf("failed hop should omit response: %s", s)
	}
}

func TestProxyFunc(t *testing.T) {
	fn := proxyFunc(map[string]string{"https": "http://secure:8080", "all": "http://fallback:3128"})

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	u, err := fn(req)
	if err != nil || u.Host != "secure:8080" {
		t.Errorf("https proxy = %v, %v", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com", nil)
	u, err = fn(req)
	if err != nil || u.Host != "fallback:3128" {
		t.Errorf("http proxy = %v, %v", u, err)
	}
}

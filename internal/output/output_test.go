package output

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/vulnverified/valkyrie/internal/dnslookup"
	"github.com/vulnverified/valkyrie/internal/engine"
	"github.com/vulnverified/valkyrie/internal/redirect"
	"github.com/vulnverified/valkyrie/internal/virustotal"
	"github.com/vulnverified/valkyrie/internal/whois"
)

func testChain() redirect.Chain {
	return redirect.Chain{
		{
			URL: "http://a.test",
			Response: &redirect.Response{
				StatusCode: 301,
				Reason:     "Moved Permanently",
				Proto:      11,
				Header: http.Header{
					"Location": {"https://a.test/"},
					"X-Custom": {"x"},
				},
			},
		},
		{URL: "https://a.test/", Err: redirect.ErrTooManyRedirects},
	}
}

func TestWriteChain(t *testing.T) {
	var buf bytes.Buffer
	WriteChain(&buf, testChain(), ChainOptions{NoColor: true})

	want := "-> http://a.test\n" +
		"   HTTP/1.1 - 301 - Moved Permanently\n" +
		"   Location: https://a.test/\n" +
		">> https://a.test/\n" +
		"   Too many redirects.\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteChain_ShowAllHeaders(t *testing.T) {
	var buf bytes.Buffer
	WriteChain(&buf, testChain(), ChainOptions{NoColor: true, ShowAllHeaders: true})

	if !strings.Contains(buf.String(), "   X-Custom: x\n") {
		t.Errorf("expected X-Custom header in output:\n%s", buf.String())
	}
}

func TestWriteChain_Truncate(t *testing.T) {
	long := strings.Repeat("a", 80)
	chain := redirect.Chain{{
		URL: "http://a.test",
		Response: &redirect.Response{
			StatusCode: 200,
			Reason:     "OK",
			Proto:      20,
			Header:     http.Header{"Server": {long}},
		},
	}}

	tests := []struct {
		name       string
		noTruncate bool
		want       string
	}{
		{"truncated", false, "   Server: " + strings.Repeat("a", 70) + "...\n"},
		{"full", true, "   Server: " + long + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WriteChain(&buf, chain, ChainOptions{NoColor: true, NoTruncate: tt.noTruncate})
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("missing %q in:\n%s", tt.want, buf.String())
			}
			if !strings.Contains(buf.String(), "HTTP/2.0 - 200 - OK") {
				t.Errorf("missing status line in:\n%s", buf.String())
			}
		})
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := strings.Repeat("a", 69) + "étail"

	got := truncate(s, HeaderTruncateLength)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("a", 69) + "é..."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := truncate("héllo", 10); got != "héllo" {
		t.Errorf("short value changed: %q", got)
	}
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	WriteRecords(&buf, "example.com", []dnslookup.Record{
		{Type: "A", Value: "93.184.216.34"},
		{Type: "MX", Value: "mail.example.com"},
	}, true)

	want := "> example.com\n" +
		"  A : 93.184.216.34\n" +
		"  MX: mail.example.com\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteRecords_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteRecords(&buf, "nx.example", nil, true)

	want := "> nx.example\n  No records found.\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteRecords_Table(t *testing.T) {
	var buf bytes.Buffer
	WriteRecords(&buf, "example.com", []dnslookup.Record{{Type: "TXT", Value: "v=spf1 -all"}}, false)

	out := buf.String()
	for _, want := range []string{"example.com", "TXT", "v=spf1 -all"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteFields(t *testing.T) {
	var buf bytes.Buffer
	WriteFields(&buf, "8.8.8.8", []Field{
		{"ip", "8.8.8.8"},
		{"country", "US"},
	}, true)

	want := "> 8.8.8.8\n" +
		"  ip     : 8.8.8.8\n" +
		"  country: US\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteDomainWhois(t *testing.T) {
	var buf bytes.Buffer
	WriteDomainWhois(&buf, "example.com", &whois.DomainRecord{
		Domain:      "example.com",
		Registrar:   "Example Registrar",
		Status:      []string{"clientTransferProhibited https://icann.org/epp#clientTransferProhibited"},
		Emails:      []string{"abuse@example.com"},
		City:        "Springfield",
		Country:     "US",
		CreatedDate: "1995-08-14",
		NameServers: []string{"a.iana-servers.net"},
	}, true)

	out := buf.String()
	for _, want := range []string{
		"> example.com\n",
		"   Registrar: Example Registrar\n",
		"   Status: clientTransferProhibited\n",
		"   Emails:\n      - abuse@example.com\n",
		"   Name: Unknown\n",
		"   Address: Springfield, US\n",
		"   Creation Date: 1995-08-14\n",
		"   Expiration Date: Unknown\n",
		"   Name Servers:\n      - a.iana-servers.net\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteIPWhois(t *testing.T) {
	var buf bytes.Buffer
	WriteIPWhois(&buf, "8.8.8.8", &whois.IPRecord{
		IP:         "8.8.8.8",
		ASN:        "15169",
		ASNCountry: "US",
		Networks: []whois.Network{{
			Name:   "GOGL",
			Handle: "NET-8-8-8-0-2",
			CIDR:   "8.8.8.0/24",
			Range:  "8.8.8.0 - 8.8.8.255",
		}},
	}, true)

	out := buf.String()
	for _, want := range []string{
		"   ASN: 15169 (US)\n",
		"   CIDR: Unknown\n",
		"      - GOGL (NET-8-8-8-0-2)\n",
		"        Netrange: (8.8.8.0 - 8.8.8.255) - 256 Hosts\n",
		"        Emails: Unknown\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteVT(t *testing.T) {
	rep := &virustotal.Report{
		Type:       "url",
		Permalink:  "https://www.virustotal.com/gui/url/abc",
		Stats:      virustotal.Stats{Malicious: 2, Harmless: 60},
		Categories: []string{"phishing"},
		Results: []virustotal.EngineResult{
			{Engine: "EngineA", Category: "malicious", Result: "phishing"},
			{Engine: "B", Category: "harmless", Result: "clean"},
			{Engine: "EngineC", Category: "malicious"},
		},
	}

	var short bytes.Buffer
	WriteVTSummary(&short, "http://bad.test", rep, true)
	wantShort := "> http://bad.test\n  VT: https://www.virustotal.com/gui/url/abc - 2 hits (phishing)\n"
	if got := short.String(); got != wantShort {
		t.Errorf("got %q, want %q", got, wantShort)
	}

	var full bytes.Buffer
	WriteVTReport(&full, "http://bad.test", rep, true)
	out := full.String()
	for _, want := range []string{
		"  The url has been flagged 2/62 times.\n",
		"  Sources:\n",
		"    EngineA : phishing\n",
		"    EngineC : malicious\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "clean") {
		t.Errorf("harmless engine should not be listed:\n%s", out)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	report := &engine.Report[redirect.Chain]{
		Tool:  "urlcheck",
		Items: []engine.Item[redirect.Chain]{{Target: "http://a.test", Result: testChain()}},
	}
	if err := WriteJSON(&buf, report); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded struct {
		Tool  string `json:"tool"`
		Items []struct {
			Result []struct {
				URL     string `json:"url"`
				Failure string `json:"failure"`
			} `json:"result"`
		} `json:"items"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if decoded.Tool != "urlcheck" {
		t.Errorf("tool = %q, want urlcheck", decoded.Tool)
	}
	hops := decoded.Items[0].Result
	if len(hops) != 2 {
		t.Fatalf("got %d hops, want 2", len(hops))
	}
	if hops[1].Failure != "too_many_redirects" {
		t.Errorf("failure = %q, want too_many_redirects", hops[1].Failure)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		verbosity int
		want      log.Level
	}{
		{0, log.ErrorLevel},
		{1, log.WarnLevel},
		{2, log.InfoLevel},
		{3, log.DebugLevel},
		{5, log.DebugLevel},
	}
	for _, tt := range tests {
		logger := NewLogger(&bytes.Buffer{}, tt.verbosity, true)
		if got := logger.GetLevel(); got != tt.want {
			t.Errorf("verbosity %d: got %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestProgress_QuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(NewLogger(&buf, 0, true))
	p.Stage(1, 1, "Checking")
	p.Detail("[1/1] a.test")
	p.Warn("a.test: failed")
	p.Complete()

	if buf.Len() != 0 {
		t.Errorf("expected no output at verbosity 0, got %q", buf.String())
	}

	buf.Reset()
	p = NewProgress(NewLogger(&buf, 1, true))
	p.Warn("a.test: failed")
	if !strings.Contains(buf.String(), "a.test: failed") {
		t.Errorf("expected warning in output, got %q", buf.String())
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, "dnscheck", engine.Summary{Targets: 3, Succeeded: 2, Failed: 1}, true)

	want := "Checked: 3 targets with dnscheck, 2 ok, 1 failed\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

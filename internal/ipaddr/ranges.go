package ipaddr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/vulnverified/valkyrie/internal/cache"
	"go4.org/netipx"
)

const (
	ProviderTor        = "tor"
	ProviderAWS        = "aws"
	ProviderCloudflare = "cloudflare"
	ProviderFastly     = "fastly"

	rangesTTL     = time.Hour
	rangesMaxBody = 16 * 1024 * 1024
)

// ProviderNames lists the providers Providers checks, in output order.
var ProviderNames = []string{ProviderTor, ProviderAWS, ProviderCloudflare, ProviderFastly}

// Endpoints are the published range lists.
type Endpoints struct {
	Tor          string
	AWS          string
	CloudflareV4 string
	CloudflareV6 string
	Fastly       string
}

var DefaultEndpoints = Endpoints{
	Tor:          "https://check.torproject.org/cgi-bin/TorBulkExitList.py",
	AWS:          "https://ip-ranges.amazonaws.com/ip-ranges.json",
	CloudflareV4: "https://www.cloudflare.com/ips-v4/#",
	CloudflareV6: "https://www.cloudflare.com/ips-v6/#",
	Fastly:       "https://api.fastly.com/public-ip-list",
}

var ErrUnknownProvider = errors.New("unknown provider")

// Ranges checks addresses against provider range lists. Each list is
// fetched once and kept for an hour.
type Ranges struct {
	Client    *http.Client
	Endpoints Endpoints
	sets      *cache.TTL[string, *netipx.IPSet]
}

// NewRanges returns a checker over the default endpoints.
func NewRanges(client *http.Client) *Ranges {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Ranges{
		Client:    client,
		Endpoints: DefaultEndpoints,
		sets:      cache.New[string, *netipx.IPSet](len(ProviderNames), rangesTTL),
	}
}

// Set returns the address set for provider.
func (r *Ranges) Set(ctx context.Context, provider string) (*netipx.IPSet, error) {
	return r.sets.GetOrCompute(provider, func() (*netipx.IPSet, error) {
		return r.load(ctx, provider)
	})
}

// Contains reports whether ip belongs to provider.
func (r *Ranges) Contains(ctx context.Context, provider, ip string) (bool, error) {
	addr, ok := parse(ip)
	if !ok {
		return false, nil
	}
	set, err := r.Set(ctx, provider)
	if err != nil {
		return false, err
	}
	return set.Contains(addr), nil
}

// Providers returns the providers whose ranges contain ip. Lists that fail
// to load are skipped and reported in the returned error.
func (r *Ranges) Providers(ctx context.Context, ip string) ([]string, error) {
	var (
		matched []string
		errs    []error
	)
	for _, p := range ProviderNames {
		ok, err := r.Contains(ctx, p, ip)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if ok {
			matched = append(matched, p)
		}
	}
	return matched, errors.Join(errs...)
}

// IsTorNode reports whether ip is a Tor exit node. With cached false the
// exit list is fetched again.
func (r *Ranges) IsTorNode(ctx context.Context, ip string, cached bool) (bool, error) {
	if !cached {
		r.sets.Invalidate(ProviderTor)
	}
	return r.Contains(ctx, ProviderTor, ip)
}

// Invalidate drops every cached list.
func (r *Ranges) Invalidate() {
	r.sets.Purge()
}

func (r *Ranges) load(ctx context.Context, provider string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder

	switch provider {
	case ProviderTor:
		body, err := r.get(ctx, r.Endpoints.Tor)
		if err != nil {
			return nil, err
		}
		for _, line := range nonEmptyLines(body) {
			if addr, ok := parse(line); ok {
				b.Add(addr)
			}
		}
	case ProviderAWS:
		body, err := r.get(ctx, r.Endpoints.AWS)
		if err != nil {
			return nil, err
		}
		var doc struct {
			Prefixes []struct {
				IPPrefix string `json:"ip_prefix"`
			} `json:"prefixes"`
			IPv6Prefixes []struct {
				IPv6Prefix string `json:"ipv6_prefix"`
			} `json:"ipv6_prefixes"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decoding AWS ranges: %w", err)
		}
		for _, p := range doc.Prefixes {
			addPrefix(&b, p.IPPrefix)
		}
		for _, p := range doc.IPv6Prefixes {
			addPrefix(&b, p.IPv6Prefix)
		}
	case ProviderCloudflare:
		for _, endpoint := range []string{r.Endpoints.CloudflareV4, r.Endpoints.CloudflareV6} {
			body, err := r.get(ctx, endpoint)
			if err != nil {
				return nil, err
			}
			for _, line := range nonEmptyLines(body) {
				addPrefix(&b, line)
			}
		}
	case ProviderFastly:
		body, err := r.get(ctx, r.Endpoints.Fastly)
		if err != nil {
			return nil, err
		}
		var doc struct {
			Addresses     []string `json:"addresses"`
			IPv6Addresses []string `json:"ipv6_addresses"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decoding Fastly ranges: %w", err)
		}
		for _, c := range append(doc.Addresses, doc.IPv6Addresses...) {
			addPrefix(&b, c)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	return b.IPSet()
}

func (r *Ranges) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, rangesMaxBody))
}

func addPrefix(b *netipx.IPSetBuilder, cidr string) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return
	}
	b.AddPrefix(prefix.Masked())
}

func nonEmptyLines(body []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Package dnslookup queries DNS records from a fixed set of public
// resolvers.
package dnslookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const defaultTimeout = 5 * time.Second

// DefaultNameservers are tried in order until one answers.
var DefaultNameservers = []string{
	"1.1.1.1", "1.0.0.1",                 // Cloudflare
	"8.8.8.8", "8.8.4.4",                 // Google
	"9.9.9.9", "149.112.112.112",         // Quad9
	"208.67.222.222", "208.67.220.220",   // OpenDNS
	"8.26.56.26", "8.20.247.20",          // Comodo Secure
	"185.225.168.168", "185.228.169.168", // CleanBrowsing
	"76.76.19.19", "76.223.122.150",      // Alternate
	"176.103.130.130", "176.103.130.131", // AdGuard
	"64.6.64.6", "64.6.65.6",             // Verisign
}

// DefaultRecordTypes are queried when the caller names none.
var DefaultRecordTypes = []string{"A", "AAAA", "MX", "CNAME", "PTR"}

var ErrInvalidRecordType = errors.New("invalid record type")

// Record is one answer value.
type Record struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RecordTypes returns every record type name the resolver accepts, sorted.
func RecordTypes() []string {
	types := make([]string, 0, len(dns.StringToType))
	for name := range dns.StringToType {
		if IsValidRecordType(name) {
			types = append(types, name)
		}
	}
	sort.Strings(types)
	return types
}

// IsValidRecordType reports whether rtype names a queryable record type.
func IsValidRecordType(rtype string) bool {
	t, ok := dns.StringToType[strings.ToUpper(rtype)]
	if !ok {
		return false
	}
	switch t {
	case dns.TypeNone, dns.TypeReserved, dns.TypeAXFR, dns.TypeIXFR, dns.TypeOPT:
		return false
	}
	return true
}

// Resolver sends queries to Nameservers in order.
type Resolver struct {
	Client      *dns.Client
	Nameservers []string
}

// New returns a Resolver over the default nameservers.
func New(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		Client:      &dns.Client{Timeout: timeout},
		Nameservers: DefaultNameservers,
	}
}

// Lookup returns the rtype records for name. A PTR lookup for an IP
// address queries its reverse name. NXDOMAIN and empty answers are not
// errors.
func (r *Resolver) Lookup(ctx context.Context, name, rtype string) ([]Record, error) {
	rtype = strings.ToUpper(rtype)
	if !IsValidRecordType(rtype) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRecordType, rtype)
	}
	qtype := dns.StringToType[rtype]

	qname := dns.Fqdn(name)
	if _, err := netip.ParseAddr(name); err == nil && qtype == dns.TypePTR {
		arpa, err := dns.ReverseAddr(name)
		if err != nil {
			return nil, fmt.Errorf("reverse name for %s: %w", name, err)
		}
		qname = arpa
	}

	msg := new(dns.Msg)
	msg.SetQuestion(qname, qtype)
	msg.RecursionDesired = true

	resp, err := r.exchange(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", rtype, name, err)
	}
	if resp.Rcode == dns.RcodeNameError {
		return nil, nil
	}

	var records []Record
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		value, ok := recordValue(rr)
		if !ok {
			continue
		}
		records = append(records, Record{Type: rtype, Value: value})
	}
	return records, nil
}

// LookupAll runs Lookup for each type and concatenates the results.
// Failed types are reported together; records from the others are still
// returned.
func (r *Resolver) LookupAll(ctx context.Context, name string, types []string) ([]Record, error) {
	if len(types) == 0 {
		types = DefaultRecordTypes
	}
	var (
		records []Record
		errs    []error
	)
	for _, t := range types {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		recs, err := r.Lookup(ctx, name, t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, recs...)
	}
	return records, errors.Join(errs...)
}

func (r *Resolver) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	client := r.Client
	if client == nil {
		client = &dns.Client{Timeout: defaultTimeout}
	}
	servers := r.Nameservers
	if len(servers) == 0 {
		servers = DefaultNameservers
	}

	var lastErr error
	for _, ns := range servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		addr := serverAddr(ns)

		resp, _, err := client.ExchangeContext(ctx, msg, addr)
		if err == nil && resp.Truncated && client.Net == "" {
			tcp := *client
			tcp.Net = "tcp"
			resp, _, err = tcp.ExchangeContext(ctx, msg, addr)
		}
		if err != nil {
			lastErr = fmt.Errorf("nameserver %s: %w", ns, err)
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess, dns.RcodeNameError:
			return resp, nil
		}
		lastErr = fmt.Errorf("nameserver %s: %s", ns, dns.RcodeToString[resp.Rcode])
	}
	if lastErr == nil {
		lastErr = errors.New("no nameservers")
	}
	return nil, lastErr
}

func serverAddr(ns string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(ns, "53")
}

// recordValue renders the data part of rr. MX records keep only the
// exchange host and a null MX is dropped.
func recordValue(rr dns.RR) (string, bool) {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String(), true
	case *dns.AAAA:
		return v.AAAA.String(), true
	case *dns.CNAME:
		return trimDot(v.Target), true
	case *dns.PTR:
		return trimDot(v.Ptr), true
	case *dns.NS:
		return trimDot(v.Ns), true
	case *dns.MX:
		if v.Mx == "." || v.Mx == "" {
			return "", false
		}
		return trimDot(v.Mx), true
	case *dns.TXT:
		return strings.Join(v.Txt, ""), true
	}
	return strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String())), true
}

func trimDot(s string) string {
	if s == "." {
		return s
	}
	return strings.TrimSuffix(s, ".")
}

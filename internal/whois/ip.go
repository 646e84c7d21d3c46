package whois

import (
	"bufio"
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/vulnverified/valkyrie/internal/ipaddr"
	"go4.org/netipx"
)

// IPRecord is the registry allocation data for an address.
type IPRecord struct {
	IP          string    `json:"ip"`
	ASN         string    `json:"asn,omitempty"`
	ASNCountry  string    `json:"asn_country_code,omitempty"`
	ASNCIDR     string    `json:"asn_cidr,omitempty"`
	Description string    `json:"description,omitempty"`
	Networks    []Network `json:"nets"`
	Raw         string    `json:"-"`
}

// Network is one allocation block from the registry response.
type Network struct {
	Name       string   `json:"name"`
	Handle     string   `json:"handle,omitempty"`
	CIDR       string   `json:"cidr,omitempty"`
	Range      string   `json:"range,omitempty"`
	Address    string   `json:"address,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	Country    string   `json:"country,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Emails     []string `json:"emails,omitempty"`
}

// IP looks up the registry data for a public address.
func (c *Client) IP(ctx context.Context, ip string) (*IPRecord, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.IsGlobalUnicast() || ipaddr.IsPrivate(ip) {
		return nil, ErrNoData
	}

	raw, err := c.lookup(ctx, addr.String())
	if err != nil {
		return nil, fmt.Errorf("whois %s: %w", ip, err)
	}

	rec := ParseIP(raw)
	if len(rec.Networks) == 0 {
		return nil, ErrNoData
	}
	rec.IP = addr.String()
	return rec, nil
}

// ParseIP extracts networks from ARIN or RIPE style registry text.
func ParseIP(raw string) *IPRecord {
	rec := &IPRecord{Raw: raw}
	var cur *Network
	var curAddr []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Address = strings.Join(curAddr, " ")
		if cur.CIDR == "" {
			cur.CIDR = rangeCIDR(cur.Range)
		}
		if cur.Name != "" {
			rec.Networks = append(rec.Networks, *cur)
		}
		cur, curAddr = nil, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch key {
		case "netrange", "inetnum", "inet6num":
			flush()
			cur = &Network{Range: normalizeRange(value)}
			continue
		case "originas", "origin":
			if rec.ASN == "" {
				rec.ASN = strings.TrimPrefix(strings.ToUpper(value), "AS")
			}
		case "descr", "orgname":
			if rec.Description == "" {
				rec.Description = value
			}
		case "country":
			if rec.ASNCountry == "" {
				rec.ASNCountry = value
			}
		case "cidr", "route", "route6":
			if rec.ASNCIDR == "" {
				rec.ASNCIDR = value
			}
		}

		if cur == nil {
			continue
		}
		switch key {
		case "netname":
			cur.Name = value
		case "nethandle":
			cur.Handle = value
		case "cidr", "route", "route6":
			if cur.CIDR == "" {
				cur.CIDR = value
			}
		case "address":
			curAddr = append(curAddr, value)
		case "city":
			cur.City = value
		case "stateprov":
			cur.State = value
		case "postalcode":
			cur.PostalCode = value
		case "country":
			if cur.Country == "" {
				cur.Country = value
			}
		default:
			if strings.Contains(key, "email") || strings.Contains(key, "e-mail") || key == "abuse-mailbox" {
				cur.Emails = appendUnique(cur.Emails, strings.ToLower(value))
			}
		}
	}
	flush()

	if rec.ASNCIDR == "" && len(rec.Networks) > 0 {
		rec.ASNCIDR = rec.Networks[0].CIDR
	}
	return rec
}

func normalizeRange(v string) string {
	from, to, ok := strings.Cut(v, "-")
	if !ok {
		return v
	}
	return strings.TrimSpace(from) + " - " + strings.TrimSpace(to)
}

// rangeCIDR converts "a - b" into the prefixes covering it.
func rangeCIDR(r string) string {
	from, to, ok := strings.Cut(r, " - ")
	if !ok {
		if p, err := netip.ParsePrefix(r); err == nil {
			return p.String()
		}
		return ""
	}
	start, err1 := netip.ParseAddr(from)
	end, err2 := netip.ParseAddr(to)
	if err1 != nil || err2 != nil {
		return ""
	}
	rng := netipx.IPRangeFrom(start, end)
	if !rng.IsValid() {
		return ""
	}
	var parts []string
	for _, p := range rng.Prefixes() {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ", ")
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

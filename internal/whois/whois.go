// Package whois looks up registration data for domains and IP addresses.
package whois

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 250 * time.Millisecond
)

// ErrNoData is returned when the registry has nothing for the query.
var ErrNoData = errors.New("no whois data")

// LookupFunc returns the raw WHOIS text for query.
type LookupFunc func(ctx context.Context, query string) (string, error)

// Client queries WHOIS servers with retries.
type Client struct {
	Lookup     LookupFunc
	MaxRetries int
	Backoff    time.Duration
}

// New returns a Client that follows registry referrals.
func New(timeout time.Duration) *Client {
	wc := whois.NewClient().SetTimeout(timeout)
	return &Client{
		Lookup: func(ctx context.Context, query string) (string, error) {
			return withContext(ctx, query, func(q string) (string, error) {
				return wc.Whois(q)
			})
		},
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
	}
}

// DomainRecord is the parsed registration of a domain.
type DomainRecord struct {
	Domain         string   `json:"domain"`
	Registrar      string   `json:"registrar,omitempty"`
	Organization   string   `json:"organization,omitempty"`
	Status         []string `json:"status,omitempty"`
	Emails         []string `json:"emails,omitempty"`
	Name           string   `json:"name,omitempty"`
	Address        string   `json:"address,omitempty"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	PostalCode     string   `json:"postal_code,omitempty"`
	Country        string   `json:"country,omitempty"`
	CreatedDate    string   `json:"creation_date,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"`
	UpdatedDate    string   `json:"updated_date,omitempty"`
	NameServers    []string `json:"name_servers,omitempty"`
	Raw            string   `json:"-"`
}

// Domain looks up domain, retrying until the registry answers for that
// exact domain. If every attempt answers for another name the last answer
// is returned.
func (c *Client) Domain(ctx context.Context, domain string) (*DomainRecord, error) {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))

	var (
		last    *DomainRecord
		lastErr error
	)
	for attempt := 1; attempt <= c.retries(); attempt++ {
		raw, err := c.lookup(ctx, domain)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			info, err := whoisparser.Parse(raw)
			switch {
			case errors.Is(err, whoisparser.ErrNotFoundDomain):
				return nil, ErrNoData
			case err != nil:
				lastErr = err
			default:
				last = newDomainRecord(info, raw)
				if strings.EqualFold(last.Domain, domain) {
					return last, nil
				}
			}
		}

		if attempt < c.retries() {
			if err := sleep(ctx, c.Backoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}

	if last != nil {
		return last, nil
	}
	if lastErr == nil {
		return nil, ErrNoData
	}
	return nil, fmt.Errorf("whois %s: %w", domain, lastErr)
}

func (c *Client) retries() int {
	if c.MaxRetries <= 0 {
		return 1
	}
	return c.MaxRetries
}

func (c *Client) lookup(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Lookup == nil {
		return "", errors.New("whois: no lookup function")
	}
	return c.Lookup(ctx, query)
}

// withContext runs a blocking query and gives up when ctx ends. The query
// goroutine finishes on its own once the client timeout fires.
func withContext(ctx context.Context, query string, fn func(string) (string, error)) (string, error) {
	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := fn(query)
		done <- result{raw, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.raw, r.err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newDomainRecord(info whoisparser.WhoisInfo, raw string) *DomainRecord {
	rec := &DomainRecord{Raw: raw}

	if d := info.Domain; d != nil {
		rec.Domain = d.Domain
		rec.Status = d.Status
		rec.NameServers = d.NameServers
		rec.CreatedDate = d.CreatedDate
		rec.UpdatedDate = d.UpdatedDate
		rec.ExpirationDate = d.ExpirationDate
	}
	if r := info.Registrar; r != nil {
		rec.Registrar = r.Name
	}
	if r := info.Registrant; r != nil {
		rec.Name = r.Name
		rec.Organization = r.Organization
		rec.Address = strings.Join(strings.Fields(r.Street), " ")
		rec.City = r.City
		rec.State = r.Province
		rec.PostalCode = r.PostalCode
		rec.Country = r.Country
	}

	seen := make(map[string]bool)
	for _, c := range []*whoisparser.Contact{info.Registrar, info.Registrant, info.Administrative, info.Technical, info.Billing} {
		if c == nil || c.Email == "" {
			continue
		}
		email := strings.ToLower(c.Email)
		if !seen[email] {
			seen[email] = true
			rec.Emails = append(rec.Emails, email)
		}
	}
	return rec
}

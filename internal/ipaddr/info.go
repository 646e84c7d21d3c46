package ipaddr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultInfoEndpoint is formatted with the address being looked up.
const DefaultInfoEndpoint = "https://ipinfo.io/%s/json"

var ErrInvalidIP = errors.New("invalid ip address")

// Info is the ipinfo.io summary for one address.
type Info struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname,omitempty"`
	Anycast  bool   `json:"anycast,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Loc      string `json:"loc,omitempty"`
	Org      string `json:"org,omitempty"`
	Postal   string `json:"postal,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Bogon    bool   `json:"bogon,omitempty"`
}

// Field is one display row.
type Field struct {
	Key   string
	Value string
}

// Fields returns the populated attributes in display order.
func (i *Info) Fields() []Field {
	all := []Field{
		{"ip", i.IP},
		{"hostname", i.Hostname},
		{"city", i.City},
		{"region", i.Region},
		{"country", i.Country},
		{"loc", i.Loc},
		{"org", i.Org},
		{"postal", i.Postal},
		{"timezone", i.Timezone},
	}
	if i.Anycast {
		all = append(all, Field{"anycast", strconv.FormatBool(i.Anycast)})
	}
	if i.Bogon {
		all = append(all, Field{"bogon", strconv.FormatBool(i.Bogon)})
	}

	fields := all[:0]
	for _, f := range all {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// InfoClient queries ipinfo.io.
type InfoClient struct {
	Client   *http.Client
	Endpoint string
	Token    string
}

// NewInfoClient returns a client for the public endpoint. token may be empty.
func NewInfoClient(client *http.Client, token string) *InfoClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &InfoClient{Client: client, Endpoint: DefaultInfoEndpoint, Token: token}
}

// Lookup returns the info record for ip.
func (c *InfoClient) Lookup(ctx context.Context, ip string) (*Info, error) {
	addr, ok := parse(ip)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	endpoint := fmt.Sprintf(c.Endpoint, url.PathEscape(addr.String()))
	if c.Token != "" {
		endpoint += "?token=" + url.QueryEscape(c.Token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipinfo %s: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipinfo %s: status %d", ip, resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding ipinfo response: %w", err)
	}
	return &info, nil
}

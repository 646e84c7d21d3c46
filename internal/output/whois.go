package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vulnverified/valkyrie/internal/ipaddr"
	"github.com/vulnverified/valkyrie/internal/whois"
)

const unknown = "Unknown"

// WriteDomainWhois prints the registration summary for a domain.
func WriteDomainWhois(w io.Writer, target string, rec *whois.DomainRecord, noColor bool) {
	writeTarget(w, target, noColor)

	registrar := orUnknown(rec.Registrar)
	if rec.Organization != "" {
		registrar = fmt.Sprintf("%s (%s)", registrar, rec.Organization)
	}
	fmt.Fprintf(w, "   Registrar: %s\n", registrar)

	status := unknown
	if len(rec.Status) > 0 {
		if f := strings.Fields(rec.Status[0]); len(f) > 0 {
			status = f[0]
		}
	}
	fmt.Fprintf(w, "   Status: %s\n", status)

	writeList(w, "   Emails:", "      - ", rec.Emails)
	fmt.Fprintf(w, "   Name: %s\n", orUnknown(rec.Name))
	fmt.Fprintf(w, "   Address: %s\n", joinAddress(rec.Address, rec.City, rec.State, rec.PostalCode, rec.Country))
	fmt.Fprintf(w, "   Creation Date: %s\n", orUnknown(rec.CreatedDate))
	fmt.Fprintf(w, "   Expiration Date: %s\n", orUnknown(rec.ExpirationDate))
	fmt.Fprintf(w, "   Updated Date: %s\n", orUnknown(rec.UpdatedDate))
	writeList(w, "   Name Servers:", "      - ", rec.NameServers)
}

// WriteIPWhois prints the registry allocation summary for an address.
func WriteIPWhois(w io.Writer, target string, rec *whois.IPRecord, noColor bool) {
	writeTarget(w, target, noColor)

	asn := orUnknown(rec.ASN)
	if rec.ASNCountry != "" {
		asn = fmt.Sprintf("%s (%s)", asn, rec.ASNCountry)
	}
	fmt.Fprintf(w, "   ASN: %s\n", asn)
	fmt.Fprintf(w, "   CIDR: %s\n", orUnknown(rec.ASNCIDR))
	fmt.Fprintf(w, "   Description: %s\n", orUnknown(rec.Description))

	fmt.Fprintln(w, "   Networks:")
	for _, n := range rec.Networks {
		name := orUnknown(n.Name)
		if n.Handle != "" {
			name = fmt.Sprintf("%s (%s)", name, n.Handle)
		}
		fmt.Fprintf(w, "      - %s\n", name)
		fmt.Fprintf(w, "        CIDR: %s\n", orUnknown(n.CIDR))
		fmt.Fprintf(w, "        Netrange: %s\n", netRange(n))
		fmt.Fprintf(w, "        Address: %s\n", joinAddress(n.Address, n.City, n.State, n.PostalCode, n.Country))
		writeList(w, "        Emails:", "          - ", n.Emails)
	}
}

func netRange(n whois.Network) string {
	if n.Range == "" {
		return unknown
	}
	first, _, _ := strings.Cut(n.CIDR, ",")
	size, err := ipaddr.NetSize(strings.TrimSpace(first))
	if err != nil {
		return n.Range
	}
	return fmt.Sprintf("(%s) - %s Hosts", n.Range, size.String())
}

func writeList(w io.Writer, header, prefix string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "%s %s\n", header, unknown)
		return
	}
	fmt.Fprintln(w, header)
	for _, item := range items {
		fmt.Fprintf(w, "%s%s\n", prefix, item)
	}
}

func joinAddress(address, city, state, postal, country string) string {
	var parts []string
	for _, p := range []string{address, city, strings.TrimSpace(state + " " + postal), country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return unknown
	}
	return strings.Join(parts, ", ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

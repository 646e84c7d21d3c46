// Package ipaddr classifies IP addresses and checks them against public
// provider ranges.
package ipaddr

import (
	"fmt"
	"math/big"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// PrivateRanges are the networks IsPrivate treats as non-routable.
var PrivateRanges = []string{
	"10.0.0.0/8",     // RFC1918
	"172.16.0.0/12",  // RFC1918
	"192.168.0.0/16", // RFC1918
	"100.64.0.0/10",  // RFC6598 shared address space
	"fc00::/7",       // RFC4193 unique local
}

var privateSet = mustSet(PrivateRanges)

func mustSet(cidrs []string) *netipx.IPSet {
	var b netipx.IPSetBuilder
	for _, c := range cidrs {
		b.AddPrefix(netip.MustParsePrefix(c))
	}
	set, err := b.IPSet()
	if err != nil {
		panic(err)
	}
	return set
}

func parse(ip string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// IsIPv4 reports whether ip is a valid IPv4 address.
func IsIPv4(ip string) bool {
	addr, ok := parse(ip)
	return ok && addr.Is4()
}

// IsIPv6 reports whether ip is a valid IPv6 address.
func IsIPv6(ip string) bool {
	addr, ok := parse(ip)
	return ok && addr.Is6()
}

// IsValid reports whether ip is a valid IPv4 or IPv6 address.
func IsValid(ip string) bool {
	_, ok := parse(ip)
	return ok
}

// IsPrivate reports whether ip falls in one of PrivateRanges.
func IsPrivate(ip string) bool {
	addr, ok := parse(ip)
	return ok && privateSet.Contains(addr)
}

// InCIDR reports whether ip is inside cidr. Invalid input is never inside.
func InCIDR(ip, cidr string) bool {
	addr, ok := parse(ip)
	if !ok {
		return false
	}
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return false
	}
	return prefix.Masked().Contains(addr)
}

// NetSize returns the number of addresses in cidr.
func NetSize(cidr string) (*big.Int, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", cidr, err)
	}
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	return new(big.Int).Lsh(big.NewInt(1), uint(hostBits)), nil
}

// Package ddns implements host address reconciliation: converging the
// provider's A and AAAA records of a host to the addresses its clients report.
package ddns

import (
	"net/netip"

	"github.com/miekg/dns"
)

// RecordType selects the address family a reconciler manages.
type RecordType int

const (
	RecordA RecordType = iota
	RecordAAAA
)

// RecordTypes lists every supported record type.
var RecordTypes = []RecordType{RecordA, RecordAAAA}

// String returns the DNS type name sent to the provider.
func (t RecordType) String() string {
	return dns.TypeToString[t.RRType()]
}

// RRType returns the DNS resource record type code.
func (t RecordType) RRType() uint16 {
	if t == RecordAAAA {
		return dns.TypeAAAA
	}
	return dns.TypeA
}

// Family returns "ipv4" or "ipv6".
func (t RecordType) Family() string {
	if t == RecordAAAA {
		return "ipv6"
	}
	return "ipv4"
}

// KeyPrefix returns the storage namespace of addresses of this type.
func (t RecordType) KeyPrefix() string {
	return "host-" + t.Family() + ":"
}

// ParseIP strictly parses a textual IPv4 or IPv6 address and reports which
// record type it belongs to. Zoned addresses are rejected since they cannot
// be published in DNS. IPv4-mapped IPv6 addresses are AAAA.
func ParseIP(s string) (netip.Addr, RecordType, bool) {
	ip, err := netip.ParseAddr(s)
	if err != nil || ip.Zone() != "" {
		return netip.Addr{}, 0, false
	}
	if ip.Is4() {
		return ip, RecordA, true
	}
	return ip, RecordAAAA, true
}

// Package resolve queries DNS servers directly to check whether a record
// change has propagated.
package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"github.com/rsclarke/ddnsd/internal/ddns"
)

// DefaultTimeout bounds a single exchange.
const DefaultTimeout = 5 * time.Second

// Lookup asks server for the addresses of name of type t. The server is a
// host with optional port; port 53 is assumed when absent. A truncated UDP
// answer is retried over TCP.
func Lookup(ctx context.Context, server, name string, t ddns.RecordType) ([]netip.Addr, error) {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), t.RRType())
	m.RecursionDesired = true

	c := &dns.Client{Net: "udp", Timeout: DefaultTimeout}
	in, _, err := c.ExchangeContext(ctx, m, server)
	if err == nil && in.Truncated {
		c.Net = "tcp"
		in, _, err = c.ExchangeContext(ctx, m, server)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s %s at %s: %w", t, name, server, err)
	}
	if in.Rcode != dns.RcodeSuccess && in.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("query %s %s at %s: %s", t, name, server, dns.RcodeToString[in.Rcode])
	}

	var addrs []netip.Addr
	for _, rr := range in.Answer {
		var ip net.IP
		switch v := rr.(type) {
		case *dns.A:
			ip = v.A
		case *dns.AAAA:
			ip = v.AAAA
		default:
			continue
		}
		if rr.Header().Rrtype != t.RRType() {
			continue
		}
		if a, ok := netip.AddrFromSlice(ip); ok {
			if t == ddns.RecordA {
				a = a.Unmap()
			}
			addrs = append(addrs, a)
		}
	}
	return addrs, nil
}

// Contains reports whether want is among addrs.
func Contains(addrs []netip.Addr, want netip.Addr) bool {
	for _, a := range addrs {
		if a == want {
			return true
		}
	}
	return false
}

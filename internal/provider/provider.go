// Package provider defines the narrow contract the reconciler uses to talk
// to a remote DNS provider, and a registry of named implementations.
package provider

import (
	"context"
	"errors"

	"github.com/miekg/dns"
)

// ErrUnauthorized is returned when the provider rejects the configured
// credentials. It is distinct from ordinary failures because it points to
// operator misconfiguration rather than a transient problem.
var ErrUnauthorized = errors.New("provider rejected credentials")

// RecordClient looks up, updates and creates single A/AAAA records.
//
// FindRecord returns "" when no record of that name and type exists.
// UpdateRecord returns false when the provider refused the update, for
// example because the id no longer exists. CreateRecord returns "" when the
// provider refused the creation. Errors are reserved for ErrUnauthorized and
// failures outside the provider's answers, such as transport errors.
type RecordClient interface {
	FindRecord(ctx context.Context, name, recordType string) (string, error)
	UpdateRecord(ctx context.Context, id, value string) (bool, error)
	CreateRecord(ctx context.Context, name, recordType, value string) (string, error)
}

// Zoned is implemented by clients bound to a single DNS zone.
type Zoned interface {
	// InZone reports whether name is the zone apex or a name below it.
	InZone(name string) bool
}

// InZone reports whether name equals zone or lies below it. Labels are
// compared whole and case-insensitively, so "evilexample.com" is not in
// "example.com".
func InZone(zone, name string) bool {
	if zone == "" || name == "" {
		return false
	}
	return dns.IsSubDomain(dns.Fqdn(zone), dns.Fqdn(name))
}

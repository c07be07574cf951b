// Package libdnsclient adapts any libdns provider to the record client used
// by the reconciler.
package libdnsclient

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/libdns/libdns"
	"github.com/rsclarke/ddnsd/internal/provider"
)

// Provider is the subset of libdns a zone backend must implement.
type Provider interface {
	libdns.RecordGetter
	libdns.RecordSetter
	libdns.RecordAppender
}

var (
	_ provider.RecordClient  = (*Client)(nil)
	_ provider.Zoned         = (*Client)(nil)
	_ libdns.RecordAppender = (*Client)(nil)
	_ libdns.RecordDeleter  = (*Client)(nil)
)

// Client manages address records of one zone. Record ids are "<type>/<name>"
// with the name relative to the zone, since libdns has no stable ids.
type Client struct {
	zone string
	ttl  time.Duration
	p    Provider
}

func New(zone string, ttl time.Duration, p Provider) *Client {
	if !strings.HasSuffix(zone, ".") {
		zone += "."
	}
	return &Client{zone: strings.ToLower(zone), ttl: ttl, p: p}
}

// Zone returns the fully qualified zone name.
func (c *Client) Zone() string {
	return c.zone
}

// InZone reports whether name is the zone apex or below it.
func (c *Client) InZone(name string) bool {
	return provider.InZone(c.zone, name)
}

// relative returns name relative to the zone, or false when name lies
// outside of it.
func (c *Client) relative(name string) (string, bool) {
	if !c.InZone(name) {
		return "", false
	}
	fqdn := strings.ToLower(strings.TrimSuffix(name, ".") + ".")
	return libdns.RelativeName(fqdn, c.zone), true
}

func recordID(recordType, relName string) string {
	return recordType + "/" + relName
}

func parseID(id string) (recordType, relName string, ok bool) {
	return strings.Cut(id, "/")
}

func (c *Client) lookup(ctx context.Context, recordType, relName string) (bool, error) {
	recs, err := c.p.GetRecords(ctx, c.zone)
	if err != nil {
		return false, fmt.Errorf("get records of %s: %w", c.zone, err)
	}
	for _, r := range recs {
		rr := r.RR()
		if strings.EqualFold(rr.Type, recordType) && strings.EqualFold(rr.Name, relName) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) FindRecord(ctx context.Context, name, recordType string) (string, error) {
	rel, ok := c.relative(name)
	if !ok {
		return "", nil
	}
	found, err := c.lookup(ctx, recordType, rel)
	if err != nil || !found {
		return "", err
	}
	return recordID(recordType, rel), nil
}

// UpdateRecord replaces every record of the id's name and type with a single
// record holding value. It reports false when no such record exists.
func (c *Client) UpdateRecord(ctx context.Context, id, value string) (bool, error) {
	recordType, rel, ok := parseID(id)
	if !ok || rel == "" {
		return false, nil
	}
	rec, ok := c.address(rel, recordType, value)
	if !ok {
		return false, nil
	}
	found, err := c.lookup(ctx, recordType, rel)
	if err != nil || !found {
		return false, err
	}
	if _, err := c.p.SetRecords(ctx, c.zone, []libdns.Record{rec}); err != nil {
		return false, fmt.Errorf("set %s: %w", id, err)
	}
	return true, nil
}

func (c *Client) CreateRecord(ctx context.Context, name, recordType, value string) (string, error) {
	rel, ok := c.relative(name)
	if !ok {
		return "", nil
	}
	rec, ok := c.address(rel, recordType, value)
	if !ok {
		return "", nil
	}
	if _, err := c.p.AppendRecords(ctx, c.zone, []libdns.Record{rec}); err != nil {
		return "", fmt.Errorf("append %s %s: %w", recordType, name, err)
	}
	return recordID(recordType, rel), nil
}

func (c *Client) address(relName, recordType, value string) (libdns.Address, bool) {
	ip, err := netip.ParseAddr(value)
	if err != nil {
		return libdns.Address{}, false
	}
	if (recordType == "A") != ip.Is4() {
		return libdns.Address{}, false
	}
	return libdns.Address{Name: relName, TTL: c.ttl, IP: ip}, true
}

// AppendRecords passes records through to the backend so ACME challenges can
// be published in the same zone.
func (c *Client) AppendRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	return c.p.AppendRecords(ctx, zone, recs)
}

// DeleteRecords passes through to the backend when it supports deletion.
func (c *Client) DeleteRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	d, ok := c.p.(libdns.RecordDeleter)
	if !ok {
		return nil, errors.New("dns backend does not support deleting records")
	}
	return d.DeleteRecords(ctx, zone, recs)
}

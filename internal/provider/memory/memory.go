// Package memory provides an in-memory libdns zone. It backs the "memory"
// provider, used for tests and for serving a zone from ddnsd itself.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/libdns/libdns"
	"github.com/rsclarke/ddnsd/internal/provider"
	"github.com/rsclarke/ddnsd/internal/provider/libdnsclient"
	"go.uber.org/zap"
)

var (
	_ libdnsclient.Provider = (*Zone)(nil)
	_ libdns.RecordDeleter  = (*Zone)(nil)
)

func init() {
	provider.Register("memory", func(logger *zap.Logger, settings map[string]string) (provider.RecordClient, error) {
		zone := settings["zone"]
		if zone == "" {
			return nil, fmt.Errorf("memory: missing required setting 'zone'")
		}
		ttl := 300 * time.Second
		if v := settings["ttl"]; v != "" {
			secs, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("memory: invalid ttl %q: %w", v, err)
			}
			ttl = time.Duration(secs) * time.Second
		}
		z := NewZone()
		return &Provider{Client: libdnsclient.New(zone, ttl, z), Records: z}, nil
	})
}

// Provider is the record client registered as "memory". Records is exposed
// so the zone can be served over DNS.
type Provider struct {
	*libdnsclient.Client
	Records *Zone
}

type key struct {
	name string
	typ  string
}

// Zone stores records keyed by lowercase relative name and type. It ignores
// the zone argument of libdns calls, so one Zone holds a single zone.
type Zone struct {
	mu      sync.RWMutex
	records map[key][]libdns.RR
}

func NewZone() *Zone {
	return &Zone{records: make(map[key][]libdns.RR)}
}

func keyOf(rr libdns.RR) key {
	return key{name: strings.ToLower(rr.Name), typ: strings.ToUpper(rr.Type)}
}

func (z *Zone) GetRecords(_ context.Context, _ string) ([]libdns.Record, error) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	var out []libdns.Record
	for _, rrs := range z.records {
		for _, rr := range rrs {
			out = append(out, rr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].RR(), out[j].RR()
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Data < b.Data
	})
	return out, nil
}

func (z *Zone) AppendRecords(_ context.Context, _ string, recs []libdns.Record) ([]libdns.Record, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	for _, r := range recs {
		rr := r.RR()
		k := keyOf(rr)
		z.records[k] = append(z.records[k], rr)
	}
	return recs, nil
}

// SetRecords replaces all records of each (name, type) pair present in recs.
func (z *Zone) SetRecords(_ context.Context, _ string, recs []libdns.Record) ([]libdns.Record, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	replaced := make(map[key]bool)
	for _, r := range recs {
		rr := r.RR()
		k := keyOf(rr)
		if !replaced[k] {
			z.records[k] = nil
			replaced[k] = true
		}
		z.records[k] = append(z.records[k], rr)
	}
	return recs, nil
}

// DeleteRecords removes records matching name and type, and data when given.
func (z *Zone) DeleteRecords(_ context.Context, _ string, recs []libdns.Record) ([]libdns.Record, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	var deleted []libdns.Record
	for _, r := range recs {
		want := r.RR()
		k := keyOf(want)
		kept := z.records[k][:0]
		for _, rr := range z.records[k] {
			if want.Data != "" && rr.Data != want.Data {
				kept = append(kept, rr)
				continue
			}
			deleted = append(deleted, rr)
		}
		if len(kept) == 0 {
			delete(z.records, k)
		} else {
			z.records[k] = kept
		}
	}
	return deleted, nil
}

// Lookup returns the data of records with the given relative name and type.
func (z *Zone) Lookup(name, typ string) []string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	rrs := z.records[key{name: strings.ToLower(name), typ: strings.ToUpper(typ)}]
	out := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		out = append(out, rr.Data)
	}
	return out
}

package ddns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rsclarke/ddnsd/internal/kv"
	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/rsclarke/ddnsd/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrHostExists      = errors.New("host already exists")
	ErrInvalidHostName = errors.New("invalid host name")
	ErrOutsideZone     = errors.New("host name is outside the provider's zone")
)

// Viewer decides whether a caller may see a host. capability.Token
// implements it.
type Viewer interface {
	CanView(host string) bool
}

// Hosts loads, creates and lists hosts. It carries the dependencies every
// Host and Address needs: the store, the provider client, a logger and a
// clock.
//
// Concurrent updates of the same host are not serialized; the last save wins.
type Hosts struct {
	store  kv.Store
	client provider.RecordClient
	logger *zap.Logger
	now    func() time.Time
}

// Option configures optional Hosts behaviour.
type Option func(*Hosts)

// WithLogger sets the logger. The default discards logs.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Hosts) {
		r.logger = logger
	}
}

// WithClock sets the time source used for creation and change timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Hosts) {
		r.now = now
	}
}

func NewHosts(store kv.Store, client provider.RecordClient, opts ...Option) *Hosts {
	r := &Hosts{
		store:  store,
		client: client,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the host with the exact given name, or nil if it does not exist.
func (r *Hosts) Get(ctx context.Context, name string) (*Host, error) {
	raw, err := r.store.Get(ctx, HostKeyPrefix+name)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var s hostState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode host %s: %w", name, err)
	}
	return &Host{
		Name:        name,
		IPv4Enabled: s.IPv4Enabled,
		IPv6Enabled: s.IPv6Enabled,
		Creation:    s.Creation,
		repo:        r,
	}, nil
}

// Create persists a new host with the given enabled families. When the
// provider is bound to a zone, the name must be in it.
func (r *Hosts) Create(ctx context.Context, name string, ipv4, ipv6 bool) (*Host, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if z, ok := r.client.(provider.Zoned); ok && !z.InZone(name) {
		return nil, ErrOutsideZone
	}
	existing, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrHostExists
	}

	h := &Host{
		Name:        name,
		IPv4Enabled: ipv4,
		IPv6Enabled: ipv6,
		Creation:    r.now(),
		dirty:       true,
		repo:        r,
	}
	if err := h.Save(ctx, false); err != nil {
		return nil, err
	}
	r.logger.Info("host created", logging.Host(name),
		zap.Bool("ipv4_enabled", ipv4), zap.Bool("ipv6_enabled", ipv6))
	return h, nil
}

// Names returns the names of all known hosts.
func (r *Hosts) Names(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, HostKeyPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, HostKeyPrefix))
	}
	return names, nil
}

// Visible fetches the named hosts the viewer may see. Names are filtered
// before anything is read; unknown names are skipped.
func (r *Hosts) Visible(ctx context.Context, viewer Viewer, names []string) ([]*Host, error) {
	var hosts []*Host
	for _, name := range names {
		if !viewer.CanView(name) {
			continue
		}
		h, err := r.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if h != nil {
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}

// LoadAddresses loads the addresses of the given types for every host
// concurrently. Loading is read-only; disabled families are skipped.
func (r *Hosts) LoadAddresses(ctx context.Context, hosts []*Host, types ...RecordType) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, h := range hosts {
		for _, t := range types {
			if !h.Enabled(t) {
				continue
			}
			g.Go(func() error {
				_, err := h.Address(ctx, t)
				return err
			})
		}
	}
	return g.Wait()
}

// Resync pushes every stored address to the provider again, as a forced
// update. It restores a provider that lost its records, such as the memory
// zone after a restart. Refused updates are logged and skipped.
func (r *Hosts) Resync(ctx context.Context) error {
	names, err := r.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		h, err := r.Get(ctx, name)
		if err != nil {
			return err
		}
		if h == nil {
			continue
		}
		for _, t := range RecordTypes {
			a, err := h.Address(ctx, t)
			if err != nil {
				return err
			}
			if a == nil || !a.Value.IsValid() {
				continue
			}
			o, err := a.Update(ctx, a.Value, true)
			if err != nil {
				return err
			}
			if !o.Success {
				r.logger.Warn("resync failed", logging.Host(name),
					logging.RecordType(t.String()), logging.Outcome(o.Error))
			}
		}
		if err := h.Save(ctx, false); err != nil {
			return err
		}
	}
	return nil
}

// ValidateName checks that name can be used both as a storage key and as a
// DNS record name. Names are lowercase only: DNS matches names without regard
// to case, so one record must map to exactly one host key.
func ValidateName(name string) error {
	if name == "" || strings.HasSuffix(name, ".") {
		return ErrInvalidHostName
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '.' || c == '_') {
			return ErrInvalidHostName
		}
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return ErrInvalidHostName
	}
	return nil
}

package ddns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// HostKeyPrefix is the storage namespace of host metadata.
const HostKeyPrefix = "host:"

// Host is a named entity whose A and AAAA records are kept in sync. The
// enabled flags are fixed at creation. Addresses are loaded on first use and
// only for enabled families.
type Host struct {
	Name        string
	IPv4Enabled bool
	IPv6Enabled bool
	Creation    time.Time

	dirty bool
	ipv4  *Address
	ipv6  *Address
	repo  *Hosts
}

type hostState struct {
	IPv4Enabled bool      `json:"ipv4_enabled"`
	IPv6Enabled bool      `json:"ipv6_enabled"`
	Creation    time.Time `json:"creation"`
}

// HostView is the public form of a Host. Addresses are only present once
// loaded.
type HostView struct {
	IPv4Enabled bool         `json:"ipv4_enabled"`
	IPv6Enabled bool         `json:"ipv6_enabled"`
	Creation    time.Time    `json:"creation"`
	IPv4        *AddressView `json:"ipv4,omitempty"`
	IPv6        *AddressView `json:"ipv6,omitempty"`
}

// Enabled reports whether the host manages records of type t.
func (h *Host) Enabled(t RecordType) bool {
	if t == RecordAAAA {
		return h.IPv6Enabled
	}
	return h.IPv4Enabled
}

// Dirty reports whether the host metadata differs from its persisted state.
func (h *Host) Dirty() bool {
	return h.dirty
}

func (h *Host) slot(t RecordType) **Address {
	if t == RecordAAAA {
		return &h.ipv6
	}
	return &h.ipv4
}

// Loaded returns the address of type t if it has been loaded, else nil.
func (h *Host) Loaded(t RecordType) *Address {
	return *h.slot(t)
}

// Address returns the address of type t, loading it on first use. It returns
// nil for a disabled family without touching the store.
func (h *Host) Address(ctx context.Context, t RecordType) (*Address, error) {
	if !h.Enabled(t) {
		return nil, nil
	}
	slot := h.slot(t)
	if *slot != nil {
		return *slot, nil
	}
	a, err := h.repo.loadAddress(ctx, h.Name, t)
	if err != nil {
		return nil, err
	}
	*slot = a
	return a, nil
}

// UpdateIP reconciles the record matching the family of ip. Malformed input
// and disabled families are reported without any I/O.
func (h *Host) UpdateIP(ctx context.Context, ip string, force bool) (Outcome, error) {
	target, t, ok := ParseIP(ip)
	if !ok {
		return failure(CodeInvalidIP, "Invalid IP"), nil
	}
	if !h.Enabled(t) {
		return failure(NotEnabledCode(t), fmt.Sprintf("%s is not enabled for this host", t.Family())), nil
	}

	a, err := h.Address(ctx, t)
	if err != nil {
		return Outcome{}, err
	}
	return a.Update(ctx, target, force)
}

// Save persists the host metadata when dirty or forced, then lets every
// loaded address persist itself if it changed.
func (h *Host) Save(ctx context.Context, force bool) error {
	if h.dirty || force {
		raw, err := json.Marshal(hostState{
			IPv4Enabled: h.IPv4Enabled,
			IPv6Enabled: h.IPv6Enabled,
			Creation:    h.Creation,
		})
		if err != nil {
			return fmt.Errorf("encode host %s: %w", h.Name, err)
		}
		if err := h.repo.store.Put(ctx, HostKeyPrefix+h.Name, raw); err != nil {
			return err
		}
		h.dirty = false
	}

	for _, t := range RecordTypes {
		if a := h.Loaded(t); a != nil {
			if err := a.Save(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// View returns the public form of the host.
func (h *Host) View() HostView {
	v := HostView{
		IPv4Enabled: h.IPv4Enabled,
		IPv6Enabled: h.IPv6Enabled,
		Creation:    h.Creation,
	}
	if h.ipv4 != nil {
		av := h.ipv4.View()
		v.IPv4 = &av
	}
	if h.ipv6 != nil {
		av := h.ipv6.View()
		v.IPv6 = &av
	}
	return v
}

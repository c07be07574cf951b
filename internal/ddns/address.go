package ddns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/rsclarke/ddnsd/internal/metrics"
	"github.com/rsclarke/ddnsd/internal/provider"
	"go.uber.org/zap"
)

// Address is the state of one record type of one host. RecordID caches the
// provider's handle of the record; it is only a hint and may be stale.
type Address struct {
	Type       RecordType
	Value      netip.Addr
	RecordID   string
	LastChange time.Time

	host  string
	dirty bool
	repo  *Hosts
}

// addressState is the persisted form of an Address.
type addressState struct {
	Value          *string    `json:"value"`
	RemoteRecordID *string    `json:"remote_record_id"`
	LastChange     *time.Time `json:"last_change"`
}

// AddressView is the public form of an Address.
type AddressView struct {
	Value      *string    `json:"value"`
	LastChange *time.Time `json:"last_change"`
}

func (a *Address) key() string {
	return a.Type.KeyPrefix() + a.host
}

// Dirty reports whether the address differs from its persisted state.
func (a *Address) Dirty() bool {
	return a.dirty
}

// Update converges the provider record to target.
//
// An unchanged target is a no-op unless force is set. Otherwise the cached
// record id is tried first; when it is missing or rejected the record is
// looked up by name and type, then updated, or created when it does not
// exist. State is only assigned once the provider accepted the change.
func (a *Address) Update(ctx context.Context, target netip.Addr, force bool) (Outcome, error) {
	if !force && a.Value.IsValid() && a.Value == target {
		return a.report(unchanged()), nil
	}

	value := target.String()
	recordID, ok, err := a.converge(ctx, value)
	if errors.Is(err, provider.ErrUnauthorized) {
		a.repo.logger.Error("dns provider rejected credentials",
			logging.Host(a.host), logging.RecordType(a.Type.String()))
		return a.report(failure(CodeAuthError, "DNS provider rejected the configured credentials")), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile %s record of %s: %w", a.Type, a.host, err)
	}
	if !ok {
		a.repo.logger.Warn("dns provider refused update",
			logging.Host(a.host), logging.RecordType(a.Type.String()), logging.IP(value))
		return a.report(failure(CodeProviderError, "Error while updating IP")), nil
	}

	if a.Value != target || a.RecordID != recordID {
		a.Value = target
		a.RecordID = recordID
		a.LastChange = a.repo.now()
		a.dirty = true
	}

	a.repo.logger.Info("record converged",
		logging.Host(a.host), logging.RecordType(a.Type.String()),
		logging.RecordID(recordID), logging.IP(value))
	return a.report(changed()), nil
}

func (a *Address) converge(ctx context.Context, value string) (string, bool, error) {
	if a.RecordID != "" {
		ok, err := a.updateRecord(ctx, a.RecordID, value)
		if err != nil {
			return "", false, err
		}
		if ok {
			return a.RecordID, true, nil
		}
		a.repo.logger.Debug("cached record id rejected, looking up record",
			logging.Host(a.host), logging.RecordID(a.RecordID))
	}

	id, err := a.findRecord(ctx)
	if err != nil {
		return "", false, err
	}
	if id != "" {
		ok, err := a.updateRecord(ctx, id, value)
		return id, ok, err
	}

	id, err = a.createRecord(ctx, value)
	if err != nil {
		return "", false, err
	}
	return id, id != "", nil
}

func (a *Address) updateRecord(ctx context.Context, id, value string) (bool, error) {
	ok, err := a.repo.client.UpdateRecord(ctx, id, value)
	countCall("update", ok, err)
	return ok, err
}

func (a *Address) findRecord(ctx context.Context) (string, error) {
	id, err := a.repo.client.FindRecord(ctx, a.host, a.Type.String())
	countCall("find", err == nil, err)
	return id, err
}

func (a *Address) createRecord(ctx context.Context, value string) (string, error) {
	id, err := a.repo.client.CreateRecord(ctx, a.host, a.Type.String(), value)
	countCall("create", id != "", err)
	return id, err
}

func countCall(op string, ok bool, err error) {
	result := metrics.ResultOK
	switch {
	case errors.Is(err, provider.ErrUnauthorized):
		result = metrics.ResultUnauthorized
	case err != nil:
		result = metrics.ResultError
	case !ok:
		result = metrics.ResultRejected
	}
	metrics.ProviderCalls.WithLabelValues(op, result).Inc()
}

func (a *Address) report(o Outcome) Outcome {
	metrics.Reconciles.WithLabelValues(a.Type.String(), o.Result()).Inc()
	return o
}

// Save persists the address when it is dirty.
func (a *Address) Save(ctx context.Context) error {
	if !a.dirty {
		return nil
	}
	raw, err := json.Marshal(a.state())
	if err != nil {
		return fmt.Errorf("encode %s: %w", a.key(), err)
	}
	if err := a.repo.store.Put(ctx, a.key(), raw); err != nil {
		return err
	}
	a.dirty = false
	return nil
}

func (a *Address) state() addressState {
	var s addressState
	if a.Value.IsValid() {
		v := a.Value.String()
		s.Value = &v
	}
	if a.RecordID != "" {
		id := a.RecordID
		s.RemoteRecordID = &id
	}
	if !a.LastChange.IsZero() {
		lc := a.LastChange
		s.LastChange = &lc
	}
	return s
}

// View returns the public form of the address.
func (a *Address) View() AddressView {
	s := a.state()
	return AddressView{Value: s.Value, LastChange: s.LastChange}
}

func (r *Hosts) loadAddress(ctx context.Context, host string, t RecordType) (*Address, error) {
	a := &Address{Type: t, host: host, repo: r}

	raw, err := r.store.Get(ctx, a.key())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return a, nil
	}

	var s addressState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.key(), err)
	}
	if s.Value != nil {
		ip, err := netip.ParseAddr(*s.Value)
		if err != nil {
			r.logger.Warn("ignoring unparsable stored address",
				logging.Host(host), logging.RecordType(t.String()), zap.Error(err))
		} else {
			a.Value = ip
		}
	}
	if s.RemoteRecordID != nil {
		a.RecordID = *s.RemoteRecordID
	}
	if s.LastChange != nil {
		a.LastChange = *s.LastChange
	}
	return a, nil
}

// Package cloudflare implements the record client against the Cloudflare v4
// API. It also implements the libdns appender and deleter for TXT records so
// it can solve ACME DNS-01 challenges.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/libdns/libdns"
	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/rsclarke/ddnsd/internal/provider"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Cloudflare API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

var (
	_ provider.RecordClient  = (*Provider)(nil)
	_ provider.Zoned         = (*Provider)(nil)
	_ libdns.RecordAppender = (*Provider)(nil)
	_ libdns.RecordDeleter  = (*Provider)(nil)
)

func init() {
	provider.Register("cloudflare", func(logger *zap.Logger, settings map[string]string) (provider.RecordClient, error) {
		return New(logger, settings)
	})
}

// Provider talks to a single Cloudflare zone.
type Provider struct {
	baseURL  string
	apiToken string
	zoneID   string
	zone     string
	ttl      int
	client   *http.Client
	logger   *zap.Logger
}

// New creates a Cloudflare provider from the given settings map.
// Required settings: api_token, zone_id.
// Optional settings: base_url, ttl (default 1, meaning automatic), zone (the
// zone's name; names outside it are refused).
func New(logger *zap.Logger, settings map[string]string) (*Provider, error) {
	apiToken := settings["api_token"]
	if apiToken == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting 'api_token'")
	}
	zoneID := settings["zone_id"]
	if zoneID == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting 'zone_id'")
	}

	baseURL := DefaultBaseURL
	if v := settings["base_url"]; v != "" {
		baseURL = v
	}

	ttl := 1
	if v := settings["ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid ttl %q: %w", v, err)
		}
		ttl = parsed
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		zoneID:   zoneID,
		zone:     settings["zone"],
		ttl:      ttl,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With(logging.Provider("cloudflare")),
	}, nil
}

type dnsRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type,omitempty"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
	TTL     int    `json:"ttl,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// do executes a request against the zone and decodes the response envelope.
// A 401 is reported as provider.ErrUnauthorized; any other status is left to
// the envelope's success flag.
func (p *Provider) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	u := p.baseURL + "/zones/" + url.PathEscape(p.zoneID) + "/dns_records" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, provider.ErrUnauthorized
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("cloudflare: decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		p.logger.Warn("cloudflare request failed",
			logging.Method(method), logging.Status(resp.StatusCode), zap.Any("errors", env.Errors))
	}
	return &env, nil
}

func (p *Provider) list(ctx context.Context, name, recordType, content string) ([]dnsRecord, error) {
	q := url.Values{}
	q.Set("type", recordType)
	q.Set("name", name)
	if content != "" {
		q.Set("content", content)
	}
	env, err := p.do(ctx, http.MethodGet, "", q, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("cloudflare: list %s %s: %s", recordType, name, describe(env.Errors))
	}
	var records []dnsRecord
	if err := json.Unmarshal(env.Result, &records); err != nil {
		return nil, fmt.Errorf("cloudflare: decode records: %w", err)
	}
	return records, nil
}

// InZone reports whether name belongs to the configured zone. Without a zone
// name every name is accepted and Cloudflare decides.
func (p *Provider) InZone(name string) bool {
	return p.zone == "" || provider.InZone(p.zone, name)
}

func (p *Provider) FindRecord(ctx context.Context, name, recordType string) (string, error) {
	if !p.InZone(name) {
		return "", nil
	}
	records, err := p.list(ctx, name, recordType, "")
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].ID, nil
}

func (p *Provider) UpdateRecord(ctx context.Context, id, value string) (bool, error) {
	env, err := p.do(ctx, http.MethodPatch, "/"+url.PathEscape(id), nil, dnsRecord{Content: value})
	if err != nil {
		return false, err
	}
	return env.Success, nil
}

func (p *Provider) CreateRecord(ctx context.Context, name, recordType, value string) (string, error) {
	if !p.InZone(name) {
		return "", nil
	}
	return p.create(ctx, dnsRecord{Type: recordType, Name: name, Content: value, TTL: p.ttl})
}

func (p *Provider) create(ctx context.Context, rec dnsRecord) (string, error) {
	env, err := p.do(ctx, http.MethodPost, "", nil, rec)
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", nil
	}
	var created dnsRecord
	if err := json.Unmarshal(env.Result, &created); err != nil {
		return "", fmt.Errorf("cloudflare: decode created record: %w", err)
	}
	return created.ID, nil
}

// AppendRecords creates the given TXT records. Other record types are
// managed through the record client methods and are ignored here.
func (p *Provider) AppendRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	var added []libdns.Record
	for _, r := range recs {
		rr := r.RR()
		if !strings.EqualFold(rr.Type, "TXT") {
			continue
		}
		ttl := p.ttl
		if rr.TTL > 0 {
			ttl = int(rr.TTL / time.Second)
		}
		name := strings.TrimSuffix(libdns.AbsoluteName(rr.Name, zone), ".")
		id, err := p.create(ctx, dnsRecord{Type: "TXT", Name: name, Content: rr.Data, TTL: ttl})
		if err != nil {
			return added, err
		}
		if id == "" {
			return added, fmt.Errorf("cloudflare: create TXT %s refused", name)
		}
		added = append(added, r)
	}
	return added, nil
}

// DeleteRecords removes the TXT records matching name and content.
func (p *Provider) DeleteRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	var deleted []libdns.Record
	for _, r := range recs {
		rr := r.RR()
		if !strings.EqualFold(rr.Type, "TXT") {
			continue
		}
		name := strings.TrimSuffix(libdns.AbsoluteName(rr.Name, zone), ".")
		found, err := p.list(ctx, name, "TXT", rr.Data)
		if err != nil {
			return deleted, err
		}
		for _, rec := range found {
			env, err := p.do(ctx, http.MethodDelete, "/"+url.PathEscape(rec.ID), nil, nil)
			if err != nil {
				return deleted, err
			}
			if !env.Success {
				return deleted, fmt.Errorf("cloudflare: delete TXT %s: %s", name, describe(env.Errors))
			}
		}
		deleted = append(deleted, r)
	}
	return deleted, nil
}

func describe(errs []apiError) string {
	if len(errs) == 0 {
		return "request unsuccessful"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(msgs, "; ")
}

// Package client is the HTTP client used by the ddnsd command-line tool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rsclarke/ddnsd/internal/api"
	"github.com/rsclarke/ddnsd/internal/auth"
	"github.com/rsclarke/ddnsd/internal/capability"
)

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status   int
	Response api.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("request failed with status %d: %s", e.Status, e.Response.Error)
	if e.Response.Message != "" {
		msg += ": " + e.Response.Message
	}
	if len(e.Response.Details) > 0 {
		msg += ": " + e.Response.Details.Error()
	}
	return msg
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Salt(ctx context.Context) (*auth.SaltedKey, error) {
	var result auth.SaltedKey
	if err := c.do(ctx, http.MethodGet, "/salt", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListHosts returns the visible hosts; names restricts the listing when non-empty.
func (c *Client) ListHosts(ctx context.Context, names []string, showIPv4, showIPv6 bool) (*api.HostsResponse, error) {
	q := url.Values{}
	if len(names) > 0 {
		q.Set("name", strings.Join(names, ","))
	}
	if showIPv4 {
		q.Set("show_ipv4", "true")
	}
	if showIPv6 {
		q.Set("show_ipv6", "true")
	}
	var result api.HostsResponse
	if err := c.do(ctx, http.MethodGet, "/hosts", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CreateHost(ctx context.Context, req api.CreateHostRequest) (*api.HostsResponse, error) {
	var result api.HostsResponse
	if err := c.do(ctx, http.MethodPost, "/hosts", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update asks the server to point name at ip. An empty ip means the
// address the server sees the request coming from.
func (c *Client) Update(ctx context.Context, name, ip string, force bool) (*api.UpdateResponse, error) {
	req := api.UpdateRequest{Force: force}
	if ip != "" {
		req.IP = &ip
	}
	var result api.UpdateResponse
	if err := c.do(ctx, http.MethodPost, "/update", url.Values{"name": {name}}, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListTokens(ctx context.Context) (*api.TokensResponse, error) {
	var result api.TokensResponse
	if err := c.do(ctx, http.MethodGet, "/tokens", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveToken creates a token, or edits the token with the given id when id
// is non-empty.
func (c *Client) SaveToken(ctx context.Context, id string, info capability.Info) (*api.CreateTokenResponse, error) {
	body := map[string]any{
		"type":        info.Type,
		"name":        info.Name,
		"description": info.Description,
	}
	if info.Permissions != nil {
		body["permissions"] = info.Permissions
	}
	if id != "" {
		body["id"] = id
	}
	var result api.CreateTokenResponse
	if err := c.do(ctx, http.MethodPost, "/tokens", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TokenMe(ctx context.Context) (*api.TokensResponse, error) {
	var result api.TokensResponse
	if err := c.do(ctx, http.MethodGet, "/tokens/me", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RevokeToken deletes the token with the given id, or the caller's own
// token when id is empty.
func (c *Client) RevokeToken(ctx context.Context, id string) error {
	path := "/tokens/me"
	if id != "" {
		path = "/tokens/" + url.PathEscape(id)
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &APIError{Status: resp.StatusCode, Response: errResp}
}

// Package api defines the JSON bodies exchanged between the server and the
// command-line client.
package api

import (
	"github.com/rsclarke/ddnsd/internal/capability"
	"github.com/rsclarke/ddnsd/internal/ddns"
	"github.com/rsclarke/ddnsd/internal/validation"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrUnauthorized     = "unauthorized"
	ErrPermissionDenied = ddns.CodePermissionDenied
	ErrInvalidRequest   = "invalid-request"
	ErrInvalidHost      = "invalid-host"
	ErrHostExists       = "host-exists"
	ErrHostNotFound     = "host-not-found"
	ErrInvalidToken     = "invalid-token"
	ErrTokenNotFound    = "token-not-found"
	ErrTooLarge         = "request-too-large"
	ErrInternal         = "internal-error"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details validation.Errors `json:"details,omitempty"`
}

type HostsResponse struct {
	Hosts map[string]ddns.HostView `json:"hosts"`
}

type CreateHostRequest struct {
	Name        string `json:"name"`
	IPv4Enabled bool   `json:"ipv4_enabled"`
	IPv6Enabled bool   `json:"ipv6_enabled"`
}

// UpdateRequest asks for a host's record to be set to IP. A nil IP or
// SenderIP means the address the request came from.
type UpdateRequest struct {
	IP    *string `json:"ip,omitempty"`
	Force bool    `json:"force,omitempty"`
}

// SenderIP is the UpdateRequest.IP value meaning "the caller's address".
const SenderIP = "sender"

type UpdateResponse struct {
	Hosts  map[string]ddns.HostView `json:"hosts"`
	Update ddns.Outcome             `json:"update"`
}

type TokensResponse struct {
	Tokens map[string]capability.Info `json:"tokens"`
}

// CreateTokenResponse carries the API key only when a token was created;
// edits leave it null.
type CreateTokenResponse struct {
	APIKey  *string         `json:"apikey"`
	TokenID string          `json:"token_id"`
	Info    capability.Info `json:"info"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

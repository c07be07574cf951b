// Package capability implements capability tokens: who may view or update
// which host.
package capability

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Type is the kind of a token.
type Type string

const (
	Admin      Type = "ADMIN"
	Restricted Type = "RESTRICTED"
)

// Permission is a host-scoped capability.
type Permission string

const (
	PermView   Permission = "view"
	PermUpdate Permission = "update"
)

// Others is the permission-map key consulted when a host has no entry of its own.
const Others = "#OTHERS"

// Token is an authorization credential. ID is the salted digest of the API
// key (see auth.TokenID); the key itself is never stored.
type Token struct {
	ID              string
	Type            Type
	Name            *string
	Description     *string
	HostPermissions map[string][]Permission
}

// Info is the serialized form of a token, as stored and as returned by the API.
type Info struct {
	Type        Type         `json:"type"`
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	Permissions *Permissions `json:"permissions,omitempty"`
}

// Permissions groups the permission maps of a RESTRICTED token.
type Permissions struct {
	Hosts map[string][]Permission `json:"hosts"`
}

// New builds a token from its serialized form. Empty names and descriptions
// are normalized to nil.
func New(id string, info Info) *Token {
	t := &Token{
		ID:              id,
		Type:            info.Type,
		Name:            nonEmpty(info.Name),
		Description:     nonEmpty(info.Description),
		HostPermissions: map[string][]Permission{},
	}
	if info.Permissions != nil && info.Permissions.Hosts != nil {
		t.HostPermissions = info.Permissions.Hosts
	}
	return t
}

// FromInfo builds a token from a decoded JSON object that already passed
// Validate.
func FromInfo(id string, info map[string]any) (*Token, error) {
	b, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode token info: %w", err)
	}
	var ti Info
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("decode token info: %w", err)
	}
	return New(id, ti), nil
}

// Info returns the serialized form. Permissions are only present for
// RESTRICTED tokens.
func (t *Token) Info() Info {
	info := Info{
		Type:        t.Type,
		Name:        t.Name,
		Description: t.Description,
	}
	if t.Type == Restricted {
		hosts := t.HostPermissions
		if hosts == nil {
			hosts = map[string][]Permission{}
		}
		info.Permissions = &Permissions{Hosts: hosts}
	}
	return info
}

// MarshalJSON encodes the token as its Info.
func (t *Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Info())
}

func (t *Token) IsAdmin() bool {
	return t.Type == Admin
}

// CanView reports whether the token may read the state of host.
func (t *Token) CanView(host string) bool {
	return t.IsAdmin() || t.hasHostPermission(host, PermView)
}

// CanUpdate reports whether the token may change the addresses of host.
func (t *Token) CanUpdate(host string) bool {
	return t.IsAdmin() || t.hasHostPermission(host, PermUpdate)
}

func (t *Token) hasHostPermission(host string, p Permission) bool {
	if perms, ok := t.HostPermissions[host]; ok {
		return slices.Contains(perms, p)
	}
	if perms, ok := t.HostPermissions[Others]; ok {
		return slices.Contains(perms, p)
	}
	return false
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

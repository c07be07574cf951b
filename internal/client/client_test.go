package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rsclarke/ddnsd/internal/api"
	"github.com/rsclarke/ddnsd/internal/auth"
	"github.com/rsclarke/ddnsd/internal/capability"
	"github.com/rsclarke/ddnsd/internal/ddns"
	"github.com/rsclarke/ddnsd/internal/kv"
	"github.com/rsclarke/ddnsd/internal/provider/libdnsclient"
	"github.com/rsclarke/ddnsd/internal/provider/memory"
	"github.com/rsclarke/ddnsd/internal/server"
)

const testSalt = "client-test-salt"

func setupTestClient(t *testing.T) *Client {
	t.Helper()
	store := kv.NewMemory()
	tokens := capability.NewTokens(store)

	adminKey, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate API key: %v", err)
	}
	admin := capability.New(auth.TokenID(adminKey, testSalt), capability.Info{Type: capability.Admin})
	if err := tokens.Save(context.Background(), admin); err != nil {
		t.Fatalf("save token: %v", err)
	}

	srv := &server.APIServer{
		Hosts:  ddns.NewHosts(store, libdnsclient.New("example.com.", time.Minute, memory.NewZone())),
		Tokens: tokens,
		Salt:   testSalt,
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return NewClient(ts.URL+"/", adminKey)
}

func TestHostsAndUpdate(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	if _, err := c.CreateHost(ctx, api.CreateHostRequest{Name: "home.example.com", IPv4Enabled: true}); err != nil {
		t.Fatalf("CreateHost failed: %v", err)
	}

	up, err := c.Update(ctx, "home.example.com", "1.2.3.4", false)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !up.Update.Success || !up.Update.Changed {
		t.Errorf("unexpected outcome %+v", up.Update)
	}

	hosts, err := c.ListHosts(ctx, []string{"home.example.com"}, true, false)
	if err != nil {
		t.Fatalf("ListHosts failed: %v", err)
	}
	view, ok := hosts.Hosts["home.example.com"]
	if !ok || view.IPv4 == nil || view.IPv4.Value == nil || *view.IPv4.Value != "1.2.3.4" {
		t.Errorf("unexpected hosts %+v", hosts.Hosts)
	}
}

func TestAPIErrorIsTyped(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	_, err := c.Update(ctx, "missing.example.com", "1.2.3.4", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Response.Error != api.ErrHostNotFound {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	name := "laptop"
	created, err := c.SaveToken(ctx, "", capability.Info{
		Type:        capability.Restricted,
		Name:        &name,
		Permissions: &capability.Permissions{Hosts: map[string][]capability.Permission{capability.Others: {capability.PermView}}},
	})
	if err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}
	if created.APIKey == nil {
		t.Fatal("expected an API key for a new token")
	}

	restricted := NewClient(c.BaseURL, *created.APIKey)
	me, err := restricted.TokenMe(ctx)
	if err != nil {
		t.Fatalf("TokenMe failed: %v", err)
	}
	if _, ok := me.Tokens[created.TokenID]; !ok {
		t.Errorf("unexpected /tokens/me %+v", me)
	}

	list, err := c.ListTokens(ctx)
	if err != nil || len(list.Tokens) != 2 {
		t.Fatalf("ListTokens = %v, %v", list, err)
	}

	if err := restricted.RevokeToken(ctx, ""); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	if _, err := restricted.TokenMe(ctx); err == nil {
		t.Error("expected revoked key to be rejected")
	}
}

func TestSalt(t *testing.T) {
	c := setupTestClient(t)
	c.APIKey = ""

	s, err := c.Salt(context.Background())
	if err != nil {
		t.Fatalf("Salt failed: %v", err)
	}
	if s.TokenID != auth.TokenID(s.APIKey, s.Salt) {
		t.Errorf("inconsistent salted key %+v", s)
	}
}

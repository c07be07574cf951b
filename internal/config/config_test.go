package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBPath != "ddnsd.db" {
		t.Errorf("expected DBPath 'ddnsd.db', got %q", cfg.DBPath)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("expected Listen ':8080', got %q", cfg.Listen)
	}
	if cfg.Provider.Name != "cloudflare" {
		t.Errorf("expected provider 'cloudflare', got %q", cfg.Provider.Name)
	}
	if !cfg.TrustCFConnectingIP {
		t.Error("expected TrustCFConnectingIP to default to true")
	}
	if cfg.TLS.Mode() != "off" {
		t.Errorf("expected TLS mode 'off', got %q", cfg.TLS.Mode())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DDNSD_DB", "/var/lib/ddnsd.db")
	t.Setenv("DDNSD_TOKEN_SALT", "pepper")
	t.Setenv("DDNSD_CF_API_TOKEN", "cf-token")
	t.Setenv("DDNSD_CF_ZONE_ID", "zone1")
	t.Setenv("DDNSD_ACME_DOMAIN", "ddns.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBPath != "/var/lib/ddnsd.db" || cfg.TokenSalt != "pepper" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.TLS.Mode() != "acme" {
		t.Errorf("expected TLS mode 'acme', got %q", cfg.TLS.Mode())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	pc, err := cfg.ProviderConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.Provider != "cloudflare" || pc.Settings["api_token"] != "cf-token" || pc.Settings["zone_id"] != "zone1" {
		t.Errorf("unexpected provider config %+v", pc)
	}
	if _, ok := pc.Settings["base_url"]; ok {
		t.Error("empty base_url should not be set")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{DBPath: "x.db", TokenSalt: "s"}, false},
		{"missing salt", Config{DBPath: "x.db"}, true},
		{"missing db", Config{TokenSalt: "s"}, true},
		{"cert without key", Config{DBPath: "x.db", TokenSalt: "s", TLS: TLSConfig{CertFile: "c.pem"}}, true},
		{"acme and manual", Config{DBPath: "x.db", TokenSalt: "s", TLS: TLSConfig{ACMEDomain: "a", CertFile: "c", KeyFile: "k"}}, true},
		{"manual", Config{DBPath: "x.db", TokenSalt: "s", TLS: TLSConfig{CertFile: "c", KeyFile: "k"}}, false},
		{"dns with cloudflare", Config{DBPath: "x.db", TokenSalt: "s", Provider: ProviderEnv{Name: "cloudflare"}, DNS: DNSConfig{Listen: ":53"}}, true},
		{"dns with memory", Config{DBPath: "x.db", TokenSalt: "s", Provider: ProviderEnv{Name: "memory"}, DNS: DNSConfig{Listen: ":53"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provider.yaml")
	if err := os.WriteFile(path, []byte("provider: memory\nsettings:\n  zone: example.com\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Config{Provider: ProviderEnv{Name: "cloudflare", ConfigPath: path}}

	pc, err := cfg.ProviderConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.Provider != "memory" || pc.Settings["zone"] != "example.com" {
		t.Errorf("unexpected provider config %+v", pc)
	}
}

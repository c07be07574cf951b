// Package config loads the server configuration from the environment and
// the DNS provider settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v9"
)

// Config holds the server configuration. Environment values are defaults
// that command-line flags may override.
type Config struct {
	DBPath    string `env:"DDNSD_DB" envDefault:"ddnsd.db"`
	Listen    string `env:"DDNSD_LISTEN" envDefault:":8080"`
	TokenSalt string `env:"DDNSD_TOKEN_SALT"`

	// TrustCFConnectingIP makes "sender" updates use the CF-Connecting-IP
	// header set by Cloudflare's proxy.
	TrustCFConnectingIP bool `env:"DDNSD_TRUST_CF_CONNECTING_IP" envDefault:"true"`
	// TrustProxy takes the client address from X-Forwarded-For or X-Real-IP.
	TrustProxy bool `env:"DDNSD_TRUST_PROXY"`

	Provider   ProviderEnv
	Cloudflare CloudflareConfig
	TLS        TLSConfig
	DNS        DNSConfig
}

// DNSConfig enables the built-in DNS server, which serves the zone of the
// memory provider.
type DNSConfig struct {
	Listen string `env:"DDNSD_DNS_LISTEN"`
	NSAddr string `env:"DDNSD_DNS_NS_ADDR"`
}

// ProviderEnv selects the DNS provider when no provider file is given.
type ProviderEnv struct {
	Name       string `env:"DDNSD_PROVIDER" envDefault:"cloudflare"`
	ConfigPath string `env:"DDNSD_PROVIDER_CONFIG"`
	Zone       string `env:"DDNSD_ZONE"`
}

// CloudflareConfig holds the Cloudflare credentials.
type CloudflareConfig struct {
	APIToken string `env:"DDNSD_CF_API_TOKEN"`
	ZoneID   string `env:"DDNSD_CF_ZONE_ID"`
	BaseURL  string `env:"DDNSD_CF_BASE_URL"`
}

// TLSConfig selects how the API is served: ACME, a static certificate, or
// plain HTTP when both are empty.
type TLSConfig struct {
	ACMEDomain string `env:"DDNSD_ACME_DOMAIN"`
	ACMEEmail  string `env:"DDNSD_ACME_EMAIL"`
	ACMECA     string `env:"DDNSD_ACME_CA"`
	CertFile   string `env:"DDNSD_TLS_CERT"`
	KeyFile    string `env:"DDNSD_TLS_KEY"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Mode returns "acme", "manual" or "off".
func (c *TLSConfig) Mode() string {
	switch {
	case c.ACMEDomain != "":
		return "acme"
	case c.CertFile != "":
		return "manual"
	default:
		return "off"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TokenSalt == "" {
		return errors.New("DDNSD_TOKEN_SALT is required")
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("DDNSD_TLS_CERT and DDNSD_TLS_KEY must be set together")
	}
	if c.TLS.ACMEDomain != "" && c.TLS.CertFile != "" {
		return errors.New("ACME and a static TLS certificate are mutually exclusive")
	}
	if c.DNS.Listen != "" && c.Provider.ConfigPath == "" && c.Provider.Name != "memory" {
		return errors.New("DDNSD_DNS_LISTEN requires the memory provider")
	}
	return nil
}

// ProviderConfig resolves the provider settings: from the YAML file when
// one is configured, otherwise from the environment.
func (c *Config) ProviderConfig() (*ProviderConfig, error) {
	if c.Provider.ConfigPath != "" {
		return LoadProviderConfigFromPath(c.Provider.ConfigPath)
	}

	settings := map[string]string{}
	switch c.Provider.Name {
	case "cloudflare":
		setIf(settings, "api_token", c.Cloudflare.APIToken)
		setIf(settings, "zone_id", c.Cloudflare.ZoneID)
		setIf(settings, "base_url", c.Cloudflare.BaseURL)
	case "":
		return nil, errors.New("DDNSD_PROVIDER is required")
	}
	setIf(settings, "zone", c.Provider.Zone)
	return &ProviderConfig{Provider: c.Provider.Name, Settings: settings}, nil
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

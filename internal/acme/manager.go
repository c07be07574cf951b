// Package acme obtains and renews the API's TLS certificate via ACME DNS-01,
// publishing challenges through the configured DNS provider.
package acme

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"os"

	"github.com/caddyserver/certmagic"
	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/rsclarke/ddnsd/internal/provider"
	certmagicsqlite "github.com/rsclarke/certmagic-sqlite"
	"go.uber.org/zap"
)

// DNSProviderFor returns client as a certmagic DNS provider if it can
// publish and remove TXT records.
func DNSProviderFor(client provider.RecordClient) (certmagic.DNSProvider, error) {
	p, ok := client.(certmagic.DNSProvider)
	if !ok {
		return nil, fmt.Errorf("dns provider %T cannot solve DNS-01 challenges", client)
	}
	return p, nil
}

// Manager handles automatic certificate acquisition and renewal via ACME.
type Manager struct {
	Domain   string
	Email    string
	CA       string
	DB       *sql.DB
	Provider certmagic.DNSProvider
	Logger   *zap.Logger

	config *certmagic.Config
}

// NewManager creates a new ACME manager. An empty ca selects Let's Encrypt
// production.
func NewManager(domain, email, ca string, db *sql.DB, p certmagic.DNSProvider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ca == "" {
		ca = certmagic.LetsEncryptProductionCA
	}

	certmagic.Default.Logger = logger
	certmagic.DefaultACME.Logger = logger

	return &Manager{
		Domain:   domain,
		Email:    email,
		CA:       ca,
		DB:       db,
		Provider: p,
		Logger:   logger,
	}
}

// Manage obtains the certificate for Domain, blocking until it is available,
// and keeps it renewed in the background.
func (m *Manager) Manage(ctx context.Context) error {
	hostname, _ := os.Hostname()
	storage, err := certmagicsqlite.NewWithDB(m.DB, certmagicsqlite.WithOwnerID(hostname))
	if err != nil {
		return fmt.Errorf("create certmagic storage: %w", err)
	}

	cfg := certmagic.NewDefault()
	cfg.Storage = storage
	cfg.Logger = m.Logger

	issuer := certmagic.NewACMEIssuer(cfg, certmagic.ACMEIssuer{
		CA:     m.CA,
		Email:  m.Email,
		Agreed: true,
		Logger: m.Logger,
		DNS01Solver: &certmagic.DNS01Solver{
			DNSManager: certmagic.DNSManager{
				DNSProvider: m.Provider,
				Logger:      m.Logger,
			},
		},
	})
	cfg.Issuers = []certmagic.Issuer{issuer}

	m.Logger.Info("obtaining certificate", logging.Domain(m.Domain), zap.String("ca", m.CA))
	if err := cfg.ManageSync(ctx, []string{m.Domain}); err != nil {
		return fmt.Errorf("manage certificate for %s: %w", m.Domain, err)
	}
	m.config = cfg
	return nil
}

// TLSConfig returns a TLS configuration that uses the managed certificate,
// or nil before Manage succeeded.
func (m *Manager) TLSConfig() *tls.Config {
	if m.config == nil {
		return nil
	}
	tc := m.config.TLSConfig()
	tc.NextProtos = []string{"h2", "http/1.1"}
	return tc
}

package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rsclarke/ddnsd/internal/acme"
	"github.com/rsclarke/ddnsd/internal/auth"
	"github.com/rsclarke/ddnsd/internal/capability"
	"github.com/rsclarke/ddnsd/internal/config"
	"github.com/rsclarke/ddnsd/internal/db"
	"github.com/rsclarke/ddnsd/internal/ddns"
	"github.com/rsclarke/ddnsd/internal/kv"
	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/rsclarke/ddnsd/internal/provider"
	_ "github.com/rsclarke/ddnsd/internal/provider/all"
	"github.com/rsclarke/ddnsd/internal/provider/memory"
	"github.com/rsclarke/ddnsd/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serverFlags struct {
	cfg     *config.Config
	loadErr error
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the API server",
	Long: `Run the ddnsd API server.

Every flag defaults to its DDNSD_* environment variable. The token salt is
required; "ddnsd salt" against any running server prints a fresh one.

TLS Modes:
  --acme-domain           → ACME DNS-01 through the configured DNS provider
  --tls-cert + --tls-key  → Manual TLS mode (use provided certificates)
  (neither)               → plain HTTP, for use behind a TLS-terminating proxy

With the memory provider, --dns-listen serves the managed zone over DNS,
including the TXT records of ACME challenges.

When the database holds no token, an ADMIN token is created and its API key
printed once.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{}
		serverFlags.loadErr = err
	}
	serverFlags.cfg = cfg

	f := serverCmd.Flags()
	f.StringVar(&cfg.DBPath, "db", cfg.DBPath, "database path")
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "API listen address")
	f.StringVar(&cfg.TokenSalt, "token-salt", cfg.TokenSalt, "salt mixed into API key digests")
	f.BoolVar(&cfg.TrustCFConnectingIP, "trust-cf-connecting-ip", cfg.TrustCFConnectingIP, "use the CF-Connecting-IP header as the sender address")
	f.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "use X-Forwarded-For / X-Real-IP as the remote address")
	f.StringVar(&cfg.Provider.Name, "provider", cfg.Provider.Name, "DNS provider name")
	f.StringVar(&cfg.Provider.ConfigPath, "provider-config", cfg.Provider.ConfigPath, "YAML file with the DNS provider and its settings")
	f.StringVar(&cfg.Provider.Zone, "zone", cfg.Provider.Zone, "DNS zone (memory provider)")
	f.StringVar(&cfg.TLS.ACMEDomain, "acme-domain", cfg.TLS.ACMEDomain, "obtain a certificate for this name via ACME DNS-01")
	f.StringVar(&cfg.TLS.ACMEEmail, "acme-email", cfg.TLS.ACMEEmail, "email for ACME account notifications")
	f.StringVar(&cfg.TLS.ACMECA, "acme-ca", cfg.TLS.ACMECA, "ACME directory URL (default Let's Encrypt production)")
	f.StringVar(&cfg.TLS.CertFile, "tls-cert", cfg.TLS.CertFile, "path to TLS certificate file (enables manual TLS mode)")
	f.StringVar(&cfg.TLS.KeyFile, "tls-key", cfg.TLS.KeyFile, "path to TLS key file (enables manual TLS mode)")
	f.StringVar(&cfg.DNS.Listen, "dns-listen", cfg.DNS.Listen, "serve the memory provider's zone over DNS on this address")
	f.StringVar(&cfg.DNS.NSAddr, "dns-ns-addr", cfg.DNS.NSAddr, "IP address returned for ns1.<zone>")
}

func runServer(cmd *cobra.Command, args []string) error {
	if serverFlags.loadErr != nil {
		return serverFlags.loadErr
	}
	cfg := serverFlags.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()
	store := kv.NewSQLite(database)

	pc, err := cfg.ProviderConfig()
	if err != nil {
		return err
	}
	client, err := provider.New(pc.Provider, logger.Named("provider"), pc.Settings)
	if err != nil {
		return fmt.Errorf("create dns provider: %w", err)
	}
	logger.Info("dns provider configured", logging.Provider(pc.Provider))

	dnsServer, err := startDNS(cfg, client)
	if err != nil {
		return err
	}
	defer stopDNS(dnsServer)

	tokens := capability.NewTokens(store)
	if err := bootstrapAdmin(ctx, tokens, cfg.TokenSalt); err != nil {
		return err
	}

	tlsConfig, err := serverTLS(ctx, cfg, database, client)
	if err != nil {
		return err
	}

	hosts := ddns.NewHosts(store, client, ddns.WithLogger(logger.Named("ddns")))
	if _, ok := client.(*memory.Provider); ok {
		if err := hosts.Resync(ctx); err != nil {
			return fmt.Errorf("restore memory zone: %w", err)
		}
	}

	apiSrv := &server.APIServer{
		Hosts:               hosts,
		Tokens:              tokens,
		Salt:                cfg.TokenSalt,
		Logger:              logger.Named("api"),
		TrustCFConnectingIP: cfg.TrustCFConnectingIP,
		TrustProxy:          cfg.TrustProxy,
	}

	srvCfg := server.DefaultServerConfig(cfg.Listen, apiSrv.Handler(), logger.Named("api"))
	srvCfg.TLSConfig = tlsConfig
	apiServer := server.NewManagedServer("api", srvCfg)
	if err := apiServer.Start(); err != nil {
		return err
	}
	logger.Info("api server ready", logging.Addr(apiServer.Addr()), logging.TLSMode(cfg.TLS.Mode()))

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-apiServer.Err():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	apiServer.Shutdown(shutdownCtx)

	if serveErr != nil {
		return fmt.Errorf("api server: %w", serveErr)
	}
	return nil
}

// bootstrapAdmin creates an ADMIN token when none exists yet and prints its
// API key.
func bootstrapAdmin(ctx context.Context, tokens *capability.Tokens, salt string) error {
	ids, err := tokens.IDs(ctx)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	if len(ids) > 0 {
		return nil
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("generate API key: %w", err)
	}
	name := "bootstrap"
	tok := capability.New(auth.TokenID(apiKey, salt), capability.Info{Type: capability.Admin, Name: &name})
	if err := tokens.Save(ctx, tok); err != nil {
		return fmt.Errorf("save bootstrap token: %w", err)
	}

	logger.Info("bootstrap admin token created", logging.TokenID(tok.ID))
	fmt.Println("=============================================================")
	fmt.Println("ADMIN API KEY CREATED (save this, it will not be shown again):")
	fmt.Println(apiKey)
	fmt.Println("=============================================================")
	return nil
}

// startDNS starts the built-in DNS server when it is enabled. It returns nil
// when disabled.
func startDNS(cfg *config.Config, client provider.RecordClient) (*server.DNSServer, error) {
	if cfg.DNS.Listen == "" {
		return nil, nil
	}
	mp, ok := client.(*memory.Provider)
	if !ok {
		return nil, fmt.Errorf("the DNS server requires the memory provider, got %T", client)
	}
	s := &server.DNSServer{
		Zone:    mp.Zone(),
		Records: mp.Records,
		NSAddr:  cfg.DNS.NSAddr,
		Logger:  logger.Named("dns"),
	}
	if err := s.Start(cfg.DNS.Listen); err != nil {
		return nil, err
	}
	return s, nil
}

// stopDNS shuts the DNS server down if one was started.
func stopDNS(s *server.DNSServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown(ctx)
}

func serverTLS(ctx context.Context, cfg *config.Config, database *sql.DB, client provider.RecordClient) (*tls.Config, error) {
	switch cfg.TLS.Mode() {
	case "acme":
		dnsProvider, err := acme.DNSProviderFor(client)
		if err != nil {
			return nil, err
		}
		manager := acme.NewManager(cfg.TLS.ACMEDomain, cfg.TLS.ACMEEmail, cfg.TLS.ACMECA, database, dnsProvider, logger.Named("certmagic"))
		if err := manager.Manage(ctx); err != nil {
			return nil, fmt.Errorf("ACME certificate acquisition: %w", err)
		}
		logger.Info("acme certificate obtained", logging.Domain(cfg.TLS.ACMEDomain))
		return manager.TLSConfig(), nil
	case "manual":
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS certificate: %w", err)
		}
		return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
	default:
		logger.Info("tls disabled", zap.String("reason", "no ACME domain or certificate configured"))
		return nil, nil
	}
}

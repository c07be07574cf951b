package main

import (
	"fmt"
	"os"

	"github.com/rsclarke/ddnsd/internal/client"
	"github.com/spf13/cobra"
)

type clientConfig struct {
	apiKey string
	apiURL string
}

func addClientFlags(cmd *cobra.Command, cfg *clientConfig) {
	cmd.Flags().StringVar(&cfg.apiKey, "api-key", os.Getenv("DDNSD_API_KEY"), "API key for authentication")
	cmd.Flags().StringVar(&cfg.apiURL, "api-url", os.Getenv("DDNSD_API_URL"), "API server URL")
}

func (cfg *clientConfig) newClient() (*client.Client, error) {
	if cfg.apiURL == "" {
		return nil, fmt.Errorf("API URL required (use --api-url flag or DDNSD_API_URL env var)")
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("API key required (use --api-key flag or DDNSD_API_KEY env var)")
	}
	return client.NewClient(cfg.apiURL, cfg.apiKey), nil
}

// newPublicClient is used for endpoints that need no API key.
func (cfg *clientConfig) newPublicClient() (*client.Client, error) {
	if cfg.apiURL == "" {
		return nil, fmt.Errorf("API URL required (use --api-url flag or DDNSD_API_URL env var)")
	}
	return client.NewClient(cfg.apiURL, cfg.apiKey), nil
}

func valueOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

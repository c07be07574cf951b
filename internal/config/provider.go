package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ProviderConfig holds the DNS provider type and its connection settings.
type ProviderConfig struct {
	Provider string            `yaml:"provider"`
	Settings map[string]string `yaml:"settings"`
}

// LoadProviderConfigFromPath reads the DNS provider configuration from the
// given file path.
func LoadProviderConfigFromPath(path string) (*ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider config file: %w", err)
	}
	return ParseProviderConfig(data)
}

// ParseProviderConfig decodes a YAML provider configuration. ${ENV_VAR}
// references in setting values are expanded so secrets can stay out of the
// file.
func ParseProviderConfig(data []byte) (*ProviderConfig, error) {
	var cfg ProviderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing provider config file: %w", err)
	}
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider config: missing required field 'provider'")
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]string{}
	}
	for k, v := range cfg.Settings {
		cfg.Settings[k] = os.ExpandEnv(v)
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HubConfig is the marquee-hub server configuration.
type HubConfig struct {
	Addr    string        `yaml:"addr" json:"addr"`
	DB      string        `yaml:"db" json:"db"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// OfflineAfter is how long after the last ping a player counts as
	// offline, in seconds.
	OfflineAfter int `yaml:"offline_after" json:"offline_after"`
}

// LoadHub reads and validates the hub config. An empty path yields the
// defaults, so the hub can run without a config file.
func LoadHub(path string) (*HubConfig, error) {
	var cfg HubConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyHubDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyHubDefaults(cfg *HubConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DB == "" {
		cfg.DB = "marquee-hub.db"
	}
	if cfg.OfflineAfter == 0 {
		cfg.OfflineAfter = 180
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate rejects values the hub cannot act on.
func (c *HubConfig) Validate() error {
	if c.OfflineAfter <= 0 {
		return fmt.Errorf("offline_after must be positive, got %d", c.OfflineAfter)
	}
	return nil
}

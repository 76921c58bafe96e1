package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// LinkConfig is the top-level peerlink endpoint configuration.
type LinkConfig struct {
	From    string        `toml:"from"`
	Peers   []string      `toml:"peers"`
	Session SessionConfig `toml:"session"`
	Driver  DriverConfig  `toml:"driver"`
}

// SessionConfig tunes per-session queue and timeout defaults.
type SessionConfig struct {
	// DefaultTimeoutMS applies to sends that pass no timeout; zero
	// keeps the response wait unbounded.
	DefaultTimeoutMS int64 `toml:"default_timeout_ms"`

	// MaxOutbound caps the outbound queue; zero keeps it unbounded.
	MaxOutbound int `toml:"max_outbound"`
}

// DriverConfig tunes the transport pump.
type DriverConfig struct {
	PollIntervalMS int64         `toml:"poll_interval_ms"`
	ReapIntervalMS int64         `toml:"reap_interval_ms"`
	Backoff        BackoffConfig `toml:"backoff"`
}

type BackoffConfig struct {
	InitialDelayMS int64   `toml:"initial_delay_ms"`
	Multiplier     float64 `toml:"multiplier"`
	MaxDelayMS     int64   `toml:"max_delay_ms"`
	Jitter         bool    `toml:"jitter"`
}

func LoadLinkConfig(path string) (LinkConfig, error) {
	var cfg LinkConfig
	if err := loadToml(path, &cfg); err != nil {
		return LinkConfig{}, err
	}
	if cfg.From == "" {
		cfg.From = "peerlink"
	}
	if cfg.Driver.PollIntervalMS == 0 {
		cfg.Driver.PollIntervalMS = 20
	}
	if cfg.Driver.ReapIntervalMS == 0 {
		cfg.Driver.ReapIntervalMS = 250
	}
	if err := ValidateLinkConfig(cfg); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateLinkConfig(cfg LinkConfig) error {
	if strings.TrimSpace(cfg.From) == "" {
		return fmt.Errorf("link config missing from")
	}
	for i, peer := range cfg.Peers {
		if strings.TrimSpace(peer) == "" {
			return fmt.Errorf("peers[%d] is empty", i)
		}
	}
	if cfg.Session.DefaultTimeoutMS < 0 {
		return fmt.Errorf("session default_timeout_ms must not be negative")
	}
	if cfg.Session.MaxOutbound < 0 {
		return fmt.Errorf("session max_outbound must not be negative")
	}
	if cfg.Driver.PollIntervalMS <= 0 {
		return fmt.Errorf("driver poll_interval_ms must be positive")
	}
	if cfg.Driver.ReapIntervalMS <= 0 {
		return fmt.Errorf("driver reap_interval_ms must be positive")
	}
	return nil
}

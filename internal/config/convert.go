package config

import (
	"time"

	"github.com/danmuck/peerlink/internal/protocol/session"
	"github.com/danmuck/peerlink/internal/transport"
)

func (c SessionConfig) Session() session.Config {
	return session.Config{
		DefaultTimeout: time.Duration(c.DefaultTimeoutMS) * time.Millisecond,
		MaxOutbound:    c.MaxOutbound,
	}
}

func (c DriverConfig) Driver() transport.Config {
	cfg := transport.Config{
		PollInterval: time.Duration(c.PollIntervalMS) * time.Millisecond,
		ReapInterval: time.Duration(c.ReapIntervalMS) * time.Millisecond,
		Backoff: transport.BackoffConfig{
			InitialDelay: time.Duration(c.Backoff.InitialDelayMS) * time.Millisecond,
			Multiplier:   c.Backoff.Multiplier,
			MaxDelay:     time.Duration(c.Backoff.MaxDelayMS) * time.Millisecond,
			Jitter:       c.Backoff.Jitter,
		},
	}
	if c.Backoff == (BackoffConfig{}) {
		cfg.Backoff = transport.DefaultConfig().Backoff
	}
	return cfg
}

package session

import (
	"math"
	"time"
)

// MinTimeout is the floor applied to every per-message timeout.
const MinTimeout = 500 * time.Millisecond

// unboundedTimeout stands in for "no timeout requested"; the deadline
// it produces is unreachable in practice.
const unboundedTimeout = time.Duration(math.MaxInt64)

// Config defines per-session queue and timeout defaults.
type Config struct {
	// DefaultTimeout applies when a send passes no timeout.
	// Zero or negative means effectively unbounded.
	DefaultTimeout time.Duration

	// MaxOutbound caps the outbound queue when positive. The default
	// of zero keeps the queue unbounded; producers outrunning the
	// transport then grow memory without limit.
	MaxOutbound int
}

// DefaultConfig returns the relaxed defaults: unbounded queue,
// unbounded response wait unless a send asks otherwise.
func DefaultConfig() Config {
	return Config{}
}

// clampTimeout resolves a caller-supplied timeout against the config
// default and the 500ms floor.
func (c Config) clampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = c.DefaultTimeout
	}
	if timeout <= 0 {
		return unboundedTimeout
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	return timeout
}

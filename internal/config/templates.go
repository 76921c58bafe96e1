package config

import (
	"fmt"
	"os"
)

const linkTemplate = `from = "peer.local"
peers = ["peer.remote"]

[session]
default_timeout_ms = 0
max_outbound = 0

[driver]
poll_interval_ms = 20
reap_interval_ms = 250

[driver.backoff]
initial_delay_ms = 50
multiplier = 2.0
max_delay_ms = 1000
jitter = true
`

// WriteTemplate drops a starter link config at path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(linkTemplate), 0o600)
}

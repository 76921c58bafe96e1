package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the global console logger tagged with the app
// and local endpoint names.
func InitLogger(app, endpoint string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().
		Timestamp().
		Str("app", app).
		Str("endpoint", endpoint).
		Logger()
	log.Logger = logger
	return logger
}

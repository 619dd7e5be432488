// Package observability carries the daemon-facing concerns: the console
// logger, gin request middleware and prometheus metrics. The driver core
// stays free of all three; only cmd binaries wire this package.
package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs and returns the process logger for a daemon binary,
// tagged with the application name.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

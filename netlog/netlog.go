// Package netlog sets up the single zerolog.Logger shared by every
// subsystem, configured by one environment variable.
package netlog

import (
	"os"

	"github.com/rs/zerolog"
)

// LevelEnvVar is the single log-filter variable. Unset or unparseable
// values fall back to info, matching the teacher's own default.
const LevelEnvVar = "FINIKY_LOG_LEVEL"

// New builds the root logger, writing to stderr with a timestamp
// field, at the level named by FINIKY_LOG_LEVEL.
func New() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if raw := os.Getenv(LevelEnvVar); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
}

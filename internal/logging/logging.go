package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Output goes to stderr so that command
// results on stdout stay machine readable.
func Setup(level string) {
	SetupConsole(level, os.Stderr)
}

// SetupConsole writes human readable log lines to out.
func SetupConsole(level string, out io.Writer) {
	SetupWriter(level, zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
	})
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(level string, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// For returns a logger tagged with the component name.
func For(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Package log provides the process-wide structured logger.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance, configured once by Init.
var Logger zerolog.Logger

// Level is a coarse logging level name taken from configuration.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how the global logger is built.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init configures the global logger. Call once at process start.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.JSONOutput {
		Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with a subsystem name.
// Every subsystem (policy, sweeper, eviction, api, store) logs through
// its own component logger rather than the bare global one.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

func init() {
	// sane default so packages that log before Init (e.g. in tests) don't panic
	Init(Config{Level: InfoLevel})
}

// Package logger wraps zerolog with the defaults used across udnfetch.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Default is the process-wide logger. It writes human-readable lines to
// stderr until Init is called.
var Default = New(os.Stderr, zerolog.InfoLevel)

// New creates a console logger writing to out at the given level.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Init configures Default from a level name and environment. An empty level
// resolves to debug in development and info otherwise.
func Init(level, environment string) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl := ParseLevel(level, environment)
	Default = New(os.Stderr, lvl)

	Default.Debug().
		Str("level", lvl.String()).
		Msg("Logger initialized")
}

// ParseLevel resolves a level name, falling back on the environment.
func ParseLevel(level, environment string) zerolog.Level {
	if level == "" {
		if strings.EqualFold(environment, "development") {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// For returns a child of Default tagged with a component name.
func For(component string) zerolog.Logger {
	return Default.With().Str("component", component).Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

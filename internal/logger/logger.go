// Package logger builds the zerolog logger shared by the classifications
// commands. Logs go to stderr so stdout stays machine readable.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/FrenchMajesty/descriptor-classifier/internal/config"
)

// New builds a logger from cfg. verbose forces debug level regardless of the
// configured one. A nil w writes to stderr.
func New(cfg config.LogConfig, w io.Writer, verbose bool) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case cfg.Level != "":
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), err
		}
		level = parsed
	}

	if cfg.HumanReadable {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// ForCommand tags every entry of l with the running subcommand
func ForCommand(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("command", name).Logger()
}

// Package sysutil configures process-wide logging and parses loose boolean
// strings coming from the environment and HTML forms.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level. Unknown or empty values mean
// info; "warning" is accepted as an alias for warn.
func SetLogLevel(lvl string) {
	lvl = strings.ToLower(strings.TrimSpace(lvl))
	if lvl == "warning" {
		lvl = "warn"
	}
	l, err := zerolog.ParseLevel(lvl)
	if err != nil || lvl == "" || l == zerolog.NoLevel || l == zerolog.TraceLevel || l == zerolog.Disabled {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}

// SetupLogger applies the level and installs the global logger writing to w
// (stderr when nil). Pretty switches to the human-readable console writer.
func SetupLogger(level string, pretty bool, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "mmsd").Logger()
	zerolog.DefaultContextLogger = &log.Logger
	return log.Logger
}

// IsTruthy reports whether v spells "true". Besides the usual environment
// spellings it accepts "on" and "checked", which browsers send for ticked
// checkboxes.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on", "checked":
		return true
	}
	return false
}

// Package logging configures the process-wide zerolog logger. It mirrors the
// teacher's internal/observability.InitLogger: global level from a string,
// RFC3339Nano timestamps, optional file sink, and the standard library log
// package redirected into zerolog so third-party logs are captured too.
package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options control where logs are written.
type Options struct {
	// LogPath, when non-empty, also writes logs to this file (append mode).
	LogPath string
	// Level is one of debug|info|warning|error|critical (case-insensitive).
	Level string
	// ConsoleDisabled suppresses the stdout/stderr writer entirely. Used by
	// the stdio transport, where stdout is the JSON-RPC wire and diagnostic
	// logs must never appear on it (spec §4.13): all logging for that
	// transport goes to stderr or a file, never stdout.
	ConsoleDisabled bool
	// Writer, when set, overrides the default writer (stderr unless a
	// LogPath is given). Used to force stdio transport logs onto stderr.
	Writer io.Writer
}

// Init initializes the global zerolog logger per Options.
func Init(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}
	if opts.LogPath != "" {
		if f, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			w = f
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "failed to open log file %q: %v\n", opts.LogPath, err)
		}
	}
	if opts.ConsoleDisabled && opts.LogPath == "" {
		w = io.Discard
	}

	log.Logger = log.Output(w).With().Timestamp().Logger()

	level := normalizeLevel(opts.Level)
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// normalizeLevel maps spec §6's CLI level names onto zerolog's vocabulary.
func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "warning":
		return "warn"
	case "critical":
		return "fatal"
	default:
		return level
	}
}

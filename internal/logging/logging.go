// Package logging builds the slog loggers shared by the CLI and the server.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Formats lists the accepted output formats: logfmt text, JSON, and
// colored text for terminals.
var Formats = []string{"text", "json", "pretty"}

// Options selects the level and format of a logger. HealthLevel is the
// level at which the server records health check requests; empty means
// debug, keeping load balancer polling out of info logs.
type Options struct {
	Level       string
	Format      string
	HealthLevel string
}

// New builds a logger writing to w, or to stderr when w is nil. Unknown
// levels and formats are errors so a typo on the command line is not
// silently ignored.
func New(opts Options, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if _, err := opts.Health(); err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    !isTerminal(w),
		})
	default:
		return nil, fmt.Errorf("unknown log format %q (want one of %s)", opts.Format, strings.Join(Formats, ", "))
	}
	return slog.New(handler), nil
}

// Health returns the level for health check request records.
func (o Options) Health() (slog.Level, error) {
	if o.HealthLevel == "" {
		return slog.LevelDebug, nil
	}
	return ParseLevel(o.HealthLevel)
}

// ParseLevel converts debug, info, warn (or warning) and error, in any
// case, to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

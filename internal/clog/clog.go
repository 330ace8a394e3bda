// Package clog builds the console logger every launchpad subcommand shares:
// a tint-colorized slog.Logger for structured, human-facing output.
// Grounded on malbeclabs-doublezero/telemetry/flow-ingest's newLogger.
package clog

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options configures New.
type Options struct {
	// Verbose lowers the level floor to Debug; otherwise Info.
	Verbose bool
	// Writer overrides os.Stdout; used by tests.
	Writer io.Writer
	// NoColor disables ANSI color, e.g. when stdout isn't a TTY.
	NoColor bool
}

// New returns a slog.Logger writing tint-colorized lines, blank string
// attributes elided and timestamps rendered to millisecond precision.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    opts.NoColor,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	return t.Format("2006-01-02T15:04:05.000") + "Z"
}

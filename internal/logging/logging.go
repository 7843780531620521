// Package logging configures the process-wide slog default handler, the
// same way cmd/root does it in the teacher: a single text handler with a
// debug-level toggle, no third-party logging library.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options controls the default logger's verbosity and output.
type Options struct {
	Debug  bool
	Output io.Writer // defaults to os.Stderr
}

// Init installs the process-wide slog default handler.
func Init(opts Options) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	})))
}

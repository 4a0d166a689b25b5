package logger

import (
	"io"
	"log/slog"
	"os"
)

// Options configures the stdout JSON handler.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	Level  slog.Level
}

// New creates a JSON logger writing to stdout at info level. Extractors add
// request-scoped attributes to every record.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithOptions(Options{Level: slog.LevelInfo}, extractors...)
}

// NewWithOptions creates a JSON logger with an explicit level and output.
func NewWithOptions(opts Options, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewLogHandlerDecorator(jsonHandler(opts), extractors...))
}

// NewNope creates a logger that discards everything. Components use it as
// their default so a missing logger never needs a nil check.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jsonHandler(opts Options) slog.Handler {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
}

// Package logger configures the process-wide slog.Logger used across the
// query pipeline. Log level and format are set once at CLI startup;
// everything downstream just calls slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const modulePrefix = "github.com/ragpipe/ragpipe"

// ParseLevel converts a string log level to slog.Level. Unknown values
// default to warn rather than erroring, matching the CLI's tolerance for
// a typo'd --log-level flag.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Options configures New.
type Options struct {
	Level  slog.Level
	Format string // "simple", "verbose", or "json"
	Output io.Writer
}

// New builds and installs the default slog.Logger. Third-party chatter
// (anything outside this module) is suppressed unless Level is debug.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	var handler slog.Handler
	switch opts.Format {
	case "json":
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{Level: opts.Level})
	default:
		handler = slog.NewTextHandler(opts.Output, &slog.HandlerOptions{Level: opts.Level})
	}

	filtered := &filteringHandler{handler: handler, minLevel: opts.Level}
	logger := slog.New(filtered)
	slog.SetDefault(logger)
	return logger
}

// filteringHandler drops logs emitted from outside this module unless
// the configured level is debug, so third-party library noise (vector
// clients, HTTP retries) doesn't drown out pipeline logs at info level.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug {
		return h.handler.Handle(ctx, record)
	}
	if h.isOwnPackage(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func (h *filteringHandler) isOwnPackage(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	return strings.Contains(fn.Name(), modulePrefix)
}

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var defaultLogger *slog.Logger

// Init installs the process logger: text in development or when debug is
// set, JSON otherwise.
func Init(env string, debug bool) *slog.Logger {
	defaultLogger = New(os.Stdout, env, debug)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

func New(w io.Writer, env string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if debug || env == "dev" || env == "development" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func Default() *slog.Logger {
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

type ctxKey struct{}

// WithContext attaches a request-scoped logger to ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached by WithContext, or the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Default()
}

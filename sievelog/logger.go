// Package sievelog provides the structured logging conventions used across
// this module, trimmed from the teacher's logger package to an injectable
// *slog.Logger instead of process-global state: a library has callers with
// their own logging setup, so nothing here reaches for a package-level
// logger or configures os.Stdout itself.
package sievelog

import (
	"context"
	"log/slog"
	"os"
)

// New builds a JSON slog.Logger at the given level, matching the teacher's
// default output format (logger.go's "json" case) minus the file-rotation
// and syslog backends a client library has no use for.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything, for callers that pass no
// logger of their own.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// WithComponent returns a logger with a "component" field set, mirroring
// the teacher's convention of tagging every session/server logger with the
// subsystem it belongs to (server.Session embeds a logger built this way).
func WithComponent(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("component", component)
}

// FromContext returns the logger attached to ctx by WithContext, or Discard
// if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Discard()
}

// WithContext attaches l to ctx for later retrieval with FromContext.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

type ctxKey struct{}

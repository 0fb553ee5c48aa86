// Package logging provides context-scoped structured logging built on
// log/slog. Layers of the resilience chain log through this package so that
// every line automatically carries the call ID and operation name stored in
// the context by contextx.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/Keksclan/goSquirrelShield/contextx"
)

type ctxLoggerKey struct{}

var (
	defaultLogger     *slog.Logger
	defaultLoggerOnce sync.Once
)

func baseLogger() *slog.Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
	return defaultLogger
}

// WithLogger returns a derived context that carries logger. Subsequent calls
// to the package-level log helpers use it instead of the default.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// Logger returns the logger stored in ctx, or the process-wide default.
func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return baseLogger()
}

// Debug logs at debug level with call-scoped attributes merged in.
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs at info level with call-scoped attributes merged in.
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs at warn level with call-scoped attributes merged in.
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs at error level with call-scoped attributes merged in.
func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelError, msg, attrs...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, level) {
		return
	}

	merged := callAttrs(ctx)
	merged = append(merged, attrs...)
	logger.LogAttrs(ctx, level, msg, merged...)
}

// callAttrs extracts call ID and operation from ctx as slog attributes.
func callAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id := contextx.CallIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("call_id", id))
	}
	if op := contextx.OperationFromContext(ctx); op != "" {
		attrs = append(attrs, slog.String("op", op))
	}
	return attrs
}

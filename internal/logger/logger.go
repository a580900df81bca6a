// Package logger provides a context-aware structured logger built on log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the minimum severity a Logger emits.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// TraceIDFn extracts a trace id from ctx. Empty means no trace.
type TraceIDFn func(ctx context.Context) string

// LoggerInterface is what modules depend on.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) LoggerInterface
}

// Logger writes JSON records and tags them with the active trace.
type Logger struct {
	log       *slog.Logger
	traceIDFn TraceIDFn
}

// New creates a Logger writing to w.
// When traceIDFn is nil the OpenTelemetry span in ctx is used.
func New(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn) *Logger {
	if traceIDFn == nil {
		traceIDFn = otelTraceID
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     slog.Level(minLevel),
		AddSource: minLevel <= LevelDebug,
	})

	return &Logger{
		log:       slog.New(handler).With("service", serviceName),
		traceIDFn: traceIDFn,
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return New(io.Discard, LevelError, "nop", func(context.Context) string { return "" })
}

// FileConfig configures the rotating file sink.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// RotatingFile returns a size-rotated file writer.
func RotatingFile(cfg FileConfig) io.WriteCloser {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func otelTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelDebug, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelInfo, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelWarn, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelError, msg, args)
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) LoggerInterface {
	return &Logger{log: l.log.With(args...), traceIDFn: l.traceIDFn}
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.log
}

func (l *Logger) write(ctx context.Context, level slog.Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.log.Enabled(ctx, level) {
		return
	}
	if id := l.traceIDFn(ctx); id != "" {
		args = append(args, "trace_id", id)
	}
	l.log.Log(ctx, level, msg, args...)
}

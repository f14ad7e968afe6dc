// Package logger provides a thin, context-aware wrapper over log/slog.
// Every call site passes a context first so trace correlation can be
// injected without threading a *Logger through every function signature
// twice.
package logger

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Level mirrors slog.Level with names matching the rest of the codebase.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Record is passed to an Events callback so the caller can react to a
// logged event (for example, forwarding errors to a tracing backend)
// without parsing the rendered log line.
type Record struct {
	Level      Level
	Message    string
	Time       time.Time
	Attributes map[string]any
}

// Events are optional hooks invoked after a message is logged at the
// matching level. Nil entries are skipped.
type Events struct {
	Debug func(ctx context.Context, r Record)
	Info  func(ctx context.Context, r Record)
	Warn  func(ctx context.Context, r Record)
	Error func(ctx context.Context, r Record)
}

// TraceIDFunc extracts a trace identifier from a context for log
// correlation; returns "" when there is none.
type TraceIDFunc func(ctx context.Context) string

// Logger is a structured, context-aware logger built on slog.
type Logger struct {
	handler  slog.Handler
	events   Events
	traceID  TraceIDFunc
	service  string
	metadata map[string]any
}

// New constructs a Logger writing JSON lines to w at the given minimum
// level, tagged with service and correlated via traceID.
func New(w io.Writer, minLevel Level, service string, traceID TraceIDFunc, events Events) *Logger {
	return NewWithMetadata(w, minLevel, service, traceID, events, nil)
}

// NewWithMetadata is New with additional static key/value pairs attached to
// every log line (hostname, pod name, and similar deployment metadata).
func NewWithMetadata(w io.Writer, minLevel Level, service string, traceID TraceIDFunc, events Events, metadata map[string]any) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: minLevel})
	return &Logger{
		handler:  h,
		events:   events,
		traceID:  traceID,
		service:  service,
		metadata: metadata,
	}
}

func (l *Logger) log(ctx context.Context, level Level, msg string, args []any) {
	attrs := make(map[string]any, len(args)/2+len(l.metadata)+1)
	for k, v := range l.metadata {
		attrs[k] = v
	}
	attrs["service"] = l.service
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs[key] = args[i+1]
	}

	if l.traceID != nil {
		if tid := l.traceID(ctx); tid != "" {
			attrs["trace_id"] = tid
		}
	}

	rec := slog.NewRecord(time.Now(), level, msg, 0)
	for k, v := range attrs {
		rec.AddAttrs(slog.Any(k, v))
	}
	_ = l.handler.Handle(ctx, rec)

	l.fire(ctx, level, msg, attrs)
}

func (l *Logger) fire(ctx context.Context, level Level, msg string, attrs map[string]any) {
	r := Record{Level: level, Message: msg, Time: time.Now(), Attributes: attrs}
	switch level {
	case LevelDebug:
		if l.events.Debug != nil {
			l.events.Debug(ctx, r)
		}
	case LevelInfo:
		if l.events.Info != nil {
			l.events.Info(ctx, r)
		}
	case LevelWarn:
		if l.events.Warn != nil {
			l.events.Warn(ctx, r)
		}
	case LevelError:
		if l.events.Error != nil {
			l.events.Error(ctx, r)
		}
	}
}

// Debug logs at debug level with alternating key/value pairs in args.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) { l.log(ctx, LevelDebug, msg, args) }

// Info logs at info level with alternating key/value pairs in args.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) { l.log(ctx, LevelInfo, msg, args) }

// Warn logs at warn level with alternating key/value pairs in args.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) { l.log(ctx, LevelWarn, msg, args) }

// Error logs at error level with alternating key/value pairs in args.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) { l.log(ctx, LevelError, msg, args) }

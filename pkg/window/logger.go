package window

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogField is one key-value pair in a structured log entry.
type LogField struct {
	Key   string
	Value any
}

// Field builds a LogField.
func Field(key string, value any) LogField {
	return LogField{Key: key, Value: value}
}

// Logger is the structured logging contract the engine emits through. Hosts
// inject their own implementation; the engine never writes to a destination
// it was not handed.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...LogField)
	Info(ctx context.Context, msg string, fields ...LogField)
	Warn(ctx context.Context, msg string, fields ...LogField)
	Error(ctx context.Context, msg string, err error, fields ...LogField)
	WithFields(fields ...LogField) Logger
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...LogField)          {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ error, _ ...LogField) {}
func (n *NoOpLogger) WithFields(_ ...LogField) Logger                           { return n }

// StdLogger writes structured entries to a writer, one line per entry, and
// includes the context trace ID when one is present.
type StdLogger struct {
	fields   []LogField
	minLevel LogLevel
	logger   *log.Logger
}

// NewStdLogger builds a logger with a minimum level. A nil writer discards
// all output.
func NewStdLogger(minLevel LogLevel, writer io.Writer) *StdLogger {
	if writer == nil {
		writer = io.Discard
	}
	return &StdLogger{
		minLevel: minLevel,
		logger:   log.New(writer, "", 0),
	}
}

var logLevelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

func (s *StdLogger) emit(ctx context.Context, level LogLevel, msg string, err error, fields []LogField) {
	if logLevelRank[level] < logLevelRank[s.minLevel] {
		return
	}

	all := append(append([]LogField(nil), s.fields...), fields...)
	if traceID := TraceID(ctx); traceID != "" {
		all = append(all, Field("trace_id", traceID))
	}

	parts := []string{
		fmt.Sprintf("[%s]", time.Now().Format(time.RFC3339)),
		fmt.Sprintf("[%s]", level),
	}
	if err != nil {
		parts = append(parts, fmt.Sprintf("[error=%q]", err.Error()))
	}
	parts = append(parts, msg)

	if len(all) > 0 {
		rendered := make([]string, 0, len(all))
		for _, f := range all {
			rendered = append(rendered, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		parts = append(parts, fmt.Sprintf("fields=[%s]", strings.Join(rendered, " ")))
	}

	s.logger.Println(strings.Join(parts, " "))
}

func (s *StdLogger) Debug(ctx context.Context, msg string, fields ...LogField) {
	s.emit(ctx, LogLevelDebug, msg, nil, fields)
}

func (s *StdLogger) Info(ctx context.Context, msg string, fields ...LogField) {
	s.emit(ctx, LogLevelInfo, msg, nil, fields)
}

func (s *StdLogger) Warn(ctx context.Context, msg string, fields ...LogField) {
	s.emit(ctx, LogLevelWarn, msg, nil, fields)
}

func (s *StdLogger) Error(ctx context.Context, msg string, err error, fields ...LogField) {
	s.emit(ctx, LogLevelError, msg, err, fields)
}

func (s *StdLogger) WithFields(fields ...LogField) Logger {
	return &StdLogger{
		fields:   append(append([]LogField(nil), s.fields...), fields...),
		minLevel: s.minLevel,
		logger:   s.logger,
	}
}

type traceIDKey struct{}

// WithTraceID stores a trace ID in the context for request correlation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID extracts the trace ID from the context, if present.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Package telemetry provides the hand-rolled structured logger used across
// the service, in the same shape as execution_service's
// internal/services/structured_logger.go: a thin wrapper over the standard
// log package with a level, single-line key=value fields, and a
// uuid-generated correlation id threaded through context.Context.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger emits single-line entries of the form
// "[LEVEL] message key=value key=value ..." to its underlying *log.Logger.
type Logger struct {
	level Level
	std   *log.Logger
}

func New(level Level) *Logger {
	return &Logger{level: level, std: log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)}
}

type Fields map[string]any

func (l *Logger) log(level Level, correlationID, msg string, fields Fields) {
	if level < l.level {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	if correlationID != "" {
		fmt.Fprintf(&b, " request_id=%s", correlationID)
	}
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	l.std.Println(b.String())
}

func (l *Logger) Debug(msg string, fields Fields) { l.log(Debug, "", msg, fields) }
func (l *Logger) Info(msg string, fields Fields)  { l.log(Info, "", msg, fields) }
func (l *Logger) Warn(msg string, fields Fields)  { l.log(Warn, "", msg, fields) }
func (l *Logger) Error(msg string, fields Fields) { l.log(Error, "", msg, fields) }

// WithContext binds a correlation id (pulled from ctx, if present) to
// subsequent log calls.
func (l *Logger) WithContext(ctx context.Context) *Context {
	return &Context{logger: l, correlationID: CorrelationID(ctx)}
}

type Context struct {
	logger        *Logger
	correlationID string
}

func (c *Context) Debug(msg string, fields Fields) { c.logger.log(Debug, c.correlationID, msg, fields) }
func (c *Context) Info(msg string, fields Fields)  { c.logger.log(Info, c.correlationID, msg, fields) }
func (c *Context) Warn(msg string, fields Fields)  { c.logger.log(Warn, c.correlationID, msg, fields) }
func (c *Context) Error(msg string, fields Fields) { c.logger.log(Error, c.correlationID, msg, fields) }

type correlationIDKey struct{}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

func NewCorrelationID() string {
	return uuid.New().String()
}

// internal/logger/logger.go
package logger

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Type for the context key
type contextKeyRequestLoggerType struct{}

var contextKeyRequestLogger = &contextKeyRequestLoggerType{}

const requestIDLoggerKey = "requestID"

// NewLogger creates a logrus logger with full timestamps. The level is read from
// LOG_LEVEL (debug, info, warn, error) and defaults to info.
func NewLogger() *logrus.Logger {
	log := logrus.New()
	formatter := new(logrus.TextFormatter)
	formatter.TimestampFormat = "2006-01-02 15:04:05"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)
	log.SetOutput(os.Stdout)
	log.SetLevel(levelFromEnv())
	return log
}

func levelFromEnv() logrus.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// ContextWithLogger returns a context carrying a request-scoped logger with a fresh
// request ID. If the context already has one, it is returned unchanged.
func ContextWithLogger(ctx context.Context, base *logrus.Logger) (context.Context, *logrus.Entry) {
	if ctx == nil {
		ctx = context.Background()
	} else if entry, ok := ctx.Value(contextKeyRequestLogger).(*logrus.Entry); ok {
		return ctx, entry
	}
	entry := base.WithField(requestIDLoggerKey, uuid.NewString())
	return context.WithValue(ctx, contextKeyRequestLogger, entry), entry
}

// FromContext returns the request logger stored in ctx, or an entry of fallback
// when the context has none.
func FromContext(ctx context.Context, fallback *logrus.Logger) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(contextKeyRequestLogger).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(fallback)
}

// RequestID returns the request ID attached to the context logger, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	entry, ok := ctx.Value(contextKeyRequestLogger).(*logrus.Entry)
	if !ok {
		return ""
	}
	id, _ := entry.Data[requestIDLoggerKey].(string)
	return id
}

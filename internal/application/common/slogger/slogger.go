// Package slogger is the package-level structured logging facade used across
// the fault pipeline. It lazily initializes a default ApplicationLogger and
// lets tests swap in their own.
package slogger

import (
	"context"
	"sync"

	"faultline/internal/application/common/logging"
)

// Fields is an alias for logging.Fields for convenience.
type Fields = logging.Fields

var (
	defaultLogger logging.ApplicationLogger //nolint:gochecknoglobals // Singleton logging facade
	defaultOnce   sync.Once                 //nolint:gochecknoglobals // Thread-safe singleton initialization
	defaultMu     sync.RWMutex              //nolint:gochecknoglobals // Guards logger replacement in tests
)

func getLogger() logging.ApplicationLogger {
	defaultMu.RLock()
	if defaultLogger != nil {
		l := defaultLogger
		defaultMu.RUnlock()
		return l
	}
	defaultMu.RUnlock()

	defaultOnce.Do(func() {
		logger, err := logging.NewApplicationLogger(logging.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		})
		if err != nil {
			panic("failed to initialize default logger: " + err.Error())
		}
		defaultMu.Lock()
		defaultLogger = logger
		defaultMu.Unlock()
	})

	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetGlobalLogger replaces the default logger (useful for testing).
func SetGlobalLogger(logger logging.ApplicationLogger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Debug logs a debug message with context.
func Debug(ctx context.Context, msg string, fields Fields) {
	getLogger().Debug(ctx, msg, fields)
}

// Info logs an info message with context.
func Info(ctx context.Context, msg string, fields Fields) {
	getLogger().Info(ctx, msg, fields)
}

// Warn logs a warning message with context.
func Warn(ctx context.Context, msg string, fields Fields) {
	getLogger().Warn(ctx, msg, fields)
}

// Error logs an error message with context.
func Error(ctx context.Context, msg string, fields Fields) {
	getLogger().Error(ctx, msg, fields)
}

// ErrorWithError logs an error message with an error object and context.
func ErrorWithError(ctx context.Context, err error, msg string, fields Fields) {
	getLogger().ErrorWithError(ctx, err, msg, fields)
}

// InfoNoCtx logs an info message without context.
func InfoNoCtx(msg string, fields Fields) {
	getLogger().Info(context.Background(), msg, fields)
}

// WarnNoCtx logs a warning message without context.
func WarnNoCtx(msg string, fields Fields) {
	getLogger().Warn(context.Background(), msg, fields)
}

// ErrorNoCtx logs an error message without context.
func ErrorNoCtx(msg string, fields Fields) {
	getLogger().Error(context.Background(), msg, fields)
}

// WithComponent returns a logger scoped to a specific component name.
func WithComponent(component string) logging.ApplicationLogger {
	return getLogger().WithComponent(component)
}

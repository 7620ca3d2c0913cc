package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ApplicationLogger defines the interface for structured application logging.
type ApplicationLogger interface {
	Debug(ctx context.Context, message string, fields Fields)
	Info(ctx context.Context, message string, fields Fields)
	Warn(ctx context.Context, message string, fields Fields)
	Error(ctx context.Context, message string, fields Fields)
	ErrorWithError(ctx context.Context, err error, message string, fields Fields)
	WithComponent(component string) ApplicationLogger
}

// Fields represents structured logging fields.
type Fields map[string]interface{}

// Config represents logger configuration.
type Config struct {
	Level           string // debug, info, warn, error
	Format          string // json, text
	Output          string // stdout, stderr, buffer (for testing)
	TimestampFormat string
}

// LogEntry represents the structure of emitted log entries.
type LogEntry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Component     string                 `json:"component,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

var levelRanks = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// applicationLoggerImpl implements ApplicationLogger.
type applicationLoggerImpl struct {
	config    Config
	component string
	mu        *sync.Mutex
	buffer    *bytes.Buffer // set when Output is "buffer"
}

// NewApplicationLogger creates a new application logger.
func NewApplicationLogger(config Config) (ApplicationLogger, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	logger := &applicationLoggerImpl{
		config: config,
		mu:     &sync.Mutex{},
	}
	if config.Output == "buffer" {
		logger.buffer = &bytes.Buffer{}
	}
	return logger, nil
}

func validateConfig(config *Config) error {
	if config.Level == "" {
		config.Level = "info"
	}
	if _, ok := levelRanks[strings.ToLower(config.Level)]; !ok {
		return fmt.Errorf("invalid log level: %s", config.Level)
	}

	switch config.Format {
	case "":
		config.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Format)
	}

	switch config.Output {
	case "":
		config.Output = "stdout"
	case "stdout", "stderr", "buffer":
	default:
		return fmt.Errorf("invalid log output: %s", config.Output)
	}

	if config.TimestampFormat == "" {
		config.TimestampFormat = time.RFC3339Nano
	}
	return nil
}

// Debug logs a debug message with context.
func (l *applicationLoggerImpl) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "DEBUG", message, "", fields)
}

// Info logs an info message with context.
func (l *applicationLoggerImpl) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "INFO", message, "", fields)
}

// Warn logs a warning message with context.
func (l *applicationLoggerImpl) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "WARN", message, "", fields)
}

// Error logs an error message with context.
func (l *applicationLoggerImpl) Error(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "ERROR", message, "", fields)
}

// ErrorWithError logs an error message with an error object and context.
func (l *applicationLoggerImpl) ErrorWithError(ctx context.Context, err error, message string, fields Fields) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	l.log(ctx, "ERROR", message, errText, fields)
}

// WithComponent returns a logger scoped to a specific component name.
func (l *applicationLoggerImpl) WithComponent(component string) ApplicationLogger {
	scoped := *l
	scoped.component = component
	return &scoped
}

func (l *applicationLoggerImpl) log(ctx context.Context, level, message, errText string, fields Fields) {
	if !l.enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp:     time.Now().Format(l.config.TimestampFormat),
		Level:         level,
		Message:       message,
		CorrelationID: CorrelationIDFromContext(ctx),
		Component:     l.component,
		Error:         errText,
	}
	if len(fields) > 0 {
		entry.Metadata = fields
	}

	var line string
	if l.config.Format == "json" {
		encoded, err := json.Marshal(entry)
		if err != nil {
			// Marshal failure must not lose the message entirely.
			line = fmt.Sprintf(`{"level":"ERROR","message":"log entry marshal failed: %s"}`, err)
		} else {
			line = string(encoded)
		}
	} else {
		line = formatTextEntry(entry)
	}

	l.write(line)
}

func (l *applicationLoggerImpl) enabled(level string) bool {
	return levelRanks[strings.ToLower(level)] >= levelRanks[strings.ToLower(l.config.Level)]
}

func (l *applicationLoggerImpl) write(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.config.Output {
	case "buffer":
		l.buffer.WriteString(line + "\n")
	case "stderr":
		fmt.Fprintln(os.Stderr, line)
	default:
		fmt.Fprintln(os.Stdout, line)
	}
}

// BufferContents returns everything written so far when the logger was
// configured with Output "buffer". Used by tests.
func (l *applicationLoggerImpl) BufferContents() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buffer == nil {
		return ""
	}
	return l.buffer.String()
}

func formatTextEntry(entry LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Timestamp)
	b.WriteString(" [")
	b.WriteString(entry.Level)
	b.WriteString("] ")
	if entry.Component != "" {
		b.WriteString(entry.Component)
		b.WriteString(": ")
	}
	b.WriteString(entry.Message)
	if entry.CorrelationID != "" {
		b.WriteString(" correlation_id=")
		b.WriteString(entry.CorrelationID)
	}
	if entry.Error != "" {
		b.WriteString(" error=")
		b.WriteString(entry.Error)
	}

	keys := make([]string, 0, len(entry.Metadata))
	for k := range entry.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Metadata[k])
	}
	return b.String()
}

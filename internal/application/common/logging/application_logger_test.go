package logging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(t *testing.T, level, format string) *applicationLoggerImpl {
	t.Helper()

	logger, err := NewApplicationLogger(Config{Level: level, Format: format, Output: "buffer"})
	assert.NoError(t, err)
	return logger.(*applicationLoggerImpl)
}

func decodeEntries(t *testing.T, raw string) []LogEntry {
	t.Helper()

	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		assert.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNewApplicationLogger(t *testing.T) {
	t.Run("should apply defaults for empty fields", func(t *testing.T) {
		logger, err := NewApplicationLogger(Config{})
		assert.NoError(t, err)

		impl := logger.(*applicationLoggerImpl)
		assert.Equal(t, "info", impl.config.Level)
		assert.Equal(t, "json", impl.config.Format)
		assert.Equal(t, "stdout", impl.config.Output)
	})

	t.Run("should reject an unknown level", func(t *testing.T) {
		_, err := NewApplicationLogger(Config{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("should reject an unknown format", func(t *testing.T) {
		_, err := NewApplicationLogger(Config{Format: "xml"})
		assert.Error(t, err)
	})

	t.Run("should reject an unknown output", func(t *testing.T) {
		_, err := NewApplicationLogger(Config{Output: "syslog"})
		assert.Error(t, err)
	})
}

func TestApplicationLogger_JSONOutput(t *testing.T) {
	t.Run("should emit one JSON entry per call", func(t *testing.T) {
		logger := newBufferLogger(t, "debug", "json")

		logger.Info(context.Background(), "fault handled", Fields{"category": "HTTP"})

		entries := decodeEntries(t, logger.BufferContents())
		assert.Len(t, entries, 1)
		assert.Equal(t, "INFO", entries[0].Level)
		assert.Equal(t, "fault handled", entries[0].Message)
		assert.Equal(t, "HTTP", entries[0].Metadata["category"])
		assert.NotEmpty(t, entries[0].Timestamp)
	})

	t.Run("should carry the correlation id from the context", func(t *testing.T) {
		logger := newBufferLogger(t, "info", "json")
		ctx := WithCorrelationID(context.Background(), "corr-7")

		logger.Warn(ctx, "retrying publish", nil)

		entries := decodeEntries(t, logger.BufferContents())
		assert.Equal(t, "corr-7", entries[0].CorrelationID)
	})

	t.Run("should include the error text from ErrorWithError", func(t *testing.T) {
		logger := newBufferLogger(t, "info", "json")

		logger.ErrorWithError(context.Background(), errors.New("stream missing"), "publish failed", nil)

		entries := decodeEntries(t, logger.BufferContents())
		assert.Equal(t, "ERROR", entries[0].Level)
		assert.Equal(t, "stream missing", entries[0].Error)
	})

	t.Run("should tolerate a nil error", func(t *testing.T) {
		logger := newBufferLogger(t, "info", "json")

		logger.ErrorWithError(context.Background(), nil, "publish failed", nil)

		entries := decodeEntries(t, logger.BufferContents())
		assert.Empty(t, entries[0].Error)
	})
}

func TestApplicationLogger_LevelFiltering(t *testing.T) {
	t.Run("should drop entries below the configured level", func(t *testing.T) {
		logger := newBufferLogger(t, "warn", "json")

		logger.Debug(context.Background(), "ignored", nil)
		logger.Info(context.Background(), "ignored", nil)
		logger.Warn(context.Background(), "kept", nil)
		logger.Error(context.Background(), "kept", nil)

		assert.Len(t, decodeEntries(t, logger.BufferContents()), 2)
	})
}

func TestApplicationLogger_WithComponent(t *testing.T) {
	t.Run("should tag entries with the component name", func(t *testing.T) {
		logger := newBufferLogger(t, "info", "json")
		scoped := logger.WithComponent("fault-manager")

		scoped.Info(context.Background(), "initialized", nil)

		entries := decodeEntries(t, logger.BufferContents())
		assert.Equal(t, "fault-manager", entries[0].Component)
	})

	t.Run("should not alter the parent logger", func(t *testing.T) {
		logger := newBufferLogger(t, "info", "json")
		logger.WithComponent("fault-manager")

		logger.Info(context.Background(), "unscoped", nil)

		entries := decodeEntries(t, logger.BufferContents())
		assert.Empty(t, entries[0].Component)
	})
}

func TestApplicationLogger_TextOutput(t *testing.T) {
	t.Run("should render a readable single line", func(t *testing.T) {
		logger := newBufferLogger(t, "info", "text")
		ctx := WithCorrelationID(context.Background(), "corr-1")

		logger.WithComponent("dispatcher").Info(ctx, "fault routed", Fields{
			"strategy": "network_origin",
			"category": "EXTERNAL",
		})

		line := strings.TrimSpace(logger.BufferContents())
		assert.Contains(t, line, "[INFO]")
		assert.Contains(t, line, "dispatcher: fault routed")
		assert.Contains(t, line, "correlation_id=corr-1")
		// Metadata keys render sorted.
		assert.Contains(t, line, "category=EXTERNAL strategy=network_origin")
	})
}

func TestCorrelationIDFromContext(t *testing.T) {
	t.Run("should return empty for a nil or bare context", func(t *testing.T) {
		assert.Empty(t, CorrelationIDFromContext(nil))
		assert.Empty(t, CorrelationIDFromContext(context.Background()))
	})

	t.Run("should read the typed key", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "corr-2")
		assert.Equal(t, "corr-2", CorrelationIDFromContext(ctx))
	})

	t.Run("should accept the bare string key", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), "correlation_id", "corr-3") //nolint:staticcheck
		assert.Equal(t, "corr-3", CorrelationIDFromContext(ctx))
	})
}

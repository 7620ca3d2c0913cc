package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SeverityLevel represents the severity assigned to a classified fault.
type SeverityLevel struct {
	level string
}

const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

var validSeverityLevels = map[string]int{
	LevelFatal: 0,
	LevelError: 1,
	LevelWarn:  2,
	LevelInfo:  3,
}

// NewSeverityLevel creates a new severity level with validation.
func NewSeverityLevel(level string) (SeverityLevel, error) {
	if level == "" {
		return SeverityLevel{}, errors.New("invalid severity level: cannot be empty")
	}

	if _, exists := validSeverityLevels[level]; !exists {
		return SeverityLevel{}, fmt.Errorf("invalid severity level: %s is not a valid level", level)
	}

	return SeverityLevel{level: level}, nil
}

// MustSeverityLevel creates a severity level and panics on invalid input.
func MustSeverityLevel(level string) SeverityLevel {
	l, err := NewSeverityLevel(level)
	if err != nil {
		panic(err)
	}
	return l
}

// AllSeverityLevels returns every valid level, highest priority first.
func AllSeverityLevels() []SeverityLevel {
	levels := make([]SeverityLevel, len(validSeverityLevels))
	for name, idx := range validSeverityLevels {
		levels[idx] = SeverityLevel{level: name}
	}
	return levels
}

// String returns the string representation of the level.
func (l SeverityLevel) String() string {
	return l.level
}

// IsZero reports whether the level was never set.
func (l SeverityLevel) IsZero() bool {
	return l.level == ""
}

// IsFatal returns true if this is a fatal level.
func (l SeverityLevel) IsFatal() bool {
	return l.level == LevelFatal
}

// IsError returns true if this is an error level.
func (l SeverityLevel) IsError() bool {
	return l.level == LevelError
}

// IsWarn returns true if this is a warning level.
func (l SeverityLevel) IsWarn() bool {
	return l.level == LevelWarn
}

// IsInfo returns true if this is an info level.
func (l SeverityLevel) IsInfo() bool {
	return l.level == LevelInfo
}

// Priority returns the numeric priority (0 = highest priority).
func (l SeverityLevel) Priority() int {
	return validSeverityLevels[l.level]
}

// IsHigherPriority returns true if this level has higher priority than other.
func (l SeverityLevel) IsHigherPriority(other SeverityLevel) bool {
	return l.Priority() < other.Priority()
}

// RequiresNotification returns true if faults at this level should be
// flagged for notification by default.
func (l SeverityLevel) RequiresNotification() bool {
	return l.level == LevelFatal || l.level == LevelError
}

// Equals returns true if both levels are equal.
func (l SeverityLevel) Equals(other SeverityLevel) bool {
	return l.level == other.level
}

// MarshalJSON implements json.Marshaler.
func (l SeverityLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.level)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *SeverityLevel) UnmarshalJSON(data []byte) error {
	var level string
	if err := json.Unmarshal(data, &level); err != nil {
		return err
	}

	parsed, err := NewSeverityLevel(level)
	if err != nil {
		return err
	}

	l.level = parsed.level
	return nil
}

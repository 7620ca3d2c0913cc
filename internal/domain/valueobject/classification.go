package valueobject

import (
	"errors"
	"fmt"
)

// Classification is the outcome of running a fault through the classifier
// battery: category, level, code, the user-facing wording, and routing flags.
// Confidence is informational only; it never gates behavior.
type Classification struct {
	category       ExceptionCategory
	level          SeverityLevel
	code           string
	userMessage    string
	recoveryAdvice string
	shouldNotify   bool
	shouldLog      bool
	confidence     float64
}

// ClassificationParams carries the fields of a classification for the
// validating constructor.
type ClassificationParams struct {
	Category       ExceptionCategory
	Level          SeverityLevel
	Code           string
	UserMessage    string
	RecoveryAdvice string
	ShouldNotify   bool
	ShouldLog      bool
	Confidence     float64
}

// NewClassification creates a new classification with validation.
func NewClassification(params ClassificationParams) (Classification, error) {
	if params.Category.IsZero() {
		return Classification{}, errors.New("classification: category cannot be unset")
	}
	if params.Level.IsZero() {
		return Classification{}, errors.New("classification: level cannot be unset")
	}
	if params.Code == "" {
		return Classification{}, errors.New("classification: code cannot be empty")
	}
	if params.Confidence < 0 || params.Confidence > 1 {
		return Classification{}, fmt.Errorf("classification: confidence %v outside [0,1]", params.Confidence)
	}

	return Classification{
		category:       params.Category,
		level:          params.Level,
		code:           params.Code,
		userMessage:    params.UserMessage,
		recoveryAdvice: params.RecoveryAdvice,
		shouldNotify:   params.ShouldNotify,
		shouldLog:      params.ShouldLog,
		confidence:     params.Confidence,
	}, nil
}

// Category returns the assigned category.
func (c Classification) Category() ExceptionCategory {
	return c.category
}

// Level returns the assigned severity level.
func (c Classification) Level() SeverityLevel {
	return c.level
}

// Code returns the classification code.
func (c Classification) Code() string {
	return c.code
}

// UserMessage returns the user-facing message.
func (c Classification) UserMessage() string {
	return c.userMessage
}

// RecoveryAdvice returns the recovery advice.
func (c Classification) RecoveryAdvice() string {
	return c.recoveryAdvice
}

// ShouldNotify returns true if the fault should be flagged for notification.
func (c Classification) ShouldNotify() bool {
	return c.shouldNotify
}

// ShouldLog returns true if the fault should be logged.
func (c Classification) ShouldLog() bool {
	return c.shouldLog
}

// Confidence returns the classifier's confidence in [0,1].
func (c Classification) Confidence() float64 {
	return c.confidence
}

// Equals returns true if every field of both classifications matches.
func (c Classification) Equals(other Classification) bool {
	return c == other
}

package service

import (
	"context"
	"fmt"
	"strings"

	"faultline/internal/application/common/slogger"
	"faultline/internal/domain/valueobject"
)

// Classification codes produced by the recognizer battery.
const (
	CodeUnknownError    = "UNKNOWN_ERROR"
	CodeGeneralError    = "GENERAL_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeNetworkError    = "NETWORK_ERROR"
	CodeTransformError  = "TRANSFORM_ERROR"
)

// errorKindCategories maps a structured fault's declared kind to a category.
// Unknown kinds fall back to APPLICATION.
var errorKindCategories = map[string]string{
	"application":    valueobject.CategoryApplication,
	"business":       valueobject.CategoryDomain,
	"domain":         valueobject.CategoryDomain,
	"validation":     valueobject.CategoryValidation,
	"configuration":  valueobject.CategoryConfiguration,
	"config":         valueobject.CategoryConfiguration,
	"infrastructure": valueobject.CategoryInfrastructure,
	"database":       valueobject.CategoryInfrastructure,
	"storage":        valueobject.CategoryInfrastructure,
	"external":       valueobject.CategoryExternal,
	"integration":    valueobject.CategoryExternal,
	"http":           valueobject.CategoryHTTP,
}

// declaredSeverityLevels maps a structured fault's declared severity to a
// level. Unknown severities fall back to ERROR.
var declaredSeverityLevels = map[string]string{
	"fatal":    valueobject.LevelFatal,
	"critical": valueobject.LevelFatal,
	"error":    valueobject.LevelError,
	"warning":  valueobject.LevelWarn,
	"warn":     valueobject.LevelWarn,
	"info":     valueobject.LevelInfo,
}

// Keyword batteries. Checks are case-sensitive; only the fallback level
// keywords lower-case the message first. That asymmetry is deliberate and
// covered by tests.
var (
	validationKeywords = []string{"validation", "invalid", "required"}
	storageKeywords    = []string{"database", "query", "constraint", "duplicate", "foreign key"}
	networkKeywords    = []string{"network", "timeout", "ECONNREFUSED", "ENOTFOUND"}
)

// categoryUserMessages and categoryRecoveryAdvice hold the user-facing
// wording attached per category.
var categoryUserMessages = map[string]string{
	valueobject.CategoryApplication:    "An unexpected error occurred.",
	valueobject.CategoryDomain:         "The request conflicts with a business rule.",
	valueobject.CategoryInfrastructure: "A storage error occurred while processing your request.",
	valueobject.CategoryExternal:       "An upstream service is currently unreachable.",
	valueobject.CategoryConfiguration:  "The service is misconfigured.",
	valueobject.CategoryValidation:     "The provided input failed validation checks.",
}

var categoryRecoveryAdvice = map[string]string{
	valueobject.CategoryApplication:    "Try again; contact support if the problem persists.",
	valueobject.CategoryDomain:         "Review the request against the documented business rules.",
	valueobject.CategoryInfrastructure: "Retry shortly; contact support if the problem persists.",
	valueobject.CategoryExternal:       "Retry after a short delay.",
	valueobject.CategoryConfiguration:  "Contact the service operator.",
	valueobject.CategoryValidation:     "Review the highlighted fields and resubmit the request.",
}

// recognizer is one predicate+builder pair of the classification battery. A
// nil return means no match and the battery moves on.
type recognizer func(view faultView, message string) *valueobject.Classification

// FaultClassifier assigns a Classification to an arbitrary raw fault. It is a
// total function: internal failures and nil faults degrade to a
// low-confidence default instead of erroring.
type FaultClassifier struct {
	battery []recognizer
}

// NewFaultClassifier creates a classifier with the fixed recognizer order:
// structured application fault, HTTP shape, validation keywords, storage
// keywords, network keywords, keyword-level fallback.
func NewFaultClassifier() *FaultClassifier {
	c := &FaultClassifier{}
	c.battery = []recognizer{
		c.recognizeStructured,
		c.recognizeHTTP,
		c.recognizeValidation,
		c.recognizeStorage,
		c.recognizeNetwork,
		c.recognizeFallback,
	}
	return c
}

// Classify inspects a raw fault and assigns category, level, code, wording
// and routing flags. It never fails; classification ambiguity is resolved by
// battery order and internal errors produce the default classification.
func (c *FaultClassifier) Classify(
	fault interface{},
	exceptionContext *valueobject.ExceptionContext,
) (classification valueobject.Classification) {
	defer func() {
		if r := recover(); r != nil {
			slogger.WithComponent("classifier").ErrorWithError(context.Background(),
				fmt.Errorf("classifier panic: %v", r),
				"Classification failed, using default", nil)
			classification = DefaultClassification()
		}
	}()

	if fault == nil {
		return DefaultClassification()
	}

	view := viewOf(fault)
	message, _ := extractMessage(view)

	for _, recognize := range c.battery {
		if match := recognize(view, message); match != nil {
			return *match
		}
	}

	// The fallback recognizer always matches; reaching here means the
	// battery itself is broken.
	return DefaultClassification()
}

// DefaultClassification is the low-confidence classification used when a
// fault cannot be inspected at all.
func DefaultClassification() valueobject.Classification {
	classification, err := valueobject.NewClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(valueobject.CategoryApplication),
		Level:          valueobject.MustSeverityLevel(valueobject.LevelError),
		Code:           CodeUnknownError,
		UserMessage:    categoryUserMessages[valueobject.CategoryApplication],
		RecoveryAdvice: categoryRecoveryAdvice[valueobject.CategoryApplication],
		ShouldNotify:   false,
		ShouldLog:      true,
		Confidence:     0.1,
	})
	if err != nil {
		panic("default classification must be constructible: " + err.Error())
	}
	return classification
}

// recognizeStructured matches faults that declare their own kind, severity
// and code. Category and level come from the static lookup tables.
func (c *FaultClassifier) recognizeStructured(view faultView, _ string) *valueobject.Classification {
	kind, severity, code, ok := view.structured()
	if !ok {
		return nil
	}

	categoryName, found := errorKindCategories[strings.ToLower(kind)]
	if !found {
		categoryName = valueobject.CategoryApplication
	}
	levelName, found := declaredSeverityLevels[strings.ToLower(severity)]
	if !found {
		levelName = valueobject.LevelError
	}

	level := valueobject.MustSeverityLevel(levelName)
	return buildClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(categoryName),
		Level:          level,
		Code:           code,
		UserMessage:    categoryUserMessages[categoryName],
		RecoveryAdvice: categoryRecoveryAdvice[categoryName],
		ShouldNotify:   level.RequiresNotification(),
		ShouldLog:      true,
		Confidence:     1.0,
	})
}

// recognizeHTTP matches faults exposing a numeric status plus a response
// body. The level is derived from status-code bands.
func (c *FaultClassifier) recognizeHTTP(view faultView, _ string) *valueobject.Classification {
	status, hasStatus := view.status()
	_, hasResponse := view.response()
	if !hasStatus || !hasResponse {
		return nil
	}

	var levelName, userMessage string
	switch {
	case status >= 500:
		levelName = valueobject.LevelError
		userMessage = "The server encountered an error while processing your request."
	case status >= 400:
		levelName = valueobject.LevelWarn
		userMessage = "The request could not be completed as sent."
	default:
		levelName = valueobject.LevelInfo
		userMessage = "The request was processed."
	}

	return buildClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(valueobject.CategoryHTTP),
		Level:          valueobject.MustSeverityLevel(levelName),
		Code:           fmt.Sprintf("HTTP_%d", status),
		UserMessage:    userMessage,
		RecoveryAdvice: "Check the request and retry.",
		ShouldNotify:   status >= 500,
		ShouldLog:      true,
		Confidence:     0.9,
	})
}

// recognizeValidation matches validation-indicating substrings.
func (c *FaultClassifier) recognizeValidation(_ faultView, message string) *valueobject.Classification {
	if !containsAny(message, validationKeywords) {
		return nil
	}

	return buildClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(valueobject.CategoryValidation),
		Level:          valueobject.MustSeverityLevel(valueobject.LevelWarn),
		Code:           CodeValidationError,
		UserMessage:    categoryUserMessages[valueobject.CategoryValidation],
		RecoveryAdvice: categoryRecoveryAdvice[valueobject.CategoryValidation],
		ShouldNotify:   false,
		ShouldLog:      true,
		Confidence:     0.8,
	})
}

// recognizeStorage matches storage-indicating substrings.
func (c *FaultClassifier) recognizeStorage(_ faultView, message string) *valueobject.Classification {
	if !containsAny(message, storageKeywords) {
		return nil
	}

	return buildClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(valueobject.CategoryInfrastructure),
		Level:          valueobject.MustSeverityLevel(valueobject.LevelError),
		Code:           CodeDatabaseError,
		UserMessage:    categoryUserMessages[valueobject.CategoryInfrastructure],
		RecoveryAdvice: categoryRecoveryAdvice[valueobject.CategoryInfrastructure],
		ShouldNotify:   true,
		ShouldLog:      true,
		Confidence:     0.8,
	})
}

// recognizeNetwork matches network-indicating substrings.
func (c *FaultClassifier) recognizeNetwork(_ faultView, message string) *valueobject.Classification {
	if !containsAny(message, networkKeywords) {
		return nil
	}

	return buildClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(valueobject.CategoryExternal),
		Level:          valueobject.MustSeverityLevel(valueobject.LevelError),
		Code:           CodeNetworkError,
		UserMessage:    categoryUserMessages[valueobject.CategoryExternal],
		RecoveryAdvice: categoryRecoveryAdvice[valueobject.CategoryExternal],
		ShouldNotify:   true,
		ShouldLog:      true,
		Confidence:     0.7,
	})
}

// recognizeFallback always matches. The level is derived from lower-cased
// message keywords; the category is APPLICATION.
func (c *FaultClassifier) recognizeFallback(_ faultView, message string) *valueobject.Classification {
	lowered := strings.ToLower(message)

	levelName := valueobject.LevelInfo
	switch {
	case strings.Contains(lowered, "fatal") || strings.Contains(lowered, "critical"):
		levelName = valueobject.LevelFatal
	case strings.Contains(lowered, "error") || strings.Contains(lowered, "failed"):
		levelName = valueobject.LevelError
	case strings.Contains(lowered, "warning"):
		levelName = valueobject.LevelWarn
	}

	level := valueobject.MustSeverityLevel(levelName)
	return buildClassification(valueobject.ClassificationParams{
		Category:       valueobject.MustExceptionCategory(valueobject.CategoryApplication),
		Level:          level,
		Code:           CodeGeneralError,
		UserMessage:    categoryUserMessages[valueobject.CategoryApplication],
		RecoveryAdvice: categoryRecoveryAdvice[valueobject.CategoryApplication],
		ShouldNotify:   level.RequiresNotification(),
		ShouldLog:      true,
		Confidence:     0.5,
	})
}

func buildClassification(params valueobject.ClassificationParams) *valueobject.Classification {
	classification, err := valueobject.NewClassification(params)
	if err != nil {
		// Recognizers only build from validated tables; a failure here is a
		// programming error and the panic is recovered in Classify.
		panic(err)
	}
	return &classification
}

func containsAny(message string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}

// extractMessage applies the fixed extraction order: message field, plain
// string, nested error stringified, then the literal unknown-message text.
func extractMessage(view faultView) (string, bool) {
	if msg, ok := view.messageField(); ok {
		return msg, true
	}
	if msg, ok := view.asString(); ok {
		return msg, true
	}
	if nested, ok := view.errorField(); ok {
		if err, isErr := nested.(error); isErr {
			return err.Error(), true
		}
		return fmt.Sprintf("%v", nested), true
	}
	return "Unknown error occurred", false
}

package entity

import (
	"errors"
	"time"

	"faultline/internal/domain/valueobject"

	"github.com/google/uuid"
)

// UnifiedException is the canonical, immutable record produced exactly once
// per fault by the transformer. It is the unit of currency for every
// downstream component: strategies consume it, the fault bus receives a
// canonical copy, and it is discarded once handling returns.
type UnifiedException struct {
	id             string
	classification valueobject.Classification
	message        string
	context        *valueobject.ExceptionContext
	originalFault  error
	occurredAt     time.Time

	// Optional shape-dependent captures. Nil/zero when the source fault did
	// not expose them.
	details          map[string]interface{}
	validationErrors []string
	httpStatus       int
	httpResponse     interface{}
	traceID          string
	retryAfter       time.Duration
}

// UnifiedExceptionParams carries the optional captures for the constructor.
type UnifiedExceptionParams struct {
	Details          map[string]interface{}
	ValidationErrors []string
	HTTPStatus       int
	HTTPResponse     interface{}
	TraceID          string
	RetryAfter       time.Duration
}

// NewUnifiedException creates a new unified exception. The classification and
// context must already be resolved; the transformer is the only intended
// caller.
func NewUnifiedException(
	classification valueobject.Classification,
	message string,
	context *valueobject.ExceptionContext,
	originalFault error,
	params UnifiedExceptionParams,
) (*UnifiedException, error) {
	if classification.Category().IsZero() {
		return nil, errors.New("unified_exception: classification category cannot be unset")
	}
	if context == nil {
		return nil, errors.New("unified_exception: context cannot be nil")
	}
	if message == "" {
		message = "Unknown error occurred"
	}

	return &UnifiedException{
		id:               uuid.New().String(),
		classification:   classification,
		message:          message,
		context:          context,
		originalFault:    originalFault,
		occurredAt:       time.Now(),
		details:          params.Details,
		validationErrors: params.ValidationErrors,
		httpStatus:       params.HTTPStatus,
		httpResponse:     params.HTTPResponse,
		traceID:          params.TraceID,
		retryAfter:       params.RetryAfter,
	}, nil
}

// ID returns the stable exception identity.
func (e *UnifiedException) ID() string {
	return e.id
}

// Category returns the assigned category.
func (e *UnifiedException) Category() valueobject.ExceptionCategory {
	return e.classification.Category()
}

// Level returns the assigned severity level.
func (e *UnifiedException) Level() valueobject.SeverityLevel {
	return e.classification.Level()
}

// Code returns the classification code.
func (e *UnifiedException) Code() string {
	return e.classification.Code()
}

// Message returns the extracted fault message.
func (e *UnifiedException) Message() string {
	return e.message
}

// Classification returns the full classification snapshot.
func (e *UnifiedException) Classification() valueobject.Classification {
	return e.classification
}

// Context returns the exception context this record was built from.
func (e *UnifiedException) Context() *valueobject.ExceptionContext {
	return e.context
}

// OriginalFault returns the captured original fault, or nil when the source
// fault was not a structured error.
func (e *UnifiedException) OriginalFault() error {
	return e.originalFault
}

// OccurredAt returns the creation timestamp.
func (e *UnifiedException) OccurredAt() time.Time {
	return e.occurredAt
}

// Details returns the captured details bag, if any.
func (e *UnifiedException) Details() map[string]interface{} {
	return e.details
}

// ValidationErrors returns the captured validation errors, if any.
func (e *UnifiedException) ValidationErrors() []string {
	return e.validationErrors
}

// HTTPStatus returns the captured HTTP status, or 0.
func (e *UnifiedException) HTTPStatus() int {
	return e.httpStatus
}

// HTTPResponse returns the captured HTTP response body echo, if any.
func (e *UnifiedException) HTTPResponse() interface{} {
	return e.httpResponse
}

// TraceID returns the captured trace identifier, if any.
func (e *UnifiedException) TraceID() string {
	return e.traceID
}

// RetryAfter returns the captured retry-after hint, or 0.
func (e *UnifiedException) RetryAfter() time.Duration {
	return e.retryAfter
}

// ShouldNotify returns true if this exception should be flagged for
// notification.
func (e *UnifiedException) ShouldNotify() bool {
	return e.classification.ShouldNotify()
}

// ShouldLog returns true if this exception should be logged.
func (e *UnifiedException) ShouldLog() bool {
	return e.classification.ShouldLog()
}

// UserMessage returns the user-facing message from the classification.
func (e *UnifiedException) UserMessage() string {
	return e.classification.UserMessage()
}

// RecoveryAdvice returns the recovery advice from the classification.
func (e *UnifiedException) RecoveryAdvice() string {
	return e.classification.RecoveryAdvice()
}

// ErrorResponse is the safe, user-facing rendering of a unified exception.
type ErrorResponse struct {
	Title            string      `json:"title"`
	Status           int         `json:"status"`
	Code             string      `json:"code"`
	Message          string      `json:"message"`
	RecoveryAdvice   string      `json:"recovery_advice,omitempty"`
	RequestID        string      `json:"request_id,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
	ValidationErrors []string    `json:"validation_errors,omitempty"`
	HTTPStatus       int         `json:"http_status,omitempty"`
	HTTPResponse     interface{} `json:"http_response,omitempty"`
}

// responseTitles maps (category, level) to the response title. Levels missing
// from a row fall back to the row's ERROR entry.
var responseTitles = map[string]map[string]string{
	valueobject.CategoryHTTP: {
		valueobject.LevelInfo:  "Request Completed",
		valueobject.LevelWarn:  "Request Failed",
		valueobject.LevelError: "Request Error",
		valueobject.LevelFatal: "Critical Request Error",
	},
	valueobject.CategoryApplication: {
		valueobject.LevelInfo:  "Notice",
		valueobject.LevelWarn:  "Application Warning",
		valueobject.LevelError: "Application Error",
		valueobject.LevelFatal: "Critical Application Error",
	},
	valueobject.CategoryDomain: {
		valueobject.LevelWarn:  "Business Rule Warning",
		valueobject.LevelError: "Business Rule Violation",
		valueobject.LevelFatal: "Critical Business Failure",
	},
	valueobject.CategoryInfrastructure: {
		valueobject.LevelWarn:  "Service Degraded",
		valueobject.LevelError: "Service Temporarily Unavailable",
		valueobject.LevelFatal: "Service Outage",
	},
	valueobject.CategoryExternal: {
		valueobject.LevelWarn:  "Upstream Service Warning",
		valueobject.LevelError: "External Service Error",
		valueobject.LevelFatal: "External Service Outage",
	},
	valueobject.CategoryConfiguration: {
		valueobject.LevelWarn:  "Configuration Warning",
		valueobject.LevelError: "Configuration Error",
		valueobject.LevelFatal: "Critical Configuration Error",
	},
	valueobject.CategoryValidation: {
		valueobject.LevelInfo:  "Input Notice",
		valueobject.LevelWarn:  "Validation Failed",
		valueobject.LevelError: "Validation Error",
	},
}

// responseStatuses maps (category, level) to the suggested HTTP status.
// Levels missing from a row fall back to the row's ERROR entry.
var responseStatuses = map[string]map[string]int{
	valueobject.CategoryHTTP: {
		valueobject.LevelInfo:  200,
		valueobject.LevelWarn:  400,
		valueobject.LevelError: 500,
		valueobject.LevelFatal: 500,
	},
	valueobject.CategoryApplication: {
		valueobject.LevelInfo:  200,
		valueobject.LevelWarn:  400,
		valueobject.LevelError: 500,
		valueobject.LevelFatal: 500,
	},
	valueobject.CategoryDomain: {
		valueobject.LevelWarn:  409,
		valueobject.LevelError: 409,
		valueobject.LevelFatal: 500,
	},
	valueobject.CategoryInfrastructure: {
		valueobject.LevelWarn:  503,
		valueobject.LevelError: 503,
		valueobject.LevelFatal: 503,
	},
	valueobject.CategoryExternal: {
		valueobject.LevelWarn:  502,
		valueobject.LevelError: 502,
		valueobject.LevelFatal: 502,
	},
	valueobject.CategoryConfiguration: {
		valueobject.LevelWarn:  500,
		valueobject.LevelError: 500,
		valueobject.LevelFatal: 500,
	},
	valueobject.CategoryValidation: {
		valueobject.LevelInfo:  400,
		valueobject.LevelWarn:  422,
		valueobject.LevelError: 400,
	},
}

const (
	defaultResponseTitle  = "Application Error"
	defaultResponseStatus = 500
)

// RenderErrorResponse builds the user-facing response for this exception. It
// is a pure function of the exception's fields and the supplied request id.
func (e *UnifiedException) RenderErrorResponse(requestID string) ErrorResponse {
	category := e.Category().String()
	level := e.Level().String()

	resp := ErrorResponse{
		Title:          lookupResponseTitle(category, level),
		Status:         lookupResponseStatus(category, level),
		Code:           e.Code(),
		Message:        e.UserMessage(),
		RecoveryAdvice: e.RecoveryAdvice(),
		RequestID:      requestID,
		Timestamp:      e.occurredAt,
	}

	if resp.Message == "" {
		resp.Message = e.message
	}

	// Category-specific extras: validation faults echo their field errors,
	// HTTP faults echo the upstream status and body.
	if e.Category().IsValidation() && len(e.validationErrors) > 0 {
		resp.ValidationErrors = append([]string(nil), e.validationErrors...)
	}
	if e.Category().IsHTTP() && e.httpStatus != 0 {
		resp.HTTPStatus = e.httpStatus
		resp.HTTPResponse = e.httpResponse
	}

	return resp
}

func lookupResponseTitle(category, level string) string {
	row, ok := responseTitles[category]
	if !ok {
		return defaultResponseTitle
	}
	if title, ok := row[level]; ok {
		return title
	}
	if title, ok := row[valueobject.LevelError]; ok {
		return title
	}
	return defaultResponseTitle
}

func lookupResponseStatus(category, level string) int {
	row, ok := responseStatuses[category]
	if !ok {
		return defaultResponseStatus
	}
	if status, ok := row[level]; ok {
		return status
	}
	if status, ok := row[valueobject.LevelError]; ok {
		return status
	}
	return defaultResponseStatus
}

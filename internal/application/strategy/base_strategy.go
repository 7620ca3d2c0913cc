// Package strategy holds the per-category fault-handling strategies. Each
// variant fixes a name, a dispatch priority and the category it accepts, and
// converts a unified exception into a sanitized, user-facing response.
package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
)

// genericUserMessage is used when a code has no entry in a variant's
// localized message table.
const genericUserMessage = "An error occurred while processing your request."

// baseStrategy carries the state and behavior shared by all four variants:
// registry identity, the enabled flag, the statistics tracker, and the
// response-building skeleton. Variants contribute their localized message
// table and their extra context/response fields.
type baseStrategy struct {
	name           string
	priority       int
	category       valueobject.ExceptionCategory
	errorType      string
	messages       map[string]string
	contextExtras  func(exception *entity.UnifiedException) map[string]interface{}
	responseExtras func(exception *entity.UnifiedException) map[string]interface{}

	mu      sync.RWMutex
	enabled bool
	tracker *entity.StatisticsTracker
}

func newBaseStrategy(
	name string,
	priority int,
	category valueobject.ExceptionCategory,
	errorType string,
	messages map[string]string,
) baseStrategy {
	return baseStrategy{
		name:      name,
		priority:  priority,
		category:  category,
		errorType: errorType,
		messages:  messages,
		enabled:   true,
		tracker:   entity.NewStatisticsTracker(),
	}
}

// Name returns the unique registry name of the strategy.
func (s *baseStrategy) Name() string {
	return s.name
}

// Priority returns the dispatch priority; lower values run first.
func (s *baseStrategy) Priority() int {
	return s.priority
}

// CanHandle accepts exactly the exceptions carrying this variant's category.
func (s *baseStrategy) CanHandle(exception *entity.UnifiedException) bool {
	if exception == nil {
		return false
	}
	return exception.Category().Equals(s.category)
}

// IsEnabled reports whether the strategy participates in dispatch.
func (s *baseStrategy) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled toggles dispatch participation. Statistics are preserved.
func (s *baseStrategy) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Stats returns a snapshot of the strategy's execution statistics.
func (s *baseStrategy) Stats() entity.ExecutionStatistics {
	return s.tracker.Snapshot()
}

// ResetStats zeroes the strategy's execution statistics.
func (s *baseStrategy) ResetStats() {
	s.tracker.Reset()
}

// Handle builds the sanitized response for the exception. Disabled strategies
// short-circuit to a failed result without invoking the builder; builder
// panics are recovered into failed results. Handle never propagates.
func (s *baseStrategy) Handle(_ context.Context, exception *entity.UnifiedException) entity.ExecutionResult {
	if !s.IsEnabled() {
		return entity.FailureResult(s.name, entity.ActionStrategyDisabled, "strategy is disabled")
	}

	start := time.Now()
	result := s.guardedBuild(exception)
	s.tracker.Record(result.Success, time.Since(start))
	return result
}

func (s *baseStrategy) guardedBuild(exception *entity.UnifiedException) (result entity.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = entity.FailureResult(s.name, entity.ActionBuilderFailed,
				fmt.Sprintf("response builder failed: %v", r))
		}
	}()

	if exception == nil {
		return entity.FailureResult(s.name, entity.ActionBuilderFailed, "exception is nil")
	}

	return entity.SuccessResult(s.name, entity.ActionResponseBuilt, s.buildResponse(exception))
}

// buildResponse assembles the category-specific response payload. The whole
// payload passes through the denylist sanitizer before leaving the strategy.
func (s *baseStrategy) buildResponse(exception *entity.UnifiedException) map[string]interface{} {
	response := map[string]interface{}{
		"error_type": s.errorType,
		"code":       exception.Code(),
		"message":    s.localizedMessage(exception.Code()),
		"severity":   exception.Level().String(),
		"timestamp":  exception.OccurredAt(),
		"context":    s.contextEcho(exception),
	}

	if details := exception.Details(); len(details) > 0 {
		response["details"] = details
	}
	if traceID := exception.TraceID(); traceID != "" {
		response["trace_id"] = traceID
	}
	if retryAfter := exception.RetryAfter(); retryAfter > 0 {
		response["retry_after"] = int(retryAfter.Seconds())
	}
	if s.responseExtras != nil {
		for field, value := range s.responseExtras(exception) {
			response[field] = value
		}
	}

	return sanitizeMap(response)
}

// localizedMessage resolves a code through the variant's static message
// table, falling back to the generic wording.
func (s *baseStrategy) localizedMessage(code string) string {
	if message, ok := s.messages[code]; ok {
		return message
	}
	return genericUserMessage
}

// contextEcho trims the exception context to the identifiers safe to echo.
func (s *baseStrategy) contextEcho(exception *entity.UnifiedException) map[string]interface{} {
	echo := map[string]interface{}{}
	exceptionContext := exception.Context()
	if exceptionContext == nil {
		return echo
	}

	putNonEmpty(echo, "tenant_id", exceptionContext.TenantID())
	putNonEmpty(echo, "user_id", exceptionContext.UserID())
	putNonEmpty(echo, "organization_id", exceptionContext.OrganizationID())
	putNonEmpty(echo, "department_id", exceptionContext.DepartmentID())
	putNonEmpty(echo, "request_id", exceptionContext.RequestID())

	if s.contextExtras != nil {
		for field, value := range s.contextExtras(exception) {
			echo[field] = value
		}
	}
	return echo
}

func putNonEmpty(fields map[string]interface{}, name, value string) {
	if value != "" {
		fields[name] = value
	}
}

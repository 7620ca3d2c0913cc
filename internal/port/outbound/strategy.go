package outbound

import (
	"context"

	"faultline/internal/domain/entity"
)

// Strategy is a category-specific handler that converts a unified exception
// into a sanitized, user-facing response. Implementations fix their own name,
// priority (lower runs first) and accept predicate; they never propagate
// errors out of Handle.
type Strategy interface {
	// Name returns the unique registry name of the strategy.
	Name() string

	// Priority returns the dispatch priority; lower values run first.
	Priority() int

	// CanHandle reports whether this strategy accepts the exception.
	CanHandle(exception *entity.UnifiedException) bool

	// Handle builds the sanitized response for the exception. Internal
	// failures are converted into failed ExecutionResults, never returned
	// as errors.
	Handle(ctx context.Context, exception *entity.UnifiedException) entity.ExecutionResult

	// IsEnabled reports whether the strategy participates in dispatch.
	IsEnabled() bool

	// SetEnabled toggles dispatch participation without touching
	// registration or statistics.
	SetEnabled(enabled bool)

	// Stats returns a snapshot of the strategy's execution statistics.
	Stats() entity.ExecutionStatistics

	// ResetStats zeroes the strategy's execution statistics.
	ResetStats()
}

package inbound

import (
	"context"

	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
)

// HandleResult is the structured outcome returned to callers of Handle. The
// manager boundary is the single place where a failure indication surfaces;
// nothing below it raises past its own layer.
type HandleResult struct {
	Success     bool                     `json:"success"`
	ExceptionID string                   `json:"exception_id,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Results     []entity.ExecutionResult `json:"results,omitempty"`
}

// ManagerHealth is the manager's health surface.
type ManagerHealth struct {
	Initialized   bool  `json:"initialized"`
	BusConnected  bool  `json:"bus_connected"`
	TotalHandled  int64 `json:"total_handled"`
	TotalFailed   int64 `json:"total_failed"`
	TotalUnrouted int64 `json:"total_unrouted"`
}

// FaultHandler is the top-level entry point of the fault pipeline.
type FaultHandler interface {
	// Initialize prepares the pipeline; idempotent.
	Initialize(ctx context.Context) error

	// Destroy tears the pipeline down; idempotent.
	Destroy(ctx context.Context) error

	// Handle runs one fault through transform, publish and dispatch. A nil
	// exception context is a caller contract violation and yields a failed
	// result without transforming the fault.
	Handle(ctx context.Context, fault interface{}, exceptionContext *valueobject.ExceptionContext) HandleResult

	// Stats returns the manager's global execution statistics.
	Stats() entity.ExecutionStatistics

	// Health returns the manager's health surface.
	Health() ManagerHealth
}

// FaultConsumer is a long-running inbound adapter that feeds faults from an
// external source into a FaultHandler.
type FaultConsumer interface {
	// Start begins consuming; blocks until the consumer is running.
	Start(ctx context.Context) error

	// Stop drains in-flight work and shuts the consumer down.
	Stop(ctx context.Context) error

	// IsRunning reports whether the consumer is currently active.
	IsRunning() bool
}

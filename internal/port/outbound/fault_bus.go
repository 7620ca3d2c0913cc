package outbound

import (
	"context"
	"time"
)

// BusError is the canonical error shape forwarded to the external fault bus:
// message and name, plus the unified exception's identity fields flattened as
// custom attributes.
type BusError struct {
	Message       string                 `json:"message"`
	Name          string                 `json:"name"`
	ID            string                 `json:"id"`
	Category      string                 `json:"category"`
	Level         string                 `json:"level"`
	Code          string                 `json:"code"`
	Context       map[string]interface{} `json:"context,omitempty"`
	OccurredAt    time.Time              `json:"occurredAt"`
	OriginalError string                 `json:"originalError,omitempty"`
}

// BusContext is the canonical context shape forwarded alongside a BusError.
// Source is the lower-cased bus value (web/api/cli/system); CustomData merges
// organizationId/departmentId/occurredAt with any caller-supplied extras.
type BusContext struct {
	TenantID      string                 `json:"tenantId,omitempty"`
	UserID        string                 `json:"userId,omitempty"`
	RequestID     string                 `json:"requestId,omitempty"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	UserAgent     string                 `json:"userAgent,omitempty"`
	IPAddress     string                 `json:"ipAddress,omitempty"`
	Source        string                 `json:"source"`
	CustomData    map[string]interface{} `json:"customData,omitempty"`
}

// FaultBusHealthStatus describes the bus connection state for health surfaces.
type FaultBusHealthStatus struct {
	Connected        bool   `json:"connected"`
	JetStreamEnabled bool   `json:"jetstream_enabled"`
	Uptime           string `json:"uptime"`
	Reconnects       int    `json:"reconnects"`
	LastError        string `json:"last_error,omitempty"`
	CircuitBreaker   string `json:"circuit_breaker"`
}

// FaultBusMetrics describes publish throughput for observability surfaces.
type FaultBusMetrics struct {
	PublishedCount int64  `json:"published_count"`
	FailedCount    int64  `json:"failed_count"`
	AverageLatency string `json:"average_latency"`
}

// FaultBus is the outbound publish contract to the external fault-reporting
// bus. Publish may fail; callers treat it as best-effort and must never let a
// bus failure propagate into their own result.
type FaultBus interface {
	// Publish forwards one canonical fault to the bus.
	Publish(ctx context.Context, fault BusError, faultContext BusContext) error

	// Connect establishes the bus connection.
	Connect() error

	// Disconnect closes the bus connection.
	Disconnect() error

	// EnsureStream creates the backing stream if it does not exist.
	EnsureStream() error

	// GetConnectionHealth returns the current connection health snapshot.
	GetConnectionHealth() FaultBusHealthStatus

	// GetPublishMetrics returns current publish metrics.
	GetPublishMetrics() FaultBusMetrics
}

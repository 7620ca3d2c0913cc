package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"faultline/internal/config"
	"faultline/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// NATS connection timeout.
	natsConnectionTimeoutSeconds = 5

	// Defaults for the fault stream when the config leaves them unset.
	defaultStreamName = "FAULTS"
	defaultSubject    = "faults.reported"
	defaultMaxAge     = 24 * time.Hour
)

// Circuit breaker tuning: publishing trips open after maxPublishFailures
// consecutive failures and re-closes after circuitOpenDuration.
const (
	maxPublishFailures  = 3
	circuitOpenDuration = 30 * time.Second
)

// FaultBusMessage is the wire envelope published to the fault bus. The error
// and context follow the canonical bus contract; the envelope adds delivery
// identity and timestamp.
type FaultBusMessage struct {
	MessageID string              `json:"messageId"`
	Error     outbound.BusError   `json:"error"`
	Context   outbound.BusContext `json:"context"`
	Timestamp time.Time           `json:"timestamp"`
}

// NATSFaultBus provides the NATS JetStream implementation of FaultBus.
type NATSFaultBus struct {
	config     config.BusConfig
	conn       *nats.Conn
	js         nats.JetStreamContext
	isTestMode bool

	mutex          sync.RWMutex
	isConnected    bool
	streamExists   bool
	connectedAt    time.Time
	reconnectCount int
	lastError      error

	publishedCount int64
	failedCount    int64
	averageLatency time.Duration
	lastPublished  time.Time

	circuitBreakerOpen bool
	failureCount       int
	lastFailureTime    time.Time
}

// NewNATSFaultBus creates a fault bus over the given config. It validates but
// does not connect; call Connect before publishing.
func NewNATSFaultBus(cfg config.BusConfig) (*NATSFaultBus, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(cfg.URL, "nats://") {
		return nil, errors.New("invalid NATS URL scheme")
	}
	if cfg.MaxReconnects < 0 {
		return nil, errors.New("max reconnects cannot be negative")
	}
	if cfg.ReconnectWait < 0 {
		return nil, errors.New("reconnect wait cannot be negative")
	}

	if cfg.StreamName == "" {
		cfg.StreamName = defaultStreamName
	}
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}

	return &NATSFaultBus{
		config:     cfg,
		isTestMode: cfg.TestMode,
	}, nil
}

// Connect establishes the NATS connection and JetStream context.
func (b *NATSFaultBus) Connect() error {
	if b.isTestMode {
		b.mutex.Lock()
		b.isConnected = true
		b.connectedAt = time.Now()
		b.mutex.Unlock()
		return nil
	}

	opts := []nats.Option{
		nats.MaxReconnects(b.config.MaxReconnects),
		nats.ReconnectWait(b.config.ReconnectWait),
		nats.Timeout(natsConnectionTimeoutSeconds * time.Second),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.mutex.Lock()
			b.reconnectCount++
			b.isConnected = true
			b.mutex.Unlock()
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.mutex.Lock()
			b.isConnected = false
			if err != nil {
				b.lastError = err
			}
			b.mutex.Unlock()
		}),
	}

	conn, err := nats.Connect(b.config.URL, opts...)
	if err != nil {
		b.recordConnectionError(err)
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		b.recordConnectionError(err)
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	b.mutex.Lock()
	b.conn = conn
	b.js = js
	b.isConnected = true
	b.connectedAt = time.Now()
	b.mutex.Unlock()
	return nil
}

// Disconnect closes the NATS connection.
func (b *NATSFaultBus) Disconnect() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
		b.js = nil
	}
	b.isConnected = false
	return nil
}

// EnsureStream creates the fault stream if it does not exist.
func (b *NATSFaultBus) EnsureStream() error {
	if b.isTestMode {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		if !b.isConnected {
			return errors.New("not connected to NATS server")
		}
		b.streamExists = true
		return nil
	}

	b.mutex.RLock()
	js := b.js
	b.mutex.RUnlock()
	if js == nil {
		return errors.New("not connected to NATS server")
	}

	streamConfig := &nats.StreamConfig{
		Name:      b.config.StreamName,
		Subjects:  []string{subjectRoot(b.config.Subject) + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    b.config.MaxAge,
		Replicas:  1,
	}

	if _, err := js.AddStream(streamConfig); err != nil {
		// A pre-existing stream is fine.
		if _, infoErr := js.StreamInfo(b.config.StreamName); infoErr == nil {
			b.mutex.Lock()
			b.streamExists = true
			b.mutex.Unlock()
			return nil
		}
		return fmt.Errorf("failed to create stream: %w", err)
	}

	b.mutex.Lock()
	b.streamExists = true
	b.mutex.Unlock()
	return nil
}

// Publish forwards one canonical fault to the bus.
func (b *NATSFaultBus) Publish(
	ctx context.Context,
	fault outbound.BusError,
	faultContext outbound.BusContext,
) error {
	start := time.Now()

	select {
	case <-ctx.Done():
		b.updateMetrics(false, time.Since(start))
		return ctx.Err()
	default:
	}

	if fault.Message == "" {
		return errors.New("fault message cannot be empty")
	}
	if fault.ID == "" {
		return errors.New("fault id cannot be empty")
	}

	if b.isCircuitBreakerOpen() {
		b.updateMetrics(false, time.Since(start))
		return errors.New("circuit breaker open: too many recent publish failures")
	}

	envelope := FaultBusMessage{
		MessageID: uuid.New().String(),
		Error:     fault,
		Context:   faultContext,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		b.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to marshal fault message: %w", err)
	}

	if b.isTestMode {
		b.mutex.RLock()
		connected, streamExists := b.isConnected, b.streamExists
		b.mutex.RUnlock()
		if !connected {
			b.updateMetrics(false, time.Since(start))
			return errors.New("not connected in test mode")
		}
		if !streamExists {
			b.updateMetrics(false, time.Since(start))
			return errors.New("stream does not exist")
		}
		b.updateMetrics(true, time.Since(start))
		return nil
	}

	b.mutex.RLock()
	js := b.js
	b.mutex.RUnlock()
	if js == nil {
		b.updateMetrics(false, time.Since(start))
		return errors.New("publish failed: not connected to NATS")
	}

	if _, err := js.PublishAsync(b.config.Subject, data, nats.Context(ctx)); err != nil {
		b.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to publish fault: %w", err)
	}

	b.updateMetrics(true, time.Since(start))
	return nil
}

// GetConnectionHealth returns the current connection health snapshot.
func (b *NATSFaultBus) GetConnectionHealth() outbound.FaultBusHealthStatus {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	status := outbound.FaultBusHealthStatus{
		Connected:        b.isConnected,
		JetStreamEnabled: b.js != nil || (b.isTestMode && b.isConnected),
		Reconnects:       b.reconnectCount,
	}

	if b.isConnected {
		status.Uptime = time.Since(b.connectedAt).String()
	} else {
		status.Uptime = "0s"
	}

	if b.lastError != nil {
		status.LastError = b.lastError.Error()
	}

	if b.circuitBreakerOpen {
		status.CircuitBreaker = "open"
	} else {
		status.CircuitBreaker = "closed"
	}

	return status
}

// GetPublishMetrics returns current publish metrics.
func (b *NATSFaultBus) GetPublishMetrics() outbound.FaultBusMetrics {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return outbound.FaultBusMetrics{
		PublishedCount: b.publishedCount,
		FailedCount:    b.failedCount,
		AverageLatency: b.averageLatency.String(),
	}
}

// ResetCircuitBreaker resets the circuit breaker state (for testing).
func (b *NATSFaultBus) ResetCircuitBreaker() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.circuitBreakerOpen = false
	b.failureCount = 0
	b.lastFailureTime = time.Time{}
}

func (b *NATSFaultBus) recordConnectionError(err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.isConnected = false
	b.lastError = err
}

// updateMetrics records one publish outcome and drives the circuit breaker.
func (b *NATSFaultBus) updateMetrics(success bool, latency time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if success {
		b.publishedCount++
		b.lastPublished = time.Now()
		b.failureCount = 0
		b.circuitBreakerOpen = false

		// Exponential moving average with alpha = 0.1.
		if b.averageLatency == 0 {
			b.averageLatency = latency
		} else {
			b.averageLatency = time.Duration(
				0.9*float64(b.averageLatency) + 0.1*float64(latency),
			)
		}
		return
	}

	b.failedCount++
	b.failureCount++
	b.lastFailureTime = time.Now()
	if b.failureCount >= maxPublishFailures {
		b.circuitBreakerOpen = true
	}
}

func (b *NATSFaultBus) isCircuitBreakerOpen() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.circuitBreakerOpen && time.Since(b.lastFailureTime) > circuitOpenDuration {
		b.circuitBreakerOpen = false
		b.failureCount = 0
	}
	return b.circuitBreakerOpen
}

// subjectRoot returns the first token of a subject, for the stream's wildcard
// binding ("faults.reported" -> "faults").
func subjectRoot(subject string) string {
	if idx := strings.Index(subject, "."); idx > 0 {
		return subject[:idx]
	}
	return subject
}

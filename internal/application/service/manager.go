package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"faultline/internal/application/common/logging"
	"faultline/internal/application/common/slogger"
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
	"faultline/internal/port/inbound"
	"faultline/internal/port/outbound"
)

// defaultPublishTimeout bounds the best-effort fault bus publish so it can
// never stall a caller's Handle.
const defaultPublishTimeout = 2 * time.Second

// ErrMissingContext is returned when Handle is called without an exception
// context. A missing context is a caller contract violation, not a fault to
// classify.
var ErrMissingContext = errors.New("exception context is required")

// PostProcessor is a cross-cutting handler run after dispatch. Each one is
// independently guarded; a failure is logged and does not abort the rest.
type PostProcessor func(ctx context.Context, exception *entity.UnifiedException, results []entity.ExecutionResult) error

// FaultManagerConfig holds manager tunables.
type FaultManagerConfig struct {
	PublishTimeout time.Duration
}

// FaultManager is the top-level entry point of the fault pipeline. It owns
// lifecycle, aggregate statistics and health, the post-processing handler
// registry, and the best-effort publish to the external fault bus.
type FaultManager struct {
	config      FaultManagerConfig
	transformer *FaultTransformer
	dispatcher  *StrategyDispatcher
	bus         outbound.FaultBus
	metrics     PipelineMetricsRecorder
	logger      logging.ApplicationLogger

	mu           sync.RWMutex
	initialized  bool
	handlers     map[string]PostProcessor
	handlerOrder []string

	tracker       *entity.StatisticsTracker
	totalUnrouted int64
}

// NewFaultManager creates a manager over the given collaborators. The bus
// and metrics recorder are optional; a nil bus disables publishing.
func NewFaultManager(
	config FaultManagerConfig,
	transformer *FaultTransformer,
	dispatcher *StrategyDispatcher,
	bus outbound.FaultBus,
	metrics PipelineMetricsRecorder,
) *FaultManager {
	if transformer == nil {
		transformer = NewFaultTransformer(nil)
	}
	if dispatcher == nil {
		dispatcher = NewStrategyDispatcher()
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaultPublishTimeout
	}

	dispatcher.SetMetricsRecorder(metrics)

	return &FaultManager{
		config:      config,
		transformer: transformer,
		dispatcher:  dispatcher,
		bus:         bus,
		metrics:     metrics,
		logger:      slogger.WithComponent("fault-manager"),
		handlers:    make(map[string]PostProcessor),
		tracker:     entity.NewStatisticsTracker(),
	}
}

// Dispatcher exposes the strategy registry for startup-time registration.
func (m *FaultManager) Dispatcher() *StrategyDispatcher {
	return m.dispatcher
}

// Initialize prepares the pipeline. Idempotent; a bus connection failure is
// logged and leaves the manager running without publishing.
func (m *FaultManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if m.bus != nil {
		if err := m.bus.Connect(); err != nil {
			m.logger.ErrorWithError(ctx, err,
				"Fault bus connection failed, continuing without publishing", nil)
		} else if err := m.bus.EnsureStream(); err != nil {
			m.logger.ErrorWithError(ctx, err,
				"Fault bus stream setup failed, continuing without publishing", nil)
		}
	}

	m.initialized = true
	m.logger.Info(ctx, "Fault manager initialized", slogger.Fields{
		"strategies": m.dispatcher.StrategyNames(),
	})
	return nil
}

// Destroy tears the pipeline down. Idempotent.
func (m *FaultManager) Destroy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}

	if m.bus != nil {
		if err := m.bus.Disconnect(); err != nil {
			m.logger.ErrorWithError(ctx, err, "Fault bus disconnect failed", nil)
		}
	}

	m.initialized = false
	m.logger.Info(ctx, "Fault manager destroyed", nil)
	return nil
}

// RegisterHandler adds a named post-processing handler. Duplicate names are
// an error.
func (m *FaultManager) RegisterHandler(name string, handler PostProcessor) error {
	if name == "" {
		return errors.New("handler name cannot be empty")
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.handlers[name]; exists {
		return fmt.Errorf("handler %q is already registered", name)
	}
	m.handlers[name] = handler
	m.handlerOrder = append(m.handlerOrder, name)
	return nil
}

// UnregisterHandler removes a handler by name; idempotent.
func (m *FaultManager) UnregisterHandler(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.handlers[name]; !exists {
		return false
	}
	delete(m.handlers, name)
	for i, registered := range m.handlerOrder {
		if registered == name {
			m.handlerOrder = append(m.handlerOrder[:i], m.handlerOrder[i+1:]...)
			break
		}
	}
	return true
}

// Handle runs one fault through the full pipeline: transform, best-effort
// bus publish, priority dispatch, post-processing. It never raises; any
// unexpected failure degrades to a failed HandleResult.
func (m *FaultManager) Handle(
	ctx context.Context,
	fault interface{},
	exceptionContext *valueobject.ExceptionContext,
) (result inbound.HandleResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "Fault handling panicked, returning degraded result",
				slogger.Fields{"panic": fmt.Sprintf("%v", r)})
			result = inbound.HandleResult{
				Success: false,
				Error:   fmt.Sprintf("internal failure: %v", r),
			}
			m.recordHandle(ctx, result, nil, time.Since(start))
		}
	}()

	if err := m.ensureInitialized(ctx); err != nil {
		result = inbound.HandleResult{Success: false, Error: err.Error()}
		m.recordHandle(ctx, result, nil, time.Since(start))
		return result
	}

	// A missing context is a contract violation; it short-circuits before
	// the transformer ever runs.
	if exceptionContext == nil {
		result = inbound.HandleResult{Success: false, Error: ErrMissingContext.Error()}
		m.recordHandle(ctx, result, nil, time.Since(start))
		return result
	}

	exception := m.transformer.Transform(fault, exceptionContext)

	if exception.ShouldLog() {
		m.logger.Info(ctx, "Fault transformed", slogger.Fields{
			"exception_id": exception.ID(),
			"category":     exception.Category().String(),
			"level":        exception.Level().String(),
			"code":         exception.Code(),
			"confidence":   exception.Classification().Confidence(),
		})
	}

	m.publishBestEffort(ctx, exception)

	results := m.dispatcher.Dispatch(ctx, exception)
	if len(results) == 0 {
		atomic.AddInt64(&m.totalUnrouted, 1)
		if m.metrics != nil {
			m.metrics.RecordFaultUnhandled(ctx, exception.Category().String())
		}
	}

	m.runPostProcessors(ctx, exception, results)

	result = inbound.HandleResult{
		Success:     true,
		ExceptionID: exception.ID(),
		Results:     results,
	}
	m.recordHandle(ctx, result, exception, time.Since(start))
	return result
}

// Stats returns the manager's global execution statistics.
func (m *FaultManager) Stats() entity.ExecutionStatistics {
	return m.tracker.Snapshot()
}

// ResetStats zeroes the manager's global execution statistics.
func (m *FaultManager) ResetStats() {
	m.tracker.Reset()
}

// Health returns the manager's health surface.
func (m *FaultManager) Health() inbound.ManagerHealth {
	m.mu.RLock()
	initialized := m.initialized
	m.mu.RUnlock()

	stats := m.tracker.Snapshot()
	health := inbound.ManagerHealth{
		Initialized:   initialized,
		TotalHandled:  stats.Total,
		TotalFailed:   stats.Failed,
		TotalUnrouted: atomic.LoadInt64(&m.totalUnrouted),
	}
	if m.bus != nil {
		health.BusConnected = m.bus.GetConnectionHealth().Connected
	}
	return health
}

func (m *FaultManager) ensureInitialized(ctx context.Context) error {
	m.mu.RLock()
	initialized := m.initialized
	m.mu.RUnlock()
	if initialized {
		return nil
	}
	return m.Initialize(ctx)
}

func (m *FaultManager) recordHandle(
	ctx context.Context,
	result inbound.HandleResult,
	exception *entity.UnifiedException,
	duration time.Duration,
) {
	m.tracker.Record(result.Success, duration)

	if m.metrics != nil {
		category, level := "unknown", "unknown"
		if exception != nil {
			category = exception.Category().String()
			level = exception.Level().String()
		}
		m.metrics.RecordFaultProcessed(ctx, category, level, result.Success, duration)
	}
}

// publishBestEffort forwards the canonical fault to the bus under its own
// timeout. Failures are logged and counted, never propagated.
func (m *FaultManager) publishBestEffort(ctx context.Context, exception *entity.UnifiedException) {
	if m.bus == nil {
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, m.config.PublishTimeout)
	defer cancel()

	busError, busContext := buildBusPayload(exception)
	if err := m.bus.Publish(publishCtx, busError, busContext); err != nil {
		m.logger.ErrorWithError(ctx, err, "Fault bus publish failed, continuing", slogger.Fields{
			"exception_id": exception.ID(),
		})
		if m.metrics != nil {
			m.metrics.RecordBusPublishFailure(ctx)
		}
	}
}

func (m *FaultManager) runPostProcessors(
	ctx context.Context,
	exception *entity.UnifiedException,
	results []entity.ExecutionResult,
) {
	m.mu.RLock()
	names := append([]string(nil), m.handlerOrder...)
	handlers := make([]PostProcessor, 0, len(names))
	for _, name := range names {
		handlers = append(handlers, m.handlers[name])
	}
	m.mu.RUnlock()

	for i, handler := range handlers {
		m.runGuardedHandler(ctx, names[i], handler, exception, results)
	}
}

func (m *FaultManager) runGuardedHandler(
	ctx context.Context,
	name string,
	handler PostProcessor,
	exception *entity.UnifiedException,
	results []entity.ExecutionResult,
) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "Post-processing handler panicked", slogger.Fields{
				"handler": name,
				"panic":   fmt.Sprintf("%v", r),
			})
		}
	}()

	if err := handler(ctx, exception, results); err != nil {
		m.logger.ErrorWithError(ctx, err, "Post-processing handler failed", slogger.Fields{
			"handler": name,
		})
	}
}

// buildBusPayload maps a unified exception onto the canonical bus shapes.
func buildBusPayload(exception *entity.UnifiedException) (outbound.BusError, outbound.BusContext) {
	exceptionContext := exception.Context()

	busError := outbound.BusError{
		Message:    exception.Message(),
		Name:       exception.Category().ExceptionName(),
		ID:         exception.ID(),
		Category:   exception.Category().String(),
		Level:      exception.Level().String(),
		Code:       exception.Code(),
		OccurredAt: exception.OccurredAt(),
	}
	if original := exception.OriginalFault(); original != nil {
		busError.OriginalError = original.Error()
	}
	if exceptionContext != nil {
		busError.Context = map[string]interface{}{
			"id":     exceptionContext.ID(),
			"source": exceptionContext.Source().String(),
		}
	}

	busContext := outbound.BusContext{Source: "system"}
	if exceptionContext != nil {
		customData := exceptionContext.CustomData()
		if customData == nil {
			customData = map[string]interface{}{}
		}
		if organizationID := exceptionContext.OrganizationID(); organizationID != "" {
			customData["organizationId"] = organizationID
		}
		if departmentID := exceptionContext.DepartmentID(); departmentID != "" {
			customData["departmentId"] = departmentID
		}
		customData["occurredAt"] = exceptionContext.OccurredAt()

		busContext = outbound.BusContext{
			TenantID:      exceptionContext.TenantID(),
			UserID:        exceptionContext.UserID(),
			RequestID:     exceptionContext.RequestID(),
			CorrelationID: exceptionContext.CorrelationID(),
			UserAgent:     exceptionContext.UserAgent(),
			IPAddress:     exceptionContext.IPAddress(),
			Source:        exceptionContext.Source().BusValue(),
			CustomData:    customData,
		}
	}

	return busError, busContext
}

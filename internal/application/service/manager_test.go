package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
	"faultline/internal/port/outbound"

	"github.com/stretchr/testify/assert"
)

// recordingBus is an in-memory FaultBus capturing published payloads.
type recordingBus struct {
	mu          sync.Mutex
	connected   bool
	publishErr  error
	published   []outbound.BusError
	contexts    []outbound.BusContext
	disconnects int
}

func (b *recordingBus) Publish(_ context.Context, fault outbound.BusError, faultContext outbound.BusContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, fault)
	b.contexts = append(b.contexts, faultContext)
	return nil
}

func (b *recordingBus) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *recordingBus) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.disconnects++
	return nil
}

func (b *recordingBus) EnsureStream() error { return nil }

func (b *recordingBus) GetConnectionHealth() outbound.FaultBusHealthStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return outbound.FaultBusHealthStatus{Connected: b.connected}
}

func (b *recordingBus) GetPublishMetrics() outbound.FaultBusMetrics {
	return outbound.FaultBusMetrics{}
}

func newTestManager(bus outbound.FaultBus) *FaultManager {
	return NewFaultManager(
		FaultManagerConfig{},
		NewFaultTransformer(NewFaultClassifier()),
		NewStrategyDispatcher(),
		bus,
		nil,
	)
}

func TestFaultManager_Lifecycle(t *testing.T) {
	t.Run("should initialize and destroy idempotently", func(t *testing.T) {
		bus := &recordingBus{}
		manager := newTestManager(bus)
		ctx := context.Background()

		assert.NoError(t, manager.Initialize(ctx))
		assert.NoError(t, manager.Initialize(ctx))
		assert.True(t, manager.Health().Initialized)

		assert.NoError(t, manager.Destroy(ctx))
		assert.NoError(t, manager.Destroy(ctx))
		assert.False(t, manager.Health().Initialized)
		assert.Equal(t, 1, bus.disconnects)
	})

	t.Run("should initialize lazily on first handle", func(t *testing.T) {
		manager := newTestManager(nil)

		result := manager.Handle(context.Background(), "something happened", systemContext())

		assert.True(t, result.Success)
		assert.True(t, manager.Health().Initialized)
	})
}

func TestFaultManager_Handle(t *testing.T) {
	t.Run("should fail fast on a nil exception context", func(t *testing.T) {
		bus := &recordingBus{}
		manager := newTestManager(bus)

		result := manager.Handle(context.Background(), errors.New("boom"), nil)

		assert.False(t, result.Success)
		assert.Equal(t, ErrMissingContext.Error(), result.Error)
		assert.Empty(t, result.ExceptionID)
		// The contract violation short-circuits before transform and publish.
		assert.Empty(t, bus.published)
	})

	t.Run("should succeed for a nil fault with a valid context", func(t *testing.T) {
		manager := newTestManager(&recordingBus{})

		result := manager.Handle(context.Background(), nil, systemContext())

		assert.True(t, result.Success)
		assert.NotEmpty(t, result.ExceptionID)
		// A nil fault degrades to the low-confidence default and is still
		// routed through the application strategy.
		assert.Len(t, result.Results, 1)
		assert.True(t, result.Results[0].Success)
	})

	t.Run("should publish the canonical fault to the bus", func(t *testing.T) {
		bus := &recordingBus{}
		manager := newTestManager(bus)

		exceptionContext := valueobject.NewExceptionContext(valueobject.ExceptionContextParams{
			TenantID:       "tenant-1",
			UserID:         "user-1",
			OrganizationID: "org-1",
			DepartmentID:   "dept-1",
			Source:         valueobject.MustSourceTag(valueobject.SourceWeb),
			CustomData:     map[string]interface{}{"feature": "checkout"},
		})

		result := manager.Handle(context.Background(), errors.New("Connection timeout"), exceptionContext)
		assert.True(t, result.Success)

		assert.Len(t, bus.published, 1)
		published := bus.published[0]
		assert.Equal(t, "Connection timeout", published.Message)
		assert.Equal(t, "ExternalServiceException", published.Name)
		assert.Equal(t, valueobject.CategoryExternal, published.Category)
		assert.Equal(t, CodeNetworkError, published.Code)
		assert.Equal(t, result.ExceptionID, published.ID)
		assert.Equal(t, "Connection timeout", published.OriginalError)

		busContext := bus.contexts[0]
		assert.Equal(t, "tenant-1", busContext.TenantID)
		assert.Equal(t, "web", busContext.Source)
		assert.Equal(t, "org-1", busContext.CustomData["organizationId"])
		assert.Equal(t, "dept-1", busContext.CustomData["departmentId"])
		assert.Equal(t, "checkout", busContext.CustomData["feature"])
		assert.Contains(t, busContext.CustomData, "occurredAt")
	})

	t.Run("should not fail the caller when the publish fails", func(t *testing.T) {
		bus := &recordingBus{publishErr: errors.New("bus down")}
		manager := newTestManager(bus)

		result := manager.Handle(context.Background(), "something happened", systemContext())

		assert.True(t, result.Success)
		assert.Empty(t, bus.published)
	})

	t.Run("should report unrouted faults in health", func(t *testing.T) {
		manager := newTestManager(nil)

		// Validation faults match no built-in strategy.
		result := manager.Handle(context.Background(), "field email is required", systemContext())

		assert.True(t, result.Success)
		assert.Empty(t, result.Results)
		assert.Equal(t, int64(1), manager.Health().TotalUnrouted)
	})

	t.Run("should fold every handle into the global statistics", func(t *testing.T) {
		manager := newTestManager(nil)

		manager.Handle(context.Background(), "something happened", systemContext())
		manager.Handle(context.Background(), errors.New("boom"), nil)

		stats := manager.Stats()
		assert.Equal(t, int64(2), stats.Total)
		assert.Equal(t, int64(1), stats.Succeeded)
		assert.Equal(t, int64(1), stats.Failed)
	})
}

func TestFaultManager_PostProcessors(t *testing.T) {
	t.Run("should run registered handlers in registration order", func(t *testing.T) {
		manager := newTestManager(nil)
		var order []string
		var mu sync.Mutex

		record := func(name string) PostProcessor {
			return func(_ context.Context, exception *entity.UnifiedException, results []entity.ExecutionResult) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, name)
				assert.NotNil(t, exception)
				assert.NotEmpty(t, results)
				return nil
			}
		}

		assert.NoError(t, manager.RegisterHandler("first", record("first")))
		assert.NoError(t, manager.RegisterHandler("second", record("second")))

		manager.Handle(context.Background(), "something happened", systemContext())

		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("should reject duplicate and invalid handler registrations", func(t *testing.T) {
		manager := newTestManager(nil)
		noop := func(_ context.Context, _ *entity.UnifiedException, _ []entity.ExecutionResult) error {
			return nil
		}

		assert.NoError(t, manager.RegisterHandler("audit", noop))
		assert.Error(t, manager.RegisterHandler("audit", noop))
		assert.Error(t, manager.RegisterHandler("", noop))
		assert.Error(t, manager.RegisterHandler("nil-handler", nil))
	})

	t.Run("should unregister idempotently", func(t *testing.T) {
		manager := newTestManager(nil)
		noop := func(_ context.Context, _ *entity.UnifiedException, _ []entity.ExecutionResult) error {
			return nil
		}
		assert.NoError(t, manager.RegisterHandler("audit", noop))

		assert.True(t, manager.UnregisterHandler("audit"))
		assert.False(t, manager.UnregisterHandler("audit"))
	})

	t.Run("should guard panicking and failing handlers", func(t *testing.T) {
		manager := newTestManager(nil)
		ran := false

		assert.NoError(t, manager.RegisterHandler("panicking",
			func(_ context.Context, _ *entity.UnifiedException, _ []entity.ExecutionResult) error {
				panic("handler exploded")
			}))
		assert.NoError(t, manager.RegisterHandler("failing",
			func(_ context.Context, _ *entity.UnifiedException, _ []entity.ExecutionResult) error {
				return errors.New("handler failed")
			}))
		assert.NoError(t, manager.RegisterHandler("surviving",
			func(_ context.Context, _ *entity.UnifiedException, _ []entity.ExecutionResult) error {
				ran = true
				return nil
			}))

		result := manager.Handle(context.Background(), "something happened", systemContext())

		assert.True(t, result.Success)
		assert.True(t, ran)
	})
}

func TestFaultManager_Health(t *testing.T) {
	t.Run("should surface bus connectivity", func(t *testing.T) {
		bus := &recordingBus{}
		manager := newTestManager(bus)

		assert.False(t, manager.Health().BusConnected)
		assert.NoError(t, manager.Initialize(context.Background()))
		assert.True(t, manager.Health().BusConnected)
	})

	t.Run("should count handled and failed totals", func(t *testing.T) {
		manager := newTestManager(nil)

		manager.Handle(context.Background(), "something happened", systemContext())
		manager.Handle(context.Background(), "boom", nil)

		health := manager.Health()
		assert.Equal(t, int64(2), health.TotalHandled)
		assert.Equal(t, int64(1), health.TotalFailed)
	})
}

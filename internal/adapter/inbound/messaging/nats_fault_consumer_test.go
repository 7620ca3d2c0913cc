package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"faultline/internal/config"
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
	"faultline/internal/port/inbound"

	"github.com/stretchr/testify/assert"
)

// noopFaultHandler satisfies inbound.FaultHandler for constructor tests.
type noopFaultHandler struct{}

func (h *noopFaultHandler) Initialize(_ context.Context) error { return nil }
func (h *noopFaultHandler) Destroy(_ context.Context) error    { return nil }

func (h *noopFaultHandler) Handle(
	_ context.Context,
	_ interface{},
	_ *valueobject.ExceptionContext,
) inbound.HandleResult {
	return inbound.HandleResult{Success: true}
}

func (h *noopFaultHandler) Stats() entity.ExecutionStatistics { return entity.ExecutionStatistics{} }
func (h *noopFaultHandler) Health() inbound.ManagerHealth     { return inbound.ManagerHealth{} }

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Subject:     "faults.inbound",
		QueueGroup:  "fault-workers",
		Concurrency: 2,
		JobTimeout:  5 * time.Second,
	}
}

func testConsumerBusConfig() config.BusConfig {
	return config.BusConfig{URL: "nats://localhost:4222"}
}

func TestNewNATSFaultConsumer_Validation(t *testing.T) {
	handler := &noopFaultHandler{}

	t.Run("should reject a nil handler", func(t *testing.T) {
		_, err := NewNATSFaultConsumer(testConsumerBusConfig(), testWorkerConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("should reject an empty URL", func(t *testing.T) {
		_, err := NewNATSFaultConsumer(config.BusConfig{}, testWorkerConfig(), handler)
		assert.Error(t, err)
	})

	t.Run("should reject an empty queue group", func(t *testing.T) {
		workerConfig := testWorkerConfig()
		workerConfig.QueueGroup = ""
		_, err := NewNATSFaultConsumer(testConsumerBusConfig(), workerConfig, handler)
		assert.Error(t, err)
	})

	t.Run("should fill in worker defaults", func(t *testing.T) {
		workerConfig := config.WorkerConfig{QueueGroup: "fault-workers"}
		consumer, err := NewNATSFaultConsumer(testConsumerBusConfig(), workerConfig, handler)

		assert.NoError(t, err)
		assert.Equal(t, defaultConsumerSubject, consumer.workerConfig.Subject)
		assert.Equal(t, defaultConcurrency, consumer.workerConfig.Concurrency)
		assert.Equal(t, defaultFaultProcessingTimeout, consumer.workerConfig.JobTimeout)
		assert.False(t, consumer.IsRunning())
	})
}

func TestParseInboundFaultMessage(t *testing.T) {
	t.Run("should decode a full intake message", func(t *testing.T) {
		payload := `{
			"messageId": "msg-1",
			"fault": {"message": "Connection timeout"},
			"tenantId": "tenant-1",
			"requestId": "req-1",
			"source": "API",
			"customData": {"feature": "checkout"}
		}`

		message, err := ParseInboundFaultMessage([]byte(payload))

		assert.NoError(t, err)
		assert.Equal(t, "msg-1", message.MessageID)
		assert.Equal(t, "tenant-1", message.TenantID)
		assert.Equal(t, "API", message.Source)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		_, err := ParseInboundFaultMessage([]byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("should reject a missing message id", func(t *testing.T) {
		_, err := ParseInboundFaultMessage([]byte(`{"fault": "boom"}`))
		assert.Error(t, err)
	})

	t.Run("should reject an empty fault payload", func(t *testing.T) {
		_, err := ParseInboundFaultMessage([]byte(`{"messageId": "msg-1"}`))
		assert.Error(t, err)
	})
}

func TestInboundFaultMessage_ExceptionContext(t *testing.T) {
	t.Run("should map message fields onto the context", func(t *testing.T) {
		message := &InboundFaultMessage{
			MessageID:     "msg-1",
			TenantID:      "tenant-1",
			UserID:        "user-1",
			RequestID:     "req-1",
			CorrelationID: "corr-1",
			Source:        valueobject.SourceWeb,
			CustomData:    map[string]interface{}{"feature": "checkout"},
		}

		exceptionContext := message.ExceptionContext()

		assert.Equal(t, "tenant-1", exceptionContext.TenantID())
		assert.Equal(t, "user-1", exceptionContext.UserID())
		assert.Equal(t, "corr-1", exceptionContext.CorrelationID())
		assert.Equal(t, valueobject.SourceWeb, exceptionContext.Source().String())

		value, ok := exceptionContext.CustomValue("feature")
		assert.True(t, ok)
		assert.Equal(t, "checkout", value)
	})

	t.Run("should fall back to SYSTEM for unknown sources", func(t *testing.T) {
		message := &InboundFaultMessage{MessageID: "msg-1", Source: "CARRIER_PIGEON"}
		assert.Equal(t, valueobject.SourceSystem, message.ExceptionContext().Source().String())
	})

	t.Run("should default an absent source to SYSTEM", func(t *testing.T) {
		message := &InboundFaultMessage{MessageID: "msg-1"}
		assert.Equal(t, valueobject.SourceSystem, message.ExceptionContext().Source().String())
	})
}

func TestDecodeFaultPayload(t *testing.T) {
	t.Run("should decode an object fault as a map", func(t *testing.T) {
		fault := decodeFaultPayload(json.RawMessage(`{"message": "boom", "status": 500}`))

		asMap, ok := fault.(map[string]interface{})
		assert.True(t, ok)
		assert.Equal(t, "boom", asMap["message"])
	})

	t.Run("should decode a string fault as a string", func(t *testing.T) {
		fault := decodeFaultPayload(json.RawMessage(`"Connection timeout"`))
		assert.Equal(t, "Connection timeout", fault)
	})

	t.Run("should carry anything else as raw text", func(t *testing.T) {
		fault := decodeFaultPayload(json.RawMessage(`42`))
		assert.Equal(t, "42", fault)
	})
}

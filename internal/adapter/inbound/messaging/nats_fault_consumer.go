package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"faultline/internal/application/common/logging"
	"faultline/internal/application/common/slogger"
	"faultline/internal/config"
	"faultline/internal/domain/valueobject"
	"faultline/internal/port/inbound"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultFaultProcessingTimeout bounds one fault's trip through the
	// pipeline when the config leaves job_timeout unset.
	defaultFaultProcessingTimeout = 30 * time.Second

	defaultConsumerSubject = "faults.inbound"
	defaultConcurrency     = 4
)

// InboundFaultMessage is the wire shape accepted from the fault intake
// subject. Fault is the raw fault payload; the remaining fields seed the
// exception context.
type InboundFaultMessage struct {
	MessageID      string                 `json:"messageId"`
	Fault          json.RawMessage        `json:"fault"`
	TenantID       string                 `json:"tenantId,omitempty"`
	UserID         string                 `json:"userId,omitempty"`
	OrganizationID string                 `json:"organizationId,omitempty"`
	DepartmentID   string                 `json:"departmentId,omitempty"`
	RequestID      string                 `json:"requestId,omitempty"`
	CorrelationID  string                 `json:"correlationId,omitempty"`
	UserAgent      string                 `json:"userAgent,omitempty"`
	IPAddress      string                 `json:"ipAddress,omitempty"`
	Source         string                 `json:"source,omitempty"`
	CustomData     map[string]interface{} `json:"customData,omitempty"`
}

// ConsumerStats tracks fault consumption counters.
type ConsumerStats struct {
	MessagesReceived  int64     `json:"messages_received"`
	MessagesProcessed int64     `json:"messages_processed"`
	MessagesFailed    int64     `json:"messages_failed"`
	ActiveSince       time.Time `json:"active_since"`
}

// NATSFaultConsumer subscribes to the fault intake subject in a queue group
// and feeds each message through a FaultHandler, with bounded concurrency.
type NATSFaultConsumer struct {
	busConfig    config.BusConfig
	workerConfig config.WorkerConfig
	handler      inbound.FaultHandler

	mu           sync.RWMutex
	running      bool
	conn         *nats.Conn
	subscription *nats.Subscription
	stats        ConsumerStats

	group       *errgroup.Group
	groupCtx    context.Context
	groupCancel context.CancelFunc
}

// NewNATSFaultConsumer creates a fault consumer over the given handler.
func NewNATSFaultConsumer(
	busConfig config.BusConfig,
	workerConfig config.WorkerConfig,
	handler inbound.FaultHandler,
) (*NATSFaultConsumer, error) {
	if handler == nil {
		return nil, errors.New("fault handler cannot be nil")
	}
	if busConfig.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if workerConfig.QueueGroup == "" {
		return nil, errors.New("queue group cannot be empty")
	}

	if workerConfig.Subject == "" {
		workerConfig.Subject = defaultConsumerSubject
	}
	if workerConfig.Concurrency < 1 {
		workerConfig.Concurrency = defaultConcurrency
	}
	if workerConfig.JobTimeout <= 0 {
		workerConfig.JobTimeout = defaultFaultProcessingTimeout
	}

	return &NATSFaultConsumer{
		busConfig:    busConfig,
		workerConfig: workerConfig,
		handler:      handler,
	}, nil
}

// Start connects and begins consuming. Blocks only until the subscription is
// established.
func (c *NATSFaultConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("consumer already running for subject %s", c.workerConfig.Subject)
	}

	conn, err := nats.Connect(c.busConfig.URL,
		nats.MaxReconnects(c.busConfig.MaxReconnects),
		nats.ReconnectWait(c.busConfig.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	groupCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(groupCtx)
	group.SetLimit(c.workerConfig.Concurrency)

	subscription, err := conn.QueueSubscribe(
		c.workerConfig.Subject,
		c.workerConfig.QueueGroup,
		func(msg *nats.Msg) {
			group.Go(func() error {
				c.handleMessage(groupCtx, msg)
				return nil
			})
		},
	)
	if err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", c.workerConfig.Subject, err)
	}

	c.conn = conn
	c.subscription = subscription
	c.group = group
	c.groupCtx = groupCtx
	c.groupCancel = cancel
	c.running = true
	c.stats = ConsumerStats{ActiveSince: time.Now()}

	slogger.Info(ctx, "Fault consumer started", slogger.Fields{
		"subject":     c.workerConfig.Subject,
		"queue_group": c.workerConfig.QueueGroup,
		"concurrency": c.workerConfig.Concurrency,
	})
	return nil
}

// Stop drains in-flight work and shuts the consumer down. Idempotent.
func (c *NATSFaultConsumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	subscription := c.subscription
	conn := c.conn
	group := c.group
	cancel := c.groupCancel
	c.running = false
	c.subscription = nil
	c.conn = nil
	c.group = nil
	c.groupCancel = nil
	c.mu.Unlock()

	if subscription != nil {
		if err := subscription.Drain(); err != nil {
			slogger.ErrorWithError(ctx, err, "Fault consumer drain failed", nil)
		}
	}

	// Wait for in-flight handlers, bounded by the caller's context.
	if group != nil {
		done := make(chan struct{})
		go func() {
			_ = group.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			slogger.Warn(ctx, "Fault consumer stop timed out waiting for in-flight work", nil)
		}
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	slogger.Info(ctx, "Fault consumer stopped", nil)
	return nil
}

// IsRunning reports whether the consumer is currently active.
func (c *NATSFaultConsumer) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Stats returns a snapshot of the consumption counters.
func (c *NATSFaultConsumer) Stats() ConsumerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// handleMessage parses one intake message and runs it through the pipeline.
func (c *NATSFaultConsumer) handleMessage(ctx context.Context, msg *nats.Msg) {
	c.recordReceived()

	message, err := ParseInboundFaultMessage(msg.Data)
	if err != nil {
		c.recordOutcome(false)
		slogger.ErrorWithError(ctx, err, "Discarding malformed fault message", slogger.Fields{
			"subject": msg.Subject,
		})
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, c.workerConfig.JobTimeout)
	defer cancel()
	if message.CorrelationID != "" {
		handleCtx = logging.WithCorrelationID(handleCtx, message.CorrelationID)
	}

	fault := decodeFaultPayload(message.Fault)
	exceptionContext := message.ExceptionContext()

	result := c.handler.Handle(handleCtx, fault, exceptionContext)
	c.recordOutcome(result.Success)

	if !result.Success {
		slogger.Warn(handleCtx, "Fault handling failed", slogger.Fields{
			"message_id": message.MessageID,
			"error":      result.Error,
		})
	}
}

// ParseInboundFaultMessage validates and decodes one intake payload.
func ParseInboundFaultMessage(data []byte) (*InboundFaultMessage, error) {
	var message InboundFaultMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fault message: %w", err)
	}
	if message.MessageID == "" {
		return nil, errors.New("message ID cannot be empty")
	}
	if len(message.Fault) == 0 {
		return nil, errors.New("fault payload cannot be empty")
	}
	return &message, nil
}

// ExceptionContext builds the pipeline context from the message's context
// fields. An unknown source falls back to SYSTEM.
func (m *InboundFaultMessage) ExceptionContext() *valueobject.ExceptionContext {
	source, err := valueobject.NewSourceTag(m.Source)
	if err != nil {
		source = valueobject.MustSourceTag(valueobject.SourceSystem)
	}

	return valueobject.NewExceptionContext(valueobject.ExceptionContextParams{
		TenantID:       m.TenantID,
		UserID:         m.UserID,
		OrganizationID: m.OrganizationID,
		DepartmentID:   m.DepartmentID,
		RequestID:      m.RequestID,
		CorrelationID:  m.CorrelationID,
		UserAgent:      m.UserAgent,
		IPAddress:      m.IPAddress,
		Source:         source,
		CustomData:     m.CustomData,
	})
}

// decodeFaultPayload turns the raw fault JSON into the shape the pipeline
// classifies: a map for objects, a plain string otherwise.
func decodeFaultPayload(raw json.RawMessage) interface{} {
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err == nil {
		return asMap
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	return string(raw)
}

func (c *NATSFaultConsumer) recordReceived() {
	c.mu.Lock()
	c.stats.MessagesReceived++
	c.mu.Unlock()
}

func (c *NATSFaultConsumer) recordOutcome(success bool) {
	c.mu.Lock()
	if success {
		c.stats.MessagesProcessed++
	} else {
		c.stats.MessagesFailed++
	}
	c.mu.Unlock()
}

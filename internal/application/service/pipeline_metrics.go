package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Metric names following OpenTelemetry semantic conventions for the fault
// pipeline.
const (
	FaultProcessedCounterName      = "fault_processed_total"
	FaultUnhandledCounterName      = "fault_unhandled_total"
	StrategyExecutionCounterName   = "strategy_execution_total"
	BusPublishFailureCounterName   = "bus_publish_failure_total"
	FaultProcessingHistogramName   = "fault_processing_duration_seconds"
	StrategyExecutionHistogramName = "strategy_execution_duration_seconds"
)

// Common attribute keys for consistent pipeline metrics labeling.
const (
	AttrCategory     = "category"
	AttrLevel        = "level"
	AttrStrategyName = "strategy_name"
	AttrOutcome      = "outcome"
)

// PipelineMetricsRecorder is the recording surface the manager and
// dispatcher emit into. A nil recorder disables metrics.
type PipelineMetricsRecorder interface {
	// RecordFaultProcessed records one completed Handle call.
	RecordFaultProcessed(ctx context.Context, category, level string, success bool, duration time.Duration)

	// RecordFaultUnhandled records a dispatch that matched no strategy.
	RecordFaultUnhandled(ctx context.Context, category string)

	// RecordStrategyExecution records one strategy invocation.
	RecordStrategyExecution(ctx context.Context, strategyName string, success bool, duration time.Duration)

	// RecordBusPublishFailure records a failed best-effort bus publish.
	RecordBusPublishFailure(ctx context.Context)
}

// PipelineMetricsConfig holds configuration for pipeline metrics collection.
type PipelineMetricsConfig struct {
	ServiceName    string
	ServiceVersion string
}

// DefaultPipelineMetrics implements PipelineMetricsRecorder using
// OpenTelemetry instruments.
type DefaultPipelineMetrics struct {
	processedCounter   metric.Int64Counter
	unhandledCounter   metric.Int64Counter
	strategyCounter    metric.Int64Counter
	publishFailCounter metric.Int64Counter
	processingHist     metric.Float64Histogram
	strategyHist       metric.Float64Histogram
}

// NewPipelineMetrics creates a recorder with a standalone manual-reader meter
// provider, for use outside a full otel SDK setup.
func NewPipelineMetrics(config PipelineMetricsConfig) (*DefaultPipelineMetrics, error) {
	if config.ServiceName == "" {
		return nil, errors.New("service name cannot be empty")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewManualReader()),
	)
	return NewPipelineMetricsWithProvider(config, provider)
}

// NewPipelineMetricsWithProvider creates a recorder on a caller-owned meter
// provider.
func NewPipelineMetricsWithProvider(
	config PipelineMetricsConfig,
	provider metric.MeterProvider,
) (*DefaultPipelineMetrics, error) {
	if config.ServiceName == "" {
		return nil, errors.New("service name cannot be empty")
	}
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	meter := provider.Meter("faultline/pipeline")
	m := &DefaultPipelineMetrics{}
	var err error

	if m.processedCounter, err = meter.Int64Counter(FaultProcessedCounterName,
		metric.WithDescription("Total faults run through the pipeline")); err != nil {
		return nil, err
	}
	if m.unhandledCounter, err = meter.Int64Counter(FaultUnhandledCounterName,
		metric.WithDescription("Faults no strategy matched")); err != nil {
		return nil, err
	}
	if m.strategyCounter, err = meter.Int64Counter(StrategyExecutionCounterName,
		metric.WithDescription("Strategy invocations by outcome")); err != nil {
		return nil, err
	}
	if m.publishFailCounter, err = meter.Int64Counter(BusPublishFailureCounterName,
		metric.WithDescription("Failed best-effort fault bus publishes")); err != nil {
		return nil, err
	}
	if m.processingHist, err = meter.Float64Histogram(FaultProcessingHistogramName,
		metric.WithDescription("End-to-end fault processing duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.strategyHist, err = meter.Float64Histogram(StrategyExecutionHistogramName,
		metric.WithDescription("Per-strategy execution duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordFaultProcessed records one completed Handle call.
func (m *DefaultPipelineMetrics) RecordFaultProcessed(
	ctx context.Context,
	category, level string,
	success bool,
	duration time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String(AttrCategory, category),
		attribute.String(AttrLevel, level),
		attribute.String(AttrOutcome, outcomeLabel(success)),
	)
	m.processedCounter.Add(ctx, 1, attrs)
	m.processingHist.Record(ctx, duration.Seconds(), attrs)
}

// RecordFaultUnhandled records a dispatch that matched no strategy.
func (m *DefaultPipelineMetrics) RecordFaultUnhandled(ctx context.Context, category string) {
	m.unhandledCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCategory, category),
	))
}

// RecordStrategyExecution records one strategy invocation.
func (m *DefaultPipelineMetrics) RecordStrategyExecution(
	ctx context.Context,
	strategyName string,
	success bool,
	duration time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String(AttrStrategyName, strategyName),
		attribute.String(AttrOutcome, outcomeLabel(success)),
	)
	m.strategyCounter.Add(ctx, 1, attrs)
	m.strategyHist.Record(ctx, duration.Seconds(), attrs)
}

// RecordBusPublishFailure records a failed best-effort bus publish.
func (m *DefaultPipelineMetrics) RecordBusPublishFailure(ctx context.Context) {
	m.publishFailCounter.Add(ctx, 1)
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

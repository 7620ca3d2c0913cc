package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	inboundmessaging "faultline/internal/adapter/inbound/messaging"
	outboundmessaging "faultline/internal/adapter/outbound/messaging"
	"faultline/internal/application/common/logging"
	"faultline/internal/application/common/slogger"
	"faultline/internal/application/service"
	"faultline/internal/config"
	"faultline/internal/port/inbound"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// newWorkerCmd creates and returns the worker command.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Start the fault-processing worker",
		Long: `Start the long-running worker that consumes faults from NATS and runs
each one through the fault pipeline.

The worker:
- Subscribes to the fault intake subject in a queue group
- Classifies, transforms and dispatches each fault
- Republishes the canonical fault to the reporting stream (best effort)
- Runs with configurable concurrency and graceful shutdown`,
		Run: func(_ *cobra.Command, _ []string) {
			runWorker()
		},
	}
}

func runWorker() {
	cfg := GetConfig()
	configureLogging(cfg)

	slogger.InfoNoCtx("Starting fault worker", slogger.Fields{
		"subject":     cfg.Worker.Subject,
		"queue_group": cfg.Worker.QueueGroup,
		"concurrency": cfg.Worker.Concurrency,
	})

	manager, err := buildFaultManager(cfg)
	if err != nil {
		slogger.ErrorNoCtx("Failed to build fault manager", slogger.Fields{"error": err.Error()})
		return
	}

	consumer, err := inboundmessaging.NewNATSFaultConsumer(cfg.Bus, cfg.Worker, manager)
	if err != nil {
		slogger.ErrorNoCtx("Failed to create fault consumer", slogger.Fields{"error": err.Error()})
		return
	}

	ctx := context.Background()
	if err := manager.Initialize(ctx); err != nil {
		slogger.ErrorNoCtx("Failed to initialize fault manager", slogger.Fields{"error": err.Error()})
		return
	}
	if err := consumer.Start(ctx); err != nil {
		slogger.ErrorNoCtx("Failed to start fault consumer", slogger.Fields{"error": err.Error()})
		return
	}

	waitForShutdownAndStop(consumer, manager)
}

// buildFaultManager wires the pipeline from configuration.
func buildFaultManager(cfg *config.Config) (*service.FaultManager, error) {
	var metrics service.PipelineMetricsRecorder
	if cfg.Manager.MetricsEnabled {
		recorder, err := service.NewPipelineMetrics(service.PipelineMetricsConfig{
			ServiceName: cfg.Manager.ServiceName,
		})
		if err != nil {
			return nil, err
		}
		metrics = recorder
	}

	bus, err := outboundmessaging.NewNATSFaultBus(cfg.Bus)
	if err != nil {
		return nil, err
	}

	return service.NewFaultManager(
		service.FaultManagerConfig{PublishTimeout: cfg.Manager.PublishTimeout},
		service.NewFaultTransformer(service.NewFaultClassifier()),
		service.NewStrategyDispatcher(),
		bus,
		metrics,
	), nil
}

// configureLogging replaces the default logger with one built from config.
func configureLogging(cfg *config.Config) {
	logger, err := logging.NewApplicationLogger(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		slogger.ErrorNoCtx("Invalid logging configuration, keeping defaults", slogger.Fields{
			"error": err.Error(),
		})
		return
	}
	slogger.SetGlobalLogger(logger)
}

// waitForShutdownAndStop blocks on a shutdown signal, then drains the
// consumer and tears the manager down.
func waitForShutdownAndStop(consumer inbound.FaultConsumer, manager inbound.FaultHandler) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	slogger.InfoNoCtx("Received shutdown signal, initiating graceful shutdown", slogger.Fields{
		"signal": sig.String(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := consumer.Stop(shutdownCtx); err != nil {
		slogger.ErrorNoCtx("Error stopping fault consumer", slogger.Fields{"error": err.Error()})
	}
	if err := manager.Destroy(shutdownCtx); err != nil {
		slogger.ErrorNoCtx("Error destroying fault manager", slogger.Fields{"error": err.Error()})
	}

	slogger.InfoNoCtx("Fault worker shutdown completed", nil)
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newWorkerCmd())
}

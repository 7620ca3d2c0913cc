package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"faultline/internal/application/common/slogger"
	"faultline/internal/application/strategy"
	"faultline/internal/domain/entity"
	"faultline/internal/port/outbound"
)

// StrategyDispatcher owns the strategy registry and executes matching
// strategies in ascending priority order until one succeeds. The registry is
// read-mostly: writes happen at setup/teardown or explicit enable/disable
// calls and are mutually exclusive with concurrent dispatches.
type StrategyDispatcher struct {
	mu                sync.RWMutex
	strategies        map[string]outbound.Strategy
	registrationOrder []string

	tracker *entity.StatisticsTracker
	metrics PipelineMetricsRecorder
}

// NewStrategyDispatcher creates a dispatcher with the four built-in variants
// pre-registered (HTTP, application, storage, network).
func NewStrategyDispatcher() *StrategyDispatcher {
	d := &StrategyDispatcher{
		strategies: make(map[string]outbound.Strategy),
		tracker:    entity.NewStatisticsTracker(),
	}

	builtins := []outbound.Strategy{
		strategy.NewHTTPStrategy(),
		strategy.NewApplicationStrategy(),
		strategy.NewStorageStrategy(),
		strategy.NewNetworkStrategy(),
	}
	for _, builtin := range builtins {
		// Built-in names are unique; registration cannot fail here.
		if err := d.Register(builtin); err != nil {
			panic("built-in strategy registration failed: " + err.Error())
		}
	}
	return d
}

// SetMetricsRecorder attaches an optional metrics recorder. Must be called
// before concurrent dispatching starts.
func (d *StrategyDispatcher) SetMetricsRecorder(metrics PipelineMetricsRecorder) {
	d.metrics = metrics
}

// Register adds a strategy to the registry. A duplicate name is an error and
// leaves the existing registration untouched.
func (d *StrategyDispatcher) Register(s outbound.Strategy) error {
	if s == nil {
		return fmt.Errorf("dispatcher: strategy cannot be nil")
	}
	if s.Name() == "" {
		return fmt.Errorf("dispatcher: strategy name cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.strategies[s.Name()]; exists {
		return fmt.Errorf("dispatcher: strategy %q is already registered", s.Name())
	}

	d.strategies[s.Name()] = s
	d.registrationOrder = append(d.registrationOrder, s.Name())
	return nil
}

// Unregister removes a strategy by name. It is idempotent and reports
// whether anything was removed.
func (d *StrategyDispatcher) Unregister(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.strategies[name]; !exists {
		return false
	}

	delete(d.strategies, name)
	for i, registered := range d.registrationOrder {
		if registered == name {
			d.registrationOrder = append(d.registrationOrder[:i], d.registrationOrder[i+1:]...)
			break
		}
	}
	return true
}

// Enable re-admits a strategy to candidate selection. Reports whether the
// name was registered.
func (d *StrategyDispatcher) Enable(name string) bool {
	return d.setEnabled(name, true)
}

// Disable excludes a strategy from candidate selection without removing its
// registration or statistics.
func (d *StrategyDispatcher) Disable(name string) bool {
	return d.setEnabled(name, false)
}

func (d *StrategyDispatcher) setEnabled(name string, enabled bool) bool {
	d.mu.RLock()
	s, exists := d.strategies[name]
	d.mu.RUnlock()
	if !exists {
		return false
	}
	s.SetEnabled(enabled)
	return true
}

// Strategy returns a registered strategy by name.
func (d *StrategyDispatcher) Strategy(name string) (outbound.Strategy, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, exists := d.strategies[name]
	return s, exists
}

// StrategyNames returns all registered names in registration order.
func (d *StrategyDispatcher) StrategyNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.registrationOrder...)
}

// Stats returns the dispatcher-level execution statistics.
func (d *StrategyDispatcher) Stats() entity.ExecutionStatistics {
	return d.tracker.Snapshot()
}

// ResetStats zeroes the dispatcher-level execution statistics.
func (d *StrategyDispatcher) ResetStats() {
	d.tracker.Reset()
}

// Dispatch runs the matching strategies for an exception in ascending
// priority order, stopping at the first success. Every attempted strategy
// contributes one ExecutionResult; an empty sequence means no strategy
// matched and the caller treats the fault as unhandled.
func (d *StrategyDispatcher) Dispatch(
	ctx context.Context,
	exception *entity.UnifiedException,
) []entity.ExecutionResult {
	start := time.Now()

	candidates := d.selectCandidates(exception)
	results := make([]entity.ExecutionResult, 0, len(candidates))

	succeeded := false
	for _, candidate := range candidates {
		strategyStart := time.Now()
		result := d.executeGuarded(ctx, candidate, exception)
		results = append(results, result)

		if d.metrics != nil {
			d.metrics.RecordStrategyExecution(ctx, candidate.Name(), result.Success,
				time.Since(strategyStart))
		}
		if result.Success {
			succeeded = true
			break
		}
	}

	d.tracker.Record(succeeded, time.Since(start))

	if len(results) == 0 {
		slogger.WithComponent("dispatcher").Warn(ctx, "No strategy matched exception", slogger.Fields{
			"exception_id": exception.ID(),
			"category":     exception.Category().String(),
		})
	}
	return results
}

// selectCandidates filters the registry to enabled, accepting strategies and
// stable-sorts them ascending by priority. Registration order breaks ties,
// so dispatch is fully deterministic for a fixed registry.
func (d *StrategyDispatcher) selectCandidates(exception *entity.UnifiedException) []outbound.Strategy {
	d.mu.RLock()
	defer d.mu.RUnlock()

	candidates := make([]outbound.Strategy, 0, len(d.registrationOrder))
	for _, name := range d.registrationOrder {
		s := d.strategies[name]
		if s.IsEnabled() && s.CanHandle(exception) {
			candidates = append(candidates, s)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() < candidates[j].Priority()
	})
	return candidates
}

// executeGuarded invokes one strategy, converting a panic that escaped the
// strategy's own guard into a failed result so dispatch continues.
func (d *StrategyDispatcher) executeGuarded(
	ctx context.Context,
	s outbound.Strategy,
	exception *entity.UnifiedException,
) (result entity.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			slogger.WithComponent("dispatcher").Error(ctx, "Strategy panicked during dispatch",
				slogger.Fields{
					"strategy":     s.Name(),
					"exception_id": exception.ID(),
					"panic":        fmt.Sprintf("%v", r),
				})
			result = entity.FailureResult(s.Name(), entity.ActionStrategyFailed,
				fmt.Sprintf("strategy panicked: %v", r))
		}
	}()

	return s.Handle(ctx, exception)
}

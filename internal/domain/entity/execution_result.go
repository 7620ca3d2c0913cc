package entity

import (
	"sync"
	"time"
)

// Well-known action tags recorded on execution results.
const (
	ActionResponseBuilt    = "response_built"
	ActionStrategyDisabled = "strategy_disabled"
	ActionStrategyFailed   = "strategy_failed"
	ActionBuilderFailed    = "builder_failed"
)

// ExecutionResult is the per-strategy outcome of handling one unified
// exception. A dispatch yields an ordered sequence of these, one per strategy
// attempted, stopping at the first success.
type ExecutionResult struct {
	StrategyName  string                 `json:"strategy_name"`
	Success       bool                   `json:"success"`
	Action        string                 `json:"action"`
	Response      map[string]interface{} `json:"response,omitempty"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ExecutedAt    time.Time              `json:"executed_at"`
}

// SuccessResult builds a successful execution result for a strategy.
func SuccessResult(strategyName, action string, response map[string]interface{}) ExecutionResult {
	return ExecutionResult{
		StrategyName: strategyName,
		Success:      true,
		Action:       action,
		Response:     response,
		ExecutedAt:   time.Now(),
	}
}

// FailureResult builds a failed execution result for a strategy.
func FailureResult(strategyName, action, reason string) ExecutionResult {
	return ExecutionResult{
		StrategyName:  strategyName,
		Success:       false,
		Action:        action,
		FailureReason: reason,
		ExecutedAt:    time.Now(),
	}
}

// ExecutionStatistics is a point-in-time snapshot of execution counters for
// one scope (a single strategy, or the dispatcher as a whole). Counters are
// monotonic; reset is an explicit operation on the owning tracker.
type ExecutionStatistics struct {
	Total           int64         `json:"total"`
	Succeeded       int64         `json:"succeeded"`
	Failed          int64         `json:"failed"`
	AverageDuration time.Duration `json:"average_duration"`
	LastExecutedAt  time.Time     `json:"last_executed_at"`
}

// StatisticsTracker maintains mutex-guarded execution counters with a running
// average duration. The same tracker type backs per-strategy statistics and
// the dispatcher-level globals, so both scopes share one update discipline.
type StatisticsTracker struct {
	mu    sync.Mutex
	stats ExecutionStatistics
}

// NewStatisticsTracker creates an empty tracker.
func NewStatisticsTracker() *StatisticsTracker {
	return &StatisticsTracker{}
}

// Record folds one execution into the counters. The running average is
// recomputed as (oldAvg*(n-1)+sample)/n over the new total n.
func (t *StatisticsTracker) Record(success bool, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Total++
	if success {
		t.stats.Succeeded++
	} else {
		t.stats.Failed++
	}

	n := t.stats.Total
	t.stats.AverageDuration = time.Duration(
		(int64(t.stats.AverageDuration)*(n-1) + int64(duration)) / n,
	)
	t.stats.LastExecutedAt = time.Now()
}

// Snapshot returns a copy of the current counters.
func (t *StatisticsTracker) Snapshot() ExecutionStatistics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Reset zeroes all counters.
func (t *StatisticsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = ExecutionStatistics{}
}

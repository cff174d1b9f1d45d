package core

import (
	"context"
	"time"
)

// =============================================================================
// Scheduler: Interface consumed by the parallel-for combinators
// =============================================================================

// Scheduler is the contract shared by every task scheduler implementation.
type Scheduler interface {
	// AddTask registers task on its CompletionStatus and makes it runnable.
	AddTask(ctx context.Context, task Task)

	// WorkUntilDone executes queued work on the calling goroutine until
	// status has no outstanding tasks.
	WorkUntilDone(ctx context.Context, status *CompletionStatus)

	// ThreadCount returns the number of participants, the caller included.
	ThreadCount() int
}

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// The scheduler still decrements the task's status afterwards, so the batch
// completes; recording the fault is up to the handler.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context the task ran with
	// - schedulerName: The name of the scheduler that ran the task
	// - workerID: The ID of the worker (-1 when run by a WorkUntilDone caller)
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through Logger (DefaultLogger when nil).
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs panic information at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("task panicked",
		F("scheduler", schedulerName),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called on the task execution path and must be non-blocking.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	// Only called when the scheduler was configured with a non-nil Metrics.
	RecordTaskDuration(schedulerName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(schedulerName string, panicInfo any)

	// RecordQueueDepth records the submission queue depth after a push.
	RecordQueueDepth(schedulerName string, depth int)

	// RecordSteal records a task taken from another participant's queue.
	RecordSteal(schedulerName string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(schedulerName string, duration time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(schedulerName string, panicInfo any) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(schedulerName string, depth int) {}

// RecordSteal is a no-op.
func (m *NilMetrics) RecordSteal(schedulerName string) {}

// =============================================================================
// SchedulerConfig: Configuration for WorkStealingScheduler
// =============================================================================

// SchedulerConfig holds configuration options for WorkStealingScheduler.
// All fields are optional; zero values are replaced by defaults.
type SchedulerConfig struct {
	// Name labels logs and metrics. Defaults to "work-stealing".
	Name string

	// PanicHandler is called when a task panics. Defaults to a
	// DefaultPanicHandler that reports through Logger, or DefaultLogger
	// when Logger is nil.
	PanicHandler PanicHandler

	// Metrics records execution metrics. Defaults to NilMetrics, which also
	// disables per-task timing.
	Metrics Metrics

	// Logger receives lifecycle events. Defaults to NoOpLogger.
	Logger Logger

	// Backoff controls how idle participants wait for work.
	// Defaults to DefaultIdleBackoff.
	Backoff IdleBackoff
}

// DefaultSchedulerConfig returns a config with default handlers.
// PanicHandler and Logger are left nil: the scheduler then reports panics
// through whatever Logger the caller sets, or DefaultLogger if none.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Name:    defaultSchedulerName,
		Metrics: &NilMetrics{},
		Backoff: DefaultIdleBackoff(),
	}
}

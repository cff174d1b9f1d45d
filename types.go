package taskscheduler

import (
	"context"

	"github.com/Swind/go-task-scheduler/core"
	"golang.org/x/exp/constraints"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskscheduler package for most use cases.

// Task is the unit of work executed by a Scheduler
type Task = core.Task

// CPUTask is embedded by task structs to carry their CompletionStatus
type CPUTask = core.CPUTask

// CompletionStatus counts registered but unfinished tasks
type CompletionStatus = core.CompletionStatus

// MemoryAlloc tells the scheduler who owns a task after it runs
type MemoryAlloc = core.MemoryAlloc

// Scheduler is the contract the parallel-for helpers run on
type Scheduler = core.Scheduler

// WorkStealingScheduler is the default Scheduler implementation
type WorkStealingScheduler = core.WorkStealingScheduler

// SchedulerConfig configures handlers, metrics and logging of a scheduler
type SchedulerConfig = core.SchedulerConfig

// IndexRange is a half-open [Start, End) integer range
type IndexRange[T constraints.Integer] = core.IndexRange[T]

// ForEachOption tunes how a parallel-for splits its range
type ForEachOption = core.ForEachOption

// Ownership constants
const (
	MemoryAllocStack   MemoryAlloc = core.MemoryAllocStack
	MemoryAllocDynamic MemoryAlloc = core.MemoryAllocDynamic
)

// Constructors and helpers
var (
	NewCPUTask                         = core.NewCPUTask
	NewCompletionStatus                = core.NewCompletionStatus
	NewFuncTask                        = core.NewFuncTask
	NewDynamicFuncTask                 = core.NewDynamicFuncTask
	NewWorkStealingScheduler           = core.NewWorkStealingScheduler
	NewWorkStealingSchedulerWithConfig = core.NewWorkStealingSchedulerWithConfig
	DefaultSchedulerConfig             = core.DefaultSchedulerConfig
	CurrentWorkerID                    = core.CurrentWorkerID
	WithChunkCount                     = core.WithChunkCount
	WithMinChunkSize                   = core.WithMinChunkSize
	ErrInvalidThreadCount              = core.ErrInvalidThreadCount
)

// ParallelForEach calls fn(i) for every i in [begin, end) on s and returns
// once all calls have finished.
func ParallelForEach[T constraints.Integer](ctx context.Context, s Scheduler, begin, end T, fn func(i T), opts ...ForEachOption) {
	core.ParallelForEach(ctx, s, begin, end, fn, opts...)
}

// ParallelForEachRange calls fn once per contiguous sub-range of [begin, end)
// on s and returns once all calls have finished.
func ParallelForEachRange[T constraints.Integer](ctx context.Context, s Scheduler, begin, end T, fn func(r IndexRange[T]), opts ...ForEachOption) {
	core.ParallelForEachRange(ctx, s, begin, end, fn, opts...)
}

// ParallelForEachRangeContext is ParallelForEachRange for bodies that submit
// nested work through the executing task's context.
func ParallelForEachRangeContext[T constraints.Integer](ctx context.Context, s Scheduler, begin, end T, fn func(ctx context.Context, r IndexRange[T]), opts ...ForEachOption) {
	core.ParallelForEachRangeContext(ctx, s, begin, end, fn, opts...)
}

package core

import "context"

// =============================================================================
// MemoryAlloc: Ownership hint returned by Task.Run
// =============================================================================

type MemoryAlloc int

const (
	// MemoryAllocStack: the submitter owns the task and keeps it alive.
	// Typical for tasks stored in a slice for the lifetime of a batch.
	MemoryAllocStack MemoryAlloc = iota

	// MemoryAllocDynamic: ownership passes to the scheduler once Run returns.
	// The scheduler calls Release on tasks implementing Releaser.
	MemoryAllocDynamic
)

func (m MemoryAlloc) String() string {
	switch m {
	case MemoryAllocStack:
		return "stack"
	case MemoryAllocDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// =============================================================================
// Task: Unit of schedulable CPU work
// =============================================================================

// Task is a unit of CPU work executed by a Scheduler.
//
// Run must not block on other tasks of the same batch and must run to
// completion. Failures are reported through task-specific output state; the
// scheduler provides no result channel.
type Task interface {
	Run(ctx context.Context) MemoryAlloc

	// Status returns the CompletionStatus the task reports to.
	// The scheduler decrements it exactly once after Run returns.
	Status() *CompletionStatus
}

// Releaser is implemented by tasks that need an explicit destroy step when
// they hand ownership to the scheduler (MemoryAllocDynamic).
type Releaser interface {
	Release()
}

// CPUTask is an embeddable base for Task implementations.
//
//	type myTask struct {
//		core.CPUTask
//		out *float64
//	}
//
//	func (t *myTask) Run(ctx context.Context) core.MemoryAlloc {
//		*t.out = compute()
//		return core.MemoryAllocStack
//	}
type CPUTask struct {
	status *CompletionStatus
}

// NewCPUTask binds a task base to status.
func NewCPUTask(status *CompletionStatus) CPUTask {
	return CPUTask{status: status}
}

// Status returns the CompletionStatus this task reports to.
func (t *CPUTask) Status() *CompletionStatus {
	return t.status
}

// funcTask adapts a closure to Task.
type funcTask struct {
	CPUTask
	fn    func(ctx context.Context)
	alloc MemoryAlloc
}

// NewFuncTask wraps fn as a Task owned by the caller (MemoryAllocStack).
func NewFuncTask(status *CompletionStatus, fn func(ctx context.Context)) Task {
	return &funcTask{CPUTask: NewCPUTask(status), fn: fn, alloc: MemoryAllocStack}
}

// NewDynamicFuncTask wraps fn as a Task whose ownership is handed to the scheduler.
func NewDynamicFuncTask(status *CompletionStatus, fn func(ctx context.Context)) Task {
	return &funcTask{CPUTask: NewCPUTask(status), fn: fn, alloc: MemoryAllocDynamic}
}

func (t *funcTask) Run(ctx context.Context) MemoryAlloc {
	if t.fn != nil {
		t.fn(ctx)
	}
	return t.alloc
}

// Release drops the closure so it can be collected even if the task pointer
// is still referenced by a queue slot.
func (t *funcTask) Release() {
	t.fn = nil
}

// =============================================================================
// Context Helper
// =============================================================================
type workerKeyType struct{}

var workerKey workerKeyType

// withWorker marks ctx as belonging to w. Tasks receive this context, so
// nested AddTask calls land on the executing worker's own deque.
func withWorker(ctx context.Context, w *worker) context.Context {
	return context.WithValue(ctx, workerKey, w)
}

func workerFromContext(ctx context.Context) *worker {
	if ctx == nil {
		return nil
	}
	if v := ctx.Value(workerKey); v != nil {
		return v.(*worker)
	}
	return nil
}

// CurrentWorkerID returns the ID of the worker executing the task that owns
// ctx, or -1 when ctx does not come from a scheduler worker.
func CurrentWorkerID(ctx context.Context) int {
	if w := workerFromContext(ctx); w != nil {
		return w.id
	}
	return -1
}

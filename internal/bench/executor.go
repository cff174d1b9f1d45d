package bench

import (
	"context"
	"fmt"

	taskscheduler "github.com/Swind/go-task-scheduler"
	"github.com/Swind/go-task-scheduler/baseline"
	"github.com/Swind/go-task-scheduler/core"
)

// Strategy names a scheduling implementation under test.
type Strategy string

const (
	StrategyWorkStealing Strategy = "work-stealing"
	StrategySharedQueue  Strategy = "shared-queue"
	StrategySpawn        Strategy = "spawn"
)

// AllStrategies lists every strategy in report order.
var AllStrategies = []Strategy{StrategyWorkStealing, StrategySharedQueue, StrategySpawn}

// ParseStrategy maps a name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range AllStrategies {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("strategy %q: %w", name, ErrUnknownStrategy)
}

// executor drives one strategy at a fixed thread count.
type executor interface {
	// submitN runs n independent tasks and waits for all of them.
	submitN(ctx context.Context, n int, newTask func(status *core.CompletionStatus) core.Task, fn func())
	// forEach calls fn(i) for i in [0, n) and waits.
	forEach(ctx context.Context, n int64, fn func(i int64))
	// forEachRange calls fn(a, b) over blocks covering [0, n) and waits.
	forEachRange(ctx context.Context, n int64, fn func(a, b int64))
	stats() core.PoolStats
	close()
}

type workStealingExecutor struct {
	s *core.WorkStealingScheduler
}

func newWorkStealingExecutor(reg *taskscheduler.Registry, name string, threads int) (*workStealingExecutor, error) {
	s := reg.CreateInRegistry(name)
	if err := s.Init(threads); err != nil {
		return nil, err
	}
	return &workStealingExecutor{s: s}, nil
}

func (e *workStealingExecutor) submitN(ctx context.Context, n int, newTask func(status *core.CompletionStatus) core.Task, _ func()) {
	status := core.NewCompletionStatus()
	tasks := make([]core.Task, n)
	for i := range tasks {
		tasks[i] = newTask(status)
	}
	for _, t := range tasks {
		e.s.AddTask(ctx, t)
	}
	e.s.WorkUntilDone(ctx, status)
}

func (e *workStealingExecutor) forEach(ctx context.Context, n int64, fn func(i int64)) {
	core.ParallelForEach(ctx, e.s, 0, n, fn)
}

func (e *workStealingExecutor) forEachRange(ctx context.Context, n int64, fn func(a, b int64)) {
	core.ParallelForEachRange(ctx, e.s, 0, n, func(r core.IndexRange[int64]) {
		fn(r.Start, r.End)
	})
}

func (e *workStealingExecutor) stats() core.PoolStats { return e.s.Stats() }

// close stops the workers; the scheduler stays in the registry for reuse.
func (e *workStealingExecutor) close() { e.s.Shutdown() }

// poolExecutor adapts the baseline pools.
type poolExecutor struct {
	pool    baseline.Pool
	threads int
	name    string
	stop    func()
	statsFn func() core.PoolStats
}

func newSharedQueueExecutor(ctx context.Context, name string, threads int, logger core.Logger) *poolExecutor {
	p := baseline.NewSharedQueuePoolWithLogger(name, threads, logger)
	p.Start(ctx)
	return &poolExecutor{pool: p, threads: threads, name: name, stop: p.Stop, statsFn: p.Stats}
}

func newSpawnExecutor(name string, threads int) *poolExecutor {
	return &poolExecutor{pool: baseline.NewSpawnPool(threads), threads: threads, name: name}
}

func (e *poolExecutor) submitN(_ context.Context, n int, _ func(status *core.CompletionStatus) core.Task, fn func()) {
	for range n {
		e.pool.PushTask(fn)
	}
	e.pool.WaitForTasks()
}

func (e *poolExecutor) forEach(_ context.Context, n int64, fn func(i int64)) {
	e.pool.ParallelizeLoop(0, n, func(a, b int64) {
		for i := a; i < b; i++ {
			fn(i)
		}
	})
	e.pool.WaitForTasks()
}

func (e *poolExecutor) forEachRange(_ context.Context, n int64, fn func(a, b int64)) {
	e.pool.ParallelizeLoop(0, n, fn)
	e.pool.WaitForTasks()
}

func (e *poolExecutor) stats() core.PoolStats {
	if e.statsFn != nil {
		return e.statsFn()
	}
	return core.PoolStats{ID: e.name, Threads: e.threads, Workers: e.pool.WorkerCount()}
}

func (e *poolExecutor) close() {
	if e.stop != nil {
		e.stop()
	}
}

// Package baseline provides reference pools that the work-stealing scheduler
// is benchmarked against. They are deliberately simple: one shared queue, or
// one goroutine per task.
package baseline

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/Swind/go-task-scheduler/core"
)

// Pool is the contract shared by the baseline pools: push closures, split a
// loop into blocks, wait for everything pushed so far.
type Pool interface {
	PushTask(fn func())
	ParallelizeLoop(begin, end int64, fn func(a, b int64))
	WaitForTasks()
	WorkerCount() int
}

// SharedQueuePool runs closures on a fixed set of worker goroutines that all
// pull from one FIFO queue. Every push and pop contends on the same lock.
type SharedQueuePool struct {
	id      string
	workers int
	queue   *fifo[func()]
	signal  chan struct{}

	panicHandler core.PanicHandler
	logger       core.Logger

	// pending counts pushed closures that have not finished yet.
	pending atomic.Int64
	active  atomic.Int32
	done    atomic.Int64

	wg        sync.WaitGroup
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
}

var _ Pool = (*SharedQueuePool)(nil)

// NewSharedQueuePool creates a stopped pool; call Start before pushing.
// workers < 1 uses GOMAXPROCS.
func NewSharedQueuePool(id string, workers int) *SharedQueuePool {
	return NewSharedQueuePoolWithLogger(id, workers, core.NewNoOpLogger())
}

// NewSharedQueuePoolWithLogger is NewSharedQueuePool with a lifecycle logger,
// also used for panics.
func NewSharedQueuePoolWithLogger(id string, workers int, logger core.Logger) *SharedQueuePool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &SharedQueuePool{
		id:           id,
		workers:      workers,
		queue:        newFIFO[func()](),
		signal:       make(chan struct{}, workers*2),
		panicHandler: &core.DefaultPanicHandler{Logger: logger},
		logger:       logger,
	}
}

// Start starts all worker goroutines
func (p *SharedQueuePool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return // Already running
	}

	var workerCtx context.Context
	workerCtx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(workerCtx, i)
	}
	p.logger.Debug("shared queue pool started", core.F("pool", p.id), core.F("workers", p.workers))
}

// Stop cancels the workers and waits for them to exit. Closures still queued
// are dropped and no longer counted by WaitForTasks.
func (p *SharedQueuePool) Stop() {
	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return
	}
	p.running = false
	p.runningMu.Unlock()

	p.cancel()
	p.wg.Wait()

	if dropped := p.queue.Clear(); dropped > 0 {
		p.pending.Add(-int64(dropped))
		p.logger.Warn("dropped queued tasks on stop", core.F("pool", p.id), core.F("tasks", dropped))
	}
}

// PushTask enqueues fn. Pushes to a pool that is not running are dropped.
func (p *SharedQueuePool) PushTask(fn func()) {
	if fn == nil {
		return
	}

	// Stop flips running under the write lock, so a push either lands
	// before the queue is cleared or is rejected here.
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	if !p.running {
		p.logger.Warn("task pushed to stopped pool", core.F("pool", p.id))
		return
	}

	p.pending.Add(1)
	p.queue.Push(fn)

	select {
	case p.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
	}
}

// ParallelizeLoop splits [begin, end) into WorkerCount() blocks and pushes
// one closure per block. Every block has (end-begin)/WorkerCount() indices;
// the last one also takes the remainder. It does not wait; call WaitForTasks.
func (p *SharedQueuePool) ParallelizeLoop(begin, end int64, fn func(a, b int64)) {
	for _, r := range loopBlocks(begin, end, p.workers) {
		p.PushTask(func() { fn(r.Start, r.End) })
	}
}

// WaitForTasks yields until every pushed closure has finished.
func (p *SharedQueuePool) WaitForTasks() {
	for p.pending.Load() > 0 {
		runtime.Gosched()
	}
}

// WorkerCount returns the number of workers
func (p *SharedQueuePool) WorkerCount() int {
	return p.workers
}

// ID returns the ID of the pool
func (p *SharedQueuePool) ID() string {
	return p.id
}

// IsRunning returns whether the pool is running
func (p *SharedQueuePool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// Stats returns current observability data for this pool.
func (p *SharedQueuePool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:       p.id,
		Threads:  p.workers,
		Workers:  p.workers,
		Queued:   p.queue.Len(),
		Active:   int(p.active.Load()),
		Executed: p.done.Load(),
		Running:  p.IsRunning(),
	}
}

// workerLoop is the main loop for each worker
func (p *SharedQueuePool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	stopCh := ctx.Done()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		fn, ok := p.queue.Pop()
		if !ok {
			select {
			case <-p.signal:
				continue
			case <-stopCh:
				return
			}
		}
		p.run(ctx, id, fn)
	}
}

func (p *SharedQueuePool) run(ctx context.Context, id int, fn func()) {
	p.active.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.panicHandler.HandlePanic(ctx, p.id, id, r, debug.Stack())
		}
		p.active.Add(-1)
		p.done.Add(1)
		p.pending.Add(-1)
	}()
	fn()
}

// loopBlocks implements the block split used by both baseline pools.
func loopBlocks(begin, end int64, blocks int) []core.IndexRange[int64] {
	total := end - begin
	if total <= 0 {
		return nil
	}
	blocks = int(min(int64(max(blocks, 1)), total))
	size := total / int64(blocks)

	out := make([]core.IndexRange[int64], blocks)
	for i := range blocks {
		a := begin + int64(i)*size
		b := a + size
		if i == blocks-1 {
			b = end
		}
		out[i] = core.IndexRange[int64]{Start: a, End: b}
	}
	return out
}

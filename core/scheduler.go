package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

const defaultSchedulerName = "work-stealing"

// ErrInvalidThreadCount is returned by Init for negative thread counts.
var ErrInvalidThreadCount = errors.New("invalid thread count")

// poolState is one generation of workers. Init swaps in a new generation;
// readers load it atomically and never lock.
type poolState struct {
	workers []*worker
	signal  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// WorkStealingScheduler runs tasks on a fixed set of worker goroutines, each
// owning a WorkQueue. Idle workers steal from the front of other queues.
// Goroutines outside the pool submit to a shared submission queue and take
// part in execution while they wait in WorkUntilDone.
//
// The zero value is not usable; construct with NewWorkStealingScheduler.
type WorkStealingScheduler struct {
	name         string
	panicHandler PanicHandler
	metrics      Metrics
	logger       Logger
	backoff      IdleBackoff
	timed        bool

	// lifecycleMu serializes Init and Shutdown.
	lifecycleMu sync.Mutex
	state       atomic.Pointer[poolState]
	threadCount atomic.Int32

	// submit receives tasks from goroutines that are not workers.
	submit *WorkQueue

	metricActive   atomic.Int32
	metricExecuted atomic.Int64
	metricStolen   atomic.Int64
}

var _ Scheduler = (*WorkStealingScheduler)(nil)

// NewWorkStealingScheduler creates a scheduler with default handlers and no
// background workers. Call Init to start workers.
func NewWorkStealingScheduler() *WorkStealingScheduler {
	return NewWorkStealingSchedulerWithConfig(DefaultSchedulerConfig())
}

// NewWorkStealingSchedulerWithConfig creates a scheduler with no background
// workers using config; nil fields take defaults.
func NewWorkStealingSchedulerWithConfig(config *SchedulerConfig) *WorkStealingScheduler {
	s := &WorkStealingScheduler{
		submit: NewWorkQueue(),
	}

	// Apply config
	if config != nil {
		s.name = config.Name
		s.panicHandler = config.PanicHandler
		s.metrics = config.Metrics
		s.logger = config.Logger
		s.backoff = config.Backoff
		s.timed = config.Metrics != nil
		if _, isNil := config.Metrics.(*NilMetrics); isNil {
			s.timed = false
		}
	}

	// Use defaults if not provided
	if s.name == "" {
		s.name = defaultSchedulerName
	}
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{Logger: s.logger}
	}
	if s.logger == nil {
		s.logger = NewNoOpLogger()
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.backoff.isZero() {
		s.backoff = DefaultIdleBackoff()
	}

	s.state.Store(&poolState{})
	s.threadCount.Store(1)
	return s
}

// Init (re)starts the pool with threadCount participants. The goroutine that
// later calls WorkUntilDone is one of them, so threadCount-1 background
// workers are spawned; 0 and 1 both run everything on the waiting goroutine.
//
// Running workers are stopped and joined first. Tasks left in their queues
// move to the submission queue, so no registered task is lost.
func (s *WorkStealingScheduler) Init(threadCount int) error {
	if threadCount < 0 {
		return fmt.Errorf("init %s with %d threads: %w", s.name, threadCount, ErrInvalidThreadCount)
	}
	if threadCount == 0 {
		threadCount = 1
	}

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.state.Load().running {
		s.logger.Debug("reinitializing scheduler",
			F("scheduler", s.name),
			F("from", s.ThreadCount()),
			F("to", threadCount),
		)
	}
	s.stopLocked()

	background := threadCount - 1
	ctx, cancel := context.WithCancel(context.Background())
	st := &poolState{
		workers: make([]*worker, background),
		signal:  make(chan struct{}, max(background, 1)),
		cancel:  cancel,
		running: true,
	}
	for i := range background {
		st.workers[i] = &worker{id: i, sched: s, queue: NewWorkQueue()}
	}

	s.state.Store(st)
	s.threadCount.Store(int32(threadCount))

	for _, w := range st.workers {
		st.wg.Add(1)
		go w.loop(ctx, st)
	}

	s.logger.Info("scheduler started",
		F("scheduler", s.name),
		F("threads", threadCount),
		F("workers", background),
	)
	return nil
}

// Shutdown stops and joins all background workers. Tasks still queued stay
// in the submission queue; a later WorkUntilDone executes them on the caller.
// Shutdown is idempotent.
func (s *WorkStealingScheduler) Shutdown() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.state.Load().running {
		return
	}
	s.stopLocked()
	s.threadCount.Store(1)
	s.logger.Info("scheduler stopped", F("scheduler", s.name))
}

// stopLocked quiesces the current generation. Must hold lifecycleMu.
func (s *WorkStealingScheduler) stopLocked() {
	st := s.state.Load()
	if !st.running {
		return
	}

	st.cancel()
	st.wg.Wait()

	migrated := 0
	for _, w := range st.workers {
		w.retired.Store(true)
		for _, t := range w.queue.Drain() {
			s.submit.PushBack(t)
			migrated++
		}
	}
	if migrated > 0 {
		s.logger.Debug("migrated queued tasks to submission queue",
			F("scheduler", s.name),
			F("tasks", migrated),
		)
	}

	s.state.Store(&poolState{})
}

// AddTask registers task on its status and publishes it. The status is
// incremented before the task is visible to any participant, so a status
// never reads idle while one of its tasks is still queued.
//
// When ctx belongs to one of this scheduler's workers (the ctx passed to a
// running task), the task goes to that worker's own queue.
func (s *WorkStealingScheduler) AddTask(ctx context.Context, task Task) {
	if task == nil {
		return
	}
	if status := task.Status(); status != nil {
		status.Increment()
	}

	if w := s.ownWorker(ctx); w != nil {
		w.queue.PushBack(task)
	} else {
		s.submit.PushBack(task)
		if s.timed {
			s.metrics.RecordQueueDepth(s.name, s.submit.Len())
		}
	}

	s.wake()
}

// WorkUntilDone executes tasks from any reachable queue until status has no
// outstanding tasks. The caller becomes a participant of the pool instead of
// an idle waiter.
//
// There is no timeout: a status that nobody decrements spins forever.
func (s *WorkStealingScheduler) WorkUntilDone(ctx context.Context, status *CompletionStatus) {
	if status == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w := s.ownWorker(ctx)
	workerID := -1
	if w != nil {
		workerID = w.id
	}

	misses := 0
	for status.IsBusy() {
		if t, ok := s.findWork(w, s.state.Load()); ok {
			misses = 0
			s.execute(ctx, workerID, t)
			continue
		}
		misses++
		s.backoff.wait(misses)
	}
}

// ThreadCount returns the number of participants, the waiting goroutine
// included. It is 1 before Init and after Shutdown.
func (s *WorkStealingScheduler) ThreadCount() int {
	return int(s.threadCount.Load())
}

// WorkerCount returns the number of background workers.
func (s *WorkStealingScheduler) WorkerCount() int {
	return len(s.state.Load().workers)
}

// Name returns the scheduler's label.
func (s *WorkStealingScheduler) Name() string {
	return s.name
}

// IsRunning returns whether background workers are active.
func (s *WorkStealingScheduler) IsRunning() bool {
	return s.state.Load().running
}

// QueuedTaskCount returns the number of tasks waiting in any queue.
func (s *WorkStealingScheduler) QueuedTaskCount() int {
	n := s.submit.Len()
	for _, w := range s.state.Load().workers {
		n += w.queue.Len()
	}
	return n
}

// ActiveTaskCount returns the number of tasks currently running.
func (s *WorkStealingScheduler) ActiveTaskCount() int {
	return int(s.metricActive.Load())
}

// Stats returns current observability data for this scheduler.
func (s *WorkStealingScheduler) Stats() PoolStats {
	return PoolStats{
		ID:       s.name,
		Threads:  s.ThreadCount(),
		Workers:  s.WorkerCount(),
		Queued:   s.QueuedTaskCount(),
		Active:   s.ActiveTaskCount(),
		Executed: s.metricExecuted.Load(),
		Stolen:   s.metricStolen.Load(),
		Running:  s.IsRunning(),
	}
}

// GetMetrics returns the metrics collector for this scheduler
func (s *WorkStealingScheduler) GetMetrics() Metrics {
	return s.metrics
}

// ownWorker returns the live worker of this scheduler carried by ctx.
func (s *WorkStealingScheduler) ownWorker(ctx context.Context) *worker {
	w := workerFromContext(ctx)
	if w == nil || w.sched != s || w.retired.Load() {
		return nil
	}
	return w
}

// wake nudges one parked worker. Dropping the signal when the channel is full
// is safe: every pending signal makes a worker rescan all queues.
func (s *WorkStealingScheduler) wake() {
	st := s.state.Load()
	if st.signal == nil {
		return
	}
	select {
	case st.signal <- struct{}{}:
	default:
	}
}

// findWork pops from the participant's own end first, then steals.
// self is nil for goroutines outside the pool, whose own queue is the
// submission queue.
func (s *WorkStealingScheduler) findWork(self *worker, st *poolState) (Task, bool) {
	if self != nil {
		if t, ok := self.queue.PopBack(); ok {
			return t, true
		}
	} else if t, ok := s.submit.PopBack(); ok {
		return t, true
	}

	// Victims are the workers plus the submission queue (index n).
	// Probe round-robin from a random start.
	n := len(st.workers)
	start := rand.IntN(n + 1)
	for i := 0; i <= n; i++ {
		idx := (start + i) % (n + 1)

		var victim *WorkQueue
		if idx == n {
			if self == nil {
				continue
			}
			victim = s.submit
		} else {
			if st.workers[idx] == self {
				continue
			}
			victim = st.workers[idx].queue
		}

		if t, ok := victim.PopFront(); ok {
			s.metricStolen.Add(1)
			if s.timed {
				s.metrics.RecordSteal(s.name)
			}
			return t, true
		}
	}
	return nil, false
}

// execute runs t and always decrements its status afterwards.
func (s *WorkStealingScheduler) execute(ctx context.Context, workerID int, t Task) {
	if status := t.Status(); status != nil {
		defer status.Decrement()
	}

	s.metricActive.Add(1)
	var start time.Time
	if s.timed {
		start = time.Now()
	}

	alloc := MemoryAllocStack
	defer func() {
		if r := recover(); r != nil {
			s.panicHandler.HandlePanic(ctx, s.name, workerID, r, debug.Stack())
			s.metrics.RecordTaskPanic(s.name, r)
		}
		if s.timed {
			s.metrics.RecordTaskDuration(s.name, time.Since(start))
		}
		s.metricActive.Add(-1)
		s.metricExecuted.Add(1)

		if alloc == MemoryAllocDynamic {
			if r, ok := t.(Releaser); ok {
				r.Release()
			}
		}
	}()

	alloc = t.Run(ctx)
}

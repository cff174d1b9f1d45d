package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingTask struct {
	CPUTask
	runs *atomic.Int64
}

func (t *countingTask) Run(ctx context.Context) MemoryAlloc {
	t.runs.Add(1)
	return MemoryAllocStack
}

type releaseTask struct {
	CPUTask
	released *atomic.Int32
}

func (t *releaseTask) Run(ctx context.Context) MemoryAlloc { return MemoryAllocDynamic }
func (t *releaseTask) Release()                           { t.released.Add(1) }

type recordingPanicHandler struct {
	mu     sync.Mutex
	panics []any
}

func (h *recordingPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, panicInfo)
}

func (h *recordingPanicHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.panics)
}

func newTestScheduler(t *testing.T, threads int) *WorkStealingScheduler {
	t.Helper()
	s := NewWorkStealingScheduler()
	if err := s.Init(threads); err != nil {
		t.Fatalf("Init(%d) failed: %v", threads, err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

// waitFor runs WorkUntilDone in a goroutine and fails the test if it hangs.
func waitFor(t *testing.T, s *WorkStealingScheduler, status *CompletionStatus) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.WorkUntilDone(context.Background(), status)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("WorkUntilDone did not return, %d tasks pending", status.Pending())
	}
}

// TestWorkStealingScheduler_Lifecycle tests Init/Shutdown bookkeeping
// Main test items:
// 1. A new scheduler has one participant and no workers
// 2. Init(n) starts n-1 background workers
// 3. Shutdown joins workers and is idempotent
func TestWorkStealingScheduler_Lifecycle(t *testing.T) {
	s := NewWorkStealingScheduler()

	if s.ThreadCount() != 1 {
		t.Errorf("ThreadCount() before Init = %d, want 1", s.ThreadCount())
	}
	if s.IsRunning() {
		t.Error("IsRunning() before Init = true, want false")
	}

	if err := s.Init(4); err != nil {
		t.Fatalf("Init(4) failed: %v", err)
	}
	if s.ThreadCount() != 4 {
		t.Errorf("ThreadCount() = %d, want 4", s.ThreadCount())
	}
	if s.WorkerCount() != 3 {
		t.Errorf("WorkerCount() = %d, want 3", s.WorkerCount())
	}
	if !s.IsRunning() {
		t.Error("IsRunning() after Init = false, want true")
	}

	s.Shutdown()
	s.Shutdown()

	if s.IsRunning() {
		t.Error("IsRunning() after Shutdown = true, want false")
	}
	if s.WorkerCount() != 0 {
		t.Errorf("WorkerCount() after Shutdown = %d, want 0", s.WorkerCount())
	}
}

// TestWorkStealingScheduler_InitInvalid verifies configuration errors
// Given: A running scheduler with 3 threads
// When: Init(-1) is called
// Then: ErrInvalidThreadCount is returned and the pool is unchanged
func TestWorkStealingScheduler_InitInvalid(t *testing.T) {
	s := newTestScheduler(t, 3)

	err := s.Init(-1)
	if !errors.Is(err, ErrInvalidThreadCount) {
		t.Fatalf("Init(-1) error = %v, want ErrInvalidThreadCount", err)
	}
	if s.ThreadCount() != 3 {
		t.Errorf("ThreadCount() = %d after failed Init, want 3", s.ThreadCount())
	}
	if !s.IsRunning() {
		t.Error("pool stopped after failed Init")
	}
}

func TestWorkStealingScheduler_InitZeroAndOne(t *testing.T) {
	for _, n := range []int{0, 1} {
		s := newTestScheduler(t, n)
		if s.ThreadCount() != 1 {
			t.Errorf("Init(%d): ThreadCount() = %d, want 1", n, s.ThreadCount())
		}
		if s.WorkerCount() != 0 {
			t.Errorf("Init(%d): WorkerCount() = %d, want 0", n, s.WorkerCount())
		}

		var runs atomic.Int64
		status := NewCompletionStatus()
		tasks := make([]countingTask, 50)
		for i := range tasks {
			tasks[i] = countingTask{CPUTask: NewCPUTask(status), runs: &runs}
			s.AddTask(context.Background(), &tasks[i])
		}
		waitFor(t, s, status)

		if runs.Load() != 50 {
			t.Errorf("Init(%d): runs = %d, want 50", n, runs.Load())
		}
	}
}

// TestWorkStealingScheduler_ThousandEmptyTasks covers the basic fork-join contract
// Given: Init(4) and 1000 tasks sharing one status
// When: WorkUntilDone returns
// Then: The status is idle and every Run was observed exactly once
func TestWorkStealingScheduler_ThousandEmptyTasks(t *testing.T) {
	s := newTestScheduler(t, 4)

	var runs atomic.Int64
	status := NewCompletionStatus()
	tasks := make([]countingTask, 1000)
	for i := range tasks {
		tasks[i] = countingTask{CPUTask: NewCPUTask(status), runs: &runs}
		s.AddTask(context.Background(), &tasks[i])
	}

	waitFor(t, s, status)

	if status.Pending() != 0 {
		t.Errorf("status.Pending() = %d, want 0", status.Pending())
	}
	if runs.Load() != 1000 {
		t.Errorf("runs = %d, want 1000", runs.Load())
	}
}

// TestWorkStealingScheduler_NoDoubleExecution verifies per-task run counts
func TestWorkStealingScheduler_NoDoubleExecution(t *testing.T) {
	s := newTestScheduler(t, 8)

	const n = 5000
	counts := make([]atomic.Int32, n)
	status := NewCompletionStatus()
	for i := range n {
		s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) {
			counts[i].Add(1)
		}))
	}
	waitFor(t, s, status)

	for i := range counts {
		if got := counts[i].Load(); got != 1 {
			t.Fatalf("task %d ran %d times, want 1", i, got)
		}
	}
}

func TestWorkStealingScheduler_ZeroTasksReturnsImmediately(t *testing.T) {
	s := newTestScheduler(t, 4)
	status := NewCompletionStatus()

	start := time.Now()
	s.WorkUntilDone(context.Background(), status)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("WorkUntilDone on idle status took %v", elapsed)
	}

	// nil status is a no-op
	s.WorkUntilDone(context.Background(), nil)
}

// TestWorkStealingScheduler_DisjointWrites verifies absence of races on disjoint targets
// Given: A pre-sized slice and one task per index
// When: Each task writes only its own index
// Then: The slice is fully and correctly populated
func TestWorkStealingScheduler_DisjointWrites(t *testing.T) {
	s := newTestScheduler(t, 6)

	out := make([]int, 2048)
	status := NewCompletionStatus()
	for i := range out {
		s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) {
			out[i] = i * i
		}))
	}
	waitFor(t, s, status)

	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

// TestWorkStealingScheduler_NestedTasks tests fork-join from inside a task
// Main test items:
// 1. Tasks receive a worker context when run by a worker
// 2. Tasks added with that context land on the worker's queue and complete
// 3. Nested WorkUntilDone inside a task does not deadlock
func TestWorkStealingScheduler_NestedTasks(t *testing.T) {
	s := newTestScheduler(t, 4)

	var leaves atomic.Int64
	outer := NewCompletionStatus()
	for range 16 {
		s.AddTask(context.Background(), NewFuncTask(outer, func(ctx context.Context) {
			inner := NewCompletionStatus()
			for range 32 {
				s.AddTask(ctx, NewFuncTask(inner, func(ctx context.Context) {
					leaves.Add(1)
				}))
			}
			s.WorkUntilDone(ctx, inner)
		}))
	}
	waitFor(t, s, outer)

	if leaves.Load() != 16*32 {
		t.Errorf("leaves = %d, want %d", leaves.Load(), 16*32)
	}
}

func TestWorkStealingScheduler_WorkerContext(t *testing.T) {
	s := newTestScheduler(t, 3)

	if id := CurrentWorkerID(context.Background()); id != -1 {
		t.Errorf("CurrentWorkerID(Background) = %d, want -1", id)
	}

	var sawWorker atomic.Bool
	status := NewCompletionStatus()
	for range 200 {
		s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) {
			if CurrentWorkerID(ctx) >= 0 {
				sawWorker.Store(true)
			}
			time.Sleep(100 * time.Microsecond)
		}))
	}
	waitFor(t, s, status)

	if !sawWorker.Load() {
		t.Error("no task observed a worker context; background workers never ran")
	}
}

// TestWorkStealingScheduler_PanicStillCompletes verifies fault handling
// Given: A batch where every tenth task panics
// When: WorkUntilDone is called
// Then: It returns, the handler saw every panic, the rest of the batch ran
func TestWorkStealingScheduler_PanicStillCompletes(t *testing.T) {
	handler := &recordingPanicHandler{}
	s := NewWorkStealingSchedulerWithConfig(&SchedulerConfig{PanicHandler: handler})
	if err := s.Init(4); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer s.Shutdown()

	var ok atomic.Int64
	status := NewCompletionStatus()
	for i := range 100 {
		s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) {
			if i%10 == 0 {
				panic("boom")
			}
			ok.Add(1)
		}))
	}
	waitFor(t, s, status)

	if handler.count() != 10 {
		t.Errorf("panics handled = %d, want 10", handler.count())
	}
	if ok.Load() != 90 {
		t.Errorf("successful tasks = %d, want 90", ok.Load())
	}
}

// TestWorkStealingScheduler_DefaultConfigPanicsUseLogger verifies that
// panic reports follow the configured logger
// Given: DefaultSchedulerConfig with only Logger replaced
// When: A task panics
// Then: The panic is logged through that logger
func TestWorkStealingScheduler_DefaultConfigPanicsUseLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultSchedulerConfig()
	cfg.Logger = NewZerologLogger(zerolog.New(&syncWriter{w: &buf}))

	s := NewWorkStealingSchedulerWithConfig(cfg)
	if err := s.Init(2); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer s.Shutdown()

	status := NewCompletionStatus()
	s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) {
		panic("boom")
	}))
	waitFor(t, s, status)
	s.Shutdown()

	if out := buf.String(); !strings.Contains(out, `"panic":"boom"`) {
		t.Errorf("configured logger output = %q, want the panic report", out)
	}
}

// syncWriter serialises writes from workers and the test goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

func TestWorkStealingScheduler_DynamicTasksAreReleased(t *testing.T) {
	s := newTestScheduler(t, 2)

	var released atomic.Int32
	status := NewCompletionStatus()
	for range 20 {
		s.AddTask(context.Background(), &releaseTask{CPUTask: NewCPUTask(status), released: &released})
	}
	waitFor(t, s, status)

	if released.Load() != 20 {
		t.Errorf("released = %d, want 20", released.Load())
	}
}

func TestWorkStealingScheduler_StackTasksAreNotReleased(t *testing.T) {
	s := newTestScheduler(t, 2)

	var runs atomic.Int64
	status := NewCompletionStatus()
	task := NewFuncTask(status, func(ctx context.Context) { runs.Add(1) })
	s.AddTask(context.Background(), task)
	waitFor(t, s, status)

	// The caller still owns the closure and may submit it again.
	s.AddTask(context.Background(), task)
	waitFor(t, s, status)

	if runs.Load() != 2 {
		t.Errorf("runs = %d, want 2", runs.Load())
	}
}

// TestWorkStealingScheduler_Reinit tests re-initialization with queued work
// Main test items:
// 1. Init on a running pool joins the old workers first
// 2. Tasks queued before the re-init still run exactly once
// 3. The new thread count takes effect
func TestWorkStealingScheduler_Reinit(t *testing.T) {
	s := newTestScheduler(t, 4)

	var runs atomic.Int64
	status := NewCompletionStatus()
	tasks := make([]countingTask, 500)
	for i := range tasks {
		tasks[i] = countingTask{CPUTask: NewCPUTask(status), runs: &runs}
		s.AddTask(context.Background(), &tasks[i])
	}

	if err := s.Init(2); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	if s.ThreadCount() != 2 {
		t.Errorf("ThreadCount() after re-Init = %d, want 2", s.ThreadCount())
	}

	waitFor(t, s, status)
	if runs.Load() != 500 {
		t.Errorf("runs = %d, want 500", runs.Load())
	}
}

func TestWorkStealingScheduler_AddTaskBeforeInit(t *testing.T) {
	s := NewWorkStealingScheduler()

	var runs atomic.Int64
	status := NewCompletionStatus()
	for range 10 {
		s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) { runs.Add(1) }))
	}
	if s.QueuedTaskCount() != 10 {
		t.Errorf("QueuedTaskCount() = %d, want 10", s.QueuedTaskCount())
	}

	waitFor(t, s, status)
	if runs.Load() != 10 {
		t.Errorf("runs = %d, want 10", runs.Load())
	}
}

// TestWorkStealingScheduler_IncrementBeforePublish verifies a status never reads idle early
// Given: A task that adds a follow-up task to the same status from a worker
// When: WorkUntilDone is running concurrently
// Then: WorkUntilDone only returns after the follow-up ran
func TestWorkStealingScheduler_IncrementBeforePublish(t *testing.T) {
	s := newTestScheduler(t, 4)

	for range 200 {
		var followUp atomic.Bool
		status := NewCompletionStatus()
		s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) {
			s.AddTask(ctx, NewFuncTask(status, func(ctx context.Context) {
				followUp.Store(true)
			}))
		}))
		s.WorkUntilDone(context.Background(), status)

		if !followUp.Load() {
			t.Fatal("WorkUntilDone returned before the follow-up task ran")
		}
	}
}

func TestWorkStealingScheduler_Stats(t *testing.T) {
	s := newTestScheduler(t, 3)

	status := NewCompletionStatus()
	for range 64 {
		s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) {}))
	}
	waitFor(t, s, status)

	stats := s.Stats()
	if stats.ID != defaultSchedulerName {
		t.Errorf("stats.ID = %q, want %q", stats.ID, defaultSchedulerName)
	}
	if stats.Threads != 3 || stats.Workers != 2 {
		t.Errorf("stats threads/workers = %d/%d, want 3/2", stats.Threads, stats.Workers)
	}
	if stats.Executed != 64 {
		t.Errorf("stats.Executed = %d, want 64", stats.Executed)
	}
	if stats.Queued != 0 || stats.Active != 0 {
		t.Errorf("stats queued/active = %d/%d, want 0/0", stats.Queued, stats.Active)
	}
	if !stats.Running {
		t.Error("stats.Running = false, want true")
	}
}

// TestWorkStealingScheduler_ConcurrentSubmitters verifies independent batches
// from several external goroutines sharing one scheduler.
func TestWorkStealingScheduler_ConcurrentSubmitters(t *testing.T) {
	s := newTestScheduler(t, 4)

	var wg sync.WaitGroup
	results := make([]int64, 6)
	for g := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var runs atomic.Int64
			status := NewCompletionStatus()
			for range 300 {
				s.AddTask(context.Background(), NewFuncTask(status, func(ctx context.Context) { runs.Add(1) }))
			}
			s.WorkUntilDone(context.Background(), status)
			results[g] = runs.Load()
		}()
	}
	wg.Wait()

	for g, n := range results {
		if n != 300 {
			t.Errorf("submitter %d saw %d runs, want 300", g, n)
		}
	}
}

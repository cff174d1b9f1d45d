package core

import (
	"sync"
	"sync/atomic"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// =============================================================================
// WorkQueue: Per-worker double-ended task queue
// =============================================================================

// WorkQueue is an unbounded ring-buffer deque of tasks.
//
// Access discipline: the owning worker pushes and pops at the back (LIFO, so
// freshly split work stays cache-warm), thieves take from the front (oldest,
// usually the largest remaining piece of work). Each queue has its own lock;
// there is no lock shared by all queues.
type WorkQueue struct {
	mu    sync.Mutex
	buf   []Task
	head  int
	count int

	// size mirrors count so thieves can skip empty queues without locking.
	size atomic.Int64
}

func NewWorkQueue() *WorkQueue {
	return &WorkQueue{
		buf: make([]Task, defaultQueueCap),
	}
}

// PushBack appends t at the owner end.
func (q *WorkQueue) PushBack(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.buf) {
		q.resizeLocked(len(q.buf) * 2)
	}
	q.buf[(q.head+q.count)%len(q.buf)] = t
	q.count++
	q.size.Store(int64(q.count))
}

// PopBack removes the most recently pushed task (owner end).
func (q *WorkQueue) PopBack() (Task, bool) {
	if q.size.Load() == 0 {
		return nil, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, false
	}

	idx := (q.head + q.count - 1) % len(q.buf)
	t := q.buf[idx]
	// Zero out the slot to release the task reference
	q.buf[idx] = nil
	q.count--
	q.size.Store(int64(q.count))
	q.maybeCompactLocked()

	return t, true
}

// PopFront removes the oldest task (thief end).
func (q *WorkQueue) PopFront() (Task, bool) {
	if q.size.Load() == 0 {
		return nil, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, false
	}

	t := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.size.Store(int64(q.count))
	q.maybeCompactLocked()

	return t, true
}

// Drain removes every task, oldest first.
func (q *WorkQueue) Drain() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	out := make([]Task, q.count)
	for i := range q.count {
		idx := (q.head + i) % len(q.buf)
		out[i] = q.buf[idx]
	}
	q.buf = make([]Task, defaultQueueCap)
	q.head = 0
	q.count = 0
	q.size.Store(0)
	return out
}

func (q *WorkQueue) Len() int {
	return int(q.size.Load())
}

func (q *WorkQueue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *WorkQueue) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

func (q *WorkQueue) maybeCompactLocked() {
	c := len(q.buf)

	if c < compactMinCap {
		return
	}
	if q.count*compactShrinkFactor >= c {
		return
	}

	q.resizeLocked(max(max(c/2, defaultQueueCap), q.count))
}

// resizeLocked re-lays the ring so that head is at index 0.
func (q *WorkQueue) resizeLocked(newCap int) {
	newBuf := make([]Task, newCap)
	for i := range q.count {
		newBuf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = newBuf
	q.head = 0
}

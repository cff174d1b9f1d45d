package core

import (
	"fmt"
	"sync/atomic"
)

// CompletionStatus counts tasks submitted but not yet finished. It is the
// fork-join barrier of a batch: create one per batch, pass it to every task,
// then call WorkUntilDone on it.
//
// All operations are lock-free and never block. A status must not be shared by
// two unrelated batches at the same time.
type CompletionStatus struct {
	busy atomic.Int64
}

// NewCompletionStatus returns an idle status.
func NewCompletionStatus() *CompletionStatus {
	return &CompletionStatus{}
}

// Increment registers one more outstanding task.
func (s *CompletionStatus) Increment() {
	s.busy.Add(1)
}

// Decrement marks one task as finished. Going below zero means a task was
// reported twice or never registered, which is a caller bug.
func (s *CompletionStatus) Decrement() {
	if n := s.busy.Add(-1); n < 0 {
		panic(fmt.Sprintf("CompletionStatus: counter went negative (%d)", n))
	}
}

// IsBusy reports whether tasks registered on s are still outstanding.
func (s *CompletionStatus) IsBusy() bool {
	return s.busy.Load() > 0
}

// Pending returns the number of outstanding tasks.
func (s *CompletionStatus) Pending() int64 {
	return s.busy.Load()
}

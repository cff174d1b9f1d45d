package core

// PoolStats represents runtime observability state for a scheduler.
type PoolStats struct {
	ID       string
	Threads  int   // participants, the waiting goroutine included
	Workers  int   // background workers
	Queued   int   // tasks waiting in any queue
	Active   int   // tasks currently running
	Executed int64 // tasks finished since construction
	Stolen   int64 // tasks taken from another participant's queue
	Running  bool
}

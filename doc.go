// Package taskscheduler provides a work-stealing task scheduler for
// CPU-bound fork/join workloads.
//
// Work is submitted as small tasks bound to a CompletionStatus. The goroutine
// that waits on the status takes part in executing tasks, so a scheduler
// initialized with n threads runs n-1 background workers plus the waiter.
//
// # Quick Start
//
// Construct a scheduler and pass it to the parallel-for helpers:
//
//	s := taskscheduler.NewWorkStealingScheduler()
//	if err := s.Init(runtime.GOMAXPROCS(0)); err != nil {
//		return err
//	}
//	defer s.Shutdown()
//
//	taskscheduler.ParallelForEach(ctx, s, 0, len(out), func(i int) {
//		out[i] = compute(i)
//	})
//
// # Key Concepts
//
// Task: a value with Run and Status methods. Embed CPUTask to get Status.
// Run reports whether the scheduler owns the task afterwards (MemoryAllocDynamic)
// or the submitter does (MemoryAllocStack).
//
// CompletionStatus: a counter of registered but unfinished tasks. AddTask
// increments it before the task becomes visible to any worker;
// WorkUntilDone returns once it reaches zero.
//
// WorkStealingScheduler: one queue per worker. Owners push and pop at the
// back; idle workers steal from the front of other queues. Goroutines outside
// the pool submit to a shared queue that workers also steal from.
//
// # Process-wide Scheduler
//
// Code that cannot receive a scheduler explicitly can use the main scheduler:
//
//	if err := taskscheduler.InitMainScheduler(4); err != nil {
//		log.Fatal(err)
//	}
//	defer taskscheduler.ShutdownMainScheduler()
//
//	s := taskscheduler.MainScheduler()
//
// Named schedulers are kept in a Registry; see NewRegistry and
// CreateInRegistry.
package taskscheduler

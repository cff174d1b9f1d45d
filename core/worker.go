package core

import (
	"context"
	"sync/atomic"
)

// worker is one background participant of a WorkStealingScheduler.
type worker struct {
	id      int
	sched   *WorkStealingScheduler
	queue   *WorkQueue
	retired atomic.Bool
}

// loop is the main loop for each worker. It spins briefly after running out
// of work, then parks on the wake channel until AddTask signals or the
// generation is cancelled.
func (w *worker) loop(ctx context.Context, st *poolState) {
	defer st.wg.Done()
	stopCh := ctx.Done()

	// Tasks are never cancelled, so they get a context without the
	// generation's cancellation, only the worker identity.
	taskCtx := withWorker(context.Background(), w)
	backoff := w.sched.backoff
	limit := backoff.spinLimit()

	misses := 0
	for {
		if t, ok := w.sched.findWork(w, st); ok {
			misses = 0
			w.sched.execute(taskCtx, w.id, t)
			continue
		}

		select {
		case <-stopCh:
			return
		default:
		}

		misses++
		if misses < limit {
			backoff.wait(misses)
			continue
		}

		misses = 0
		select {
		case <-st.signal:
		case <-stopCh:
			return
		}
	}
}

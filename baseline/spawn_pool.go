package baseline

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SpawnPool starts one goroutine per pushed closure, with at most limit
// running at once (errgroup.SetLimit). PushTask blocks while the limit is
// reached.
type SpawnPool struct {
	limit int

	// mu is held shared by PushTask for the whole Go call, so WaitForTasks
	// cannot swap the group out from under an in-flight push.
	mu    sync.RWMutex
	group *errgroup.Group
}

var _ Pool = (*SpawnPool)(nil)

// NewSpawnPool creates a pool; limit < 1 uses GOMAXPROCS.
func NewSpawnPool(limit int) *SpawnPool {
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}
	p := &SpawnPool{limit: limit}
	p.group = p.newGroup()
	return p
}

func (p *SpawnPool) newGroup() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(p.limit)
	return g
}

// PushTask runs fn on a new goroutine. fn must not call PushTask itself.
func (p *SpawnPool) PushTask(fn func()) {
	if fn == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.group.Go(func() error {
		fn()
		return nil
	})
}

// ParallelizeLoop uses the same block split as SharedQueuePool.
func (p *SpawnPool) ParallelizeLoop(begin, end int64, fn func(a, b int64)) {
	for _, r := range loopBlocks(begin, end, p.limit) {
		p.PushTask(func() { fn(r.Start, r.End) })
	}
}

// WaitForTasks waits for every pushed closure, then starts a fresh group so
// the pool can be reused.
func (p *SpawnPool) WaitForTasks() {
	p.mu.Lock()
	g := p.group
	p.group = p.newGroup()
	p.mu.Unlock()

	// Closures never return errors.
	_ = g.Wait()
}

// WorkerCount returns the concurrency limit.
func (p *SpawnPool) WorkerCount() int {
	return p.limit
}

package core

import (
	"context"

	"golang.org/x/exp/constraints"
)

// IndexRange is the half-open index interval [Start, End).
type IndexRange[T constraints.Integer] struct {
	Start T
	End   T
}

// Len returns the number of indices in r.
func (r IndexRange[T]) Len() T {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// IsEmpty reports whether r contains no index.
func (r IndexRange[T]) IsEmpty() bool {
	return r.End <= r.Start
}

// Partition splits [begin, end) into at most parts contiguous ranges. Sizes
// differ by at most one, and the first (end-begin)%parts ranges get the extra
// index. An empty interval yields nil; parts < 1 is treated as 1.
func Partition[T constraints.Integer](begin, end T, parts int) []IndexRange[T] {
	if end <= begin {
		return nil
	}
	if parts < 1 {
		parts = 1
	}

	n := uint64(end) - uint64(begin)
	if uint64(parts) > n {
		parts = int(n)
	}

	base := n / uint64(parts)
	rem := n % uint64(parts)

	out := make([]IndexRange[T], parts)
	start := begin
	for i := range parts {
		size := base
		if uint64(i) < rem {
			size++
		}
		out[i] = IndexRange[T]{Start: start, End: start + T(size)}
		start += T(size)
	}
	return out
}

// ForEachOption tunes how a combinator partitions its index range.
type ForEachOption func(*forEachOptions)

type forEachOptions struct {
	chunks       int
	minChunkSize int
}

// WithChunkCount overrides the number of chunks (default: ThreadCount()).
func WithChunkCount(n int) ForEachOption {
	return func(o *forEachOptions) {
		o.chunks = n
	}
}

// WithMinChunkSize reduces the chunk count so that no chunk holds fewer than
// size indices. Useful when per-index work is tiny compared with dispatch.
func WithMinChunkSize(size int) ForEachOption {
	return func(o *forEachOptions) {
		o.minChunkSize = size
	}
}

func chunkCount[T constraints.Integer](s Scheduler, begin, end T, opts []ForEachOption) int {
	o := forEachOptions{chunks: s.ThreadCount()}
	for _, opt := range opts {
		opt(&o)
	}
	chunks := max(o.chunks, 1)
	if o.minChunkSize > 1 && end > begin {
		limit := (uint64(end) - uint64(begin)) / uint64(o.minChunkSize)
		chunks = int(min(uint64(chunks), max(limit, 1)))
	}
	return chunks
}

// rangeTask runs one chunk of a parallel-for. The tasks of a call live in one
// slice owned by that call, hence MemoryAllocStack.
type rangeTask[T constraints.Integer] struct {
	CPUTask
	r  IndexRange[T]
	fn func(ctx context.Context, r IndexRange[T])
}

func (t *rangeTask[T]) Run(ctx context.Context) MemoryAlloc {
	t.fn(ctx, t.r)
	return MemoryAllocStack
}

func dispatchRanges[T constraints.Integer](ctx context.Context, s Scheduler, ranges []IndexRange[T], fn func(ctx context.Context, r IndexRange[T])) {
	if len(ranges) == 0 {
		return
	}

	status := NewCompletionStatus()
	tasks := make([]rangeTask[T], len(ranges))
	for i, r := range ranges {
		tasks[i] = rangeTask[T]{CPUTask: NewCPUTask(status), r: r, fn: fn}
		s.AddTask(ctx, &tasks[i])
	}
	s.WorkUntilDone(ctx, status)
}

// ParallelForEach calls fn(i) once for every i in [begin, end) and returns
// after all calls finished. Indices are grouped into contiguous chunks, one
// task per chunk, sized by Partition.
//
// fn runs concurrently with itself; it must only touch state that is
// disjoint per index or otherwise synchronized.
func ParallelForEach[T constraints.Integer](ctx context.Context, s Scheduler, begin, end T, fn func(i T), opts ...ForEachOption) {
	ranges := Partition(begin, end, chunkCount(s, begin, end, opts))
	dispatchRanges(ctx, s, ranges, func(_ context.Context, r IndexRange[T]) {
		for i := r.Start; i < r.End; i++ {
			fn(i)
		}
	})
}

// ParallelForEachRange is ParallelForEach with the whole chunk handed to fn,
// so per-chunk setup is paid once per chunk instead of once per index.
func ParallelForEachRange[T constraints.Integer](ctx context.Context, s Scheduler, begin, end T, fn func(r IndexRange[T]), opts ...ForEachOption) {
	ranges := Partition(begin, end, chunkCount(s, begin, end, opts))
	dispatchRanges(ctx, s, ranges, func(_ context.Context, r IndexRange[T]) {
		fn(r)
	})
}

// ParallelForEachRangeContext is ParallelForEachRange for bodies that submit
// nested work: fn receives the executing task's context, and passing it to
// AddTask keeps nested tasks on the executing worker's queue.
func ParallelForEachRangeContext[T constraints.Integer](ctx context.Context, s Scheduler, begin, end T, fn func(ctx context.Context, r IndexRange[T]), opts ...ForEachOption) {
	ranges := Partition(begin, end, chunkCount(s, begin, end, opts))
	dispatchRanges(ctx, s, ranges, fn)
}

package core

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeScheduler runs tasks inline and records what was dispatched.
type fakeScheduler struct {
	threads int

	mu     sync.Mutex
	ranges []IndexRange[int]
	tasks  int
}

func (f *fakeScheduler) AddTask(ctx context.Context, task Task) {
	task.Status().Increment()
	f.mu.Lock()
	f.tasks++
	if rt, ok := task.(*rangeTask[int]); ok {
		f.ranges = append(f.ranges, rt.r)
	}
	f.mu.Unlock()
	task.Run(ctx)
	task.Status().Decrement()
}

func (f *fakeScheduler) WorkUntilDone(ctx context.Context, status *CompletionStatus) {}

func (f *fakeScheduler) ThreadCount() int { return f.threads }

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		begin int
		end   int
		parts int
		want  []IndexRange[int]
	}{
		{"empty", 5, 5, 4, nil},
		{"reversed", 5, 2, 4, nil},
		{"single part", 0, 10, 1, []IndexRange[int]{{0, 10}}},
		{"even split", 0, 8, 4, []IndexRange[int]{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"remainder goes first", 0, 10, 4, []IndexRange[int]{{0, 3}, {3, 6}, {6, 8}, {8, 10}}},
		{"more parts than items", 3, 6, 8, []IndexRange[int]{{3, 4}, {4, 5}, {5, 6}}},
		{"zero parts", 0, 3, 0, []IndexRange[int]{{0, 3}}},
		{"negative start", -4, 3, 2, []IndexRange[int]{{-4, 0}, {0, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(tt.begin, tt.end, tt.parts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Partition(%d, %d, %d) mismatch (-want +got):\n%s", tt.begin, tt.end, tt.parts, diff)
			}
		})
	}
}

// TestPartition_NinetySevenOverEight checks the 97-element, 8-thread split
// Given: [0, 97) and 8 parts
// When: Partition is called
// Then: Sizes sum to 97, the first chunk is the larger one, ranges are contiguous
func TestPartition_NinetySevenOverEight(t *testing.T) {
	ranges := Partition(0, 97, 8)

	if len(ranges) != 8 {
		t.Fatalf("len(ranges) = %d, want 8", len(ranges))
	}
	sum := 0
	next := 0
	for i, r := range ranges {
		if r.Start != next {
			t.Errorf("ranges[%d].Start = %d, want %d", i, r.Start, next)
		}
		sum += r.Len()
		next = r.End
	}
	if sum != 97 || next != 97 {
		t.Errorf("coverage = %d ending at %d, want 97 ending at 97", sum, next)
	}
	if ranges[0].Len() != 13 || ranges[7].Len() != 12 {
		t.Errorf("chunk sizes first/last = %d/%d, want 13/12", ranges[0].Len(), ranges[7].Len())
	}
}

func TestPartition_SmallIntegerTypes(t *testing.T) {
	got := Partition[int8](-128, 127, 5)
	total := 0
	for _, r := range got {
		total += int(r.End) - int(r.Start)
	}
	if total != 255 {
		t.Errorf("int8 coverage = %d, want 255", total)
	}
	if got[0].Start != -128 || got[len(got)-1].End != 127 {
		t.Errorf("int8 bounds = [%d, %d), want [-128, 127)", got[0].Start, got[len(got)-1].End)
	}

	u := Partition[uint](10, 20, 3)
	want := []IndexRange[uint]{{10, 14}, {14, 17}, {17, 20}}
	if diff := cmp.Diff(want, u); diff != "" {
		t.Errorf("uint partition mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexRange(t *testing.T) {
	r := IndexRange[int64]{Start: 3, End: 9}
	if r.Len() != 6 || r.IsEmpty() {
		t.Errorf("Len/IsEmpty = %d/%v, want 6/false", r.Len(), r.IsEmpty())
	}
	empty := IndexRange[int64]{Start: 9, End: 3}
	if empty.Len() != 0 || !empty.IsEmpty() {
		t.Errorf("reversed Len/IsEmpty = %d/%v, want 0/true", empty.Len(), empty.IsEmpty())
	}
}

// TestParallelForEach_DispatchedChunks verifies chunks handed to the scheduler
// Given: A scheduler reporting 8 threads and the range [0, 97)
// When: ParallelForEach runs
// Then: 8 disjoint contiguous chunks covering [0, 97) were dispatched
func TestParallelForEach_DispatchedChunks(t *testing.T) {
	f := &fakeScheduler{threads: 8}
	var calls atomic.Int64

	ParallelForEach(context.Background(), f, 0, 97, func(i int) { calls.Add(1) })

	if f.tasks != 8 {
		t.Errorf("dispatched tasks = %d, want 8", f.tasks)
	}
	if calls.Load() != 97 {
		t.Errorf("fn calls = %d, want 97", calls.Load())
	}
	if diff := cmp.Diff(Partition(0, 97, 8), f.ranges); diff != "" {
		t.Errorf("dispatched ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestParallelForEach_EmptyRangeDispatchesNothing(t *testing.T) {
	f := &fakeScheduler{threads: 4}
	called := false

	ParallelForEach(context.Background(), f, 10, 10, func(i int) { called = true })
	ParallelForEachRange(context.Background(), f, 10, 10, func(r IndexRange[int]) { called = true })

	if f.tasks != 0 {
		t.Errorf("dispatched tasks = %d, want 0", f.tasks)
	}
	if called {
		t.Error("fn was called for an empty range")
	}
}

func TestParallelForEach_Options(t *testing.T) {
	f := &fakeScheduler{threads: 8}
	ParallelForEach(context.Background(), f, 0, 100, func(int) {}, WithChunkCount(3))
	if f.tasks != 3 {
		t.Errorf("WithChunkCount(3): tasks = %d, want 3", f.tasks)
	}

	f = &fakeScheduler{threads: 8}
	ParallelForEach(context.Background(), f, 0, 100, func(int) {}, WithMinChunkSize(40))
	if f.tasks != 2 {
		t.Errorf("WithMinChunkSize(40): tasks = %d, want 2", f.tasks)
	}

	f = &fakeScheduler{threads: 8}
	ParallelForEach(context.Background(), f, 0, 5, func(int) {}, WithMinChunkSize(100))
	if f.tasks != 1 {
		t.Errorf("WithMinChunkSize(100) on 5 items: tasks = %d, want 1", f.tasks)
	}
}

// TestParallelForEach_Coverage runs the real scheduler across thread counts
// and checks every index is visited exactly once.
func TestParallelForEach_Coverage(t *testing.T) {
	for _, threads := range []int{1, 2, 3, 8} {
		s := newTestScheduler(t, threads)
		for _, n := range []int{0, 1, 7, 97, 1000} {
			visits := make([]atomic.Int32, n)
			ParallelForEach(context.Background(), s, 0, n, func(i int) {
				visits[i].Add(1)
			})
			for i := range visits {
				if got := visits[i].Load(); got != 1 {
					t.Fatalf("threads=%d n=%d: index %d visited %d times, want 1", threads, n, i, got)
				}
			}
		}
	}
}

func TestParallelForEachRange_Coverage(t *testing.T) {
	for _, threads := range []int{1, 4, 8} {
		s := newTestScheduler(t, threads)

		var mu sync.Mutex
		var got []IndexRange[int64]
		ParallelForEachRange(context.Background(), s, int64(-50), int64(1234), func(r IndexRange[int64]) {
			mu.Lock()
			got = append(got, r)
			mu.Unlock()
		})

		sort.Slice(got, func(i, j int) bool { return got[i].Start < got[j].Start })
		if diff := cmp.Diff(Partition(int64(-50), int64(1234), threads), got); diff != "" {
			t.Errorf("threads=%d: ranges mismatch (-want +got):\n%s", threads, diff)
		}
	}
}

// TestParallelForEachRange_SequentialCalls verifies two back-to-back calls
// on one scheduler complete independently.
func TestParallelForEachRange_SequentialCalls(t *testing.T) {
	s := newTestScheduler(t, 4)

	a := make([]float64, 500)
	b := make([]float64, 700)

	ParallelForEachRange(context.Background(), s, 0, len(a), func(r IndexRange[int]) {
		for i := r.Start; i < r.End; i++ {
			a[i] = float64(i) * 0.5
		}
	})
	ParallelForEachRange(context.Background(), s, 0, len(b), func(r IndexRange[int]) {
		for i := r.Start; i < r.End; i++ {
			b[i] = a[i%len(a)] + 1
		}
	})

	for i := range a {
		if a[i] != float64(i)*0.5 {
			t.Fatalf("a[%d] = %v, want %v", i, a[i], float64(i)*0.5)
		}
	}
	for i := range b {
		if want := float64(i%len(a))*0.5 + 1; b[i] != want {
			t.Fatalf("b[%d] = %v, want %v", i, b[i], want)
		}
	}
}

func TestParallelForEachRangeContext_NestedLoops(t *testing.T) {
	s := newTestScheduler(t, 4)

	const rows, cols = 40, 60
	grid := make([][]int, rows)
	for i := range grid {
		grid[i] = make([]int, cols)
	}

	ParallelForEachRangeContext(context.Background(), s, 0, rows, func(ctx context.Context, r IndexRange[int]) {
		for row := r.Start; row < r.End; row++ {
			ParallelForEach(ctx, s, 0, cols, func(col int) {
				grid[row][col] = row*cols + col
			})
		}
	})

	for row := range grid {
		for col := range grid[row] {
			if grid[row][col] != row*cols+col {
				t.Fatalf("grid[%d][%d] = %d, want %d", row, col, grid[row][col], row*cols+col)
			}
		}
	}
}

package core

import (
	"context"
	"fmt"
	"runtime"
	"testing"
)

type emptyTask struct {
	CPUTask
}

func (t *emptyTask) Run(ctx context.Context) MemoryAlloc { return MemoryAllocStack }

var benchSink float64

func spin(n int) float64 {
	acc := 0.0
	for i := 1; i <= n; i++ {
		acc += 1.0 / float64(i)
	}
	return acc
}

func benchThreadCounts() []int {
	counts := []int{1}
	for n := 2; n <= runtime.GOMAXPROCS(0); n *= 2 {
		counts = append(counts, n)
	}
	return counts
}

func BenchmarkWorkStealingScheduler_EmptyTasks(b *testing.B) {
	for _, tasks := range []int{1000, 10000} {
		for _, threads := range benchThreadCounts() {
			b.Run(fmt.Sprintf("tasks=%d/threads=%d", tasks, threads), func(b *testing.B) {
				s := NewWorkStealingScheduler()
				if err := s.Init(threads); err != nil {
					b.Fatal(err)
				}
				defer s.Shutdown()

				ctx := context.Background()
				buf := make([]emptyTask, tasks)
				b.ResetTimer()
				for range b.N {
					status := NewCompletionStatus()
					for i := range buf {
						buf[i] = emptyTask{CPUTask: NewCPUTask(status)}
						s.AddTask(ctx, &buf[i])
					}
					s.WorkUntilDone(ctx, status)
				}
			})
		}
	}
}

func BenchmarkParallelForEach(b *testing.B) {
	const n = 10000
	for _, threads := range benchThreadCounts() {
		b.Run(fmt.Sprintf("threads=%d", threads), func(b *testing.B) {
			s := NewWorkStealingScheduler()
			if err := s.Init(threads); err != nil {
				b.Fatal(err)
			}
			defer s.Shutdown()

			out := make([]float64, n)
			b.ResetTimer()
			for range b.N {
				ParallelForEach(context.Background(), s, 0, n, func(i int) {
					out[i] = spin(64)
				})
			}
			benchSink = out[n-1]
		})
	}
}

func BenchmarkParallelForEachRange(b *testing.B) {
	const n = 10000
	for _, threads := range benchThreadCounts() {
		b.Run(fmt.Sprintf("threads=%d", threads), func(b *testing.B) {
			s := NewWorkStealingScheduler()
			if err := s.Init(threads); err != nil {
				b.Fatal(err)
			}
			defer s.Shutdown()

			out := make([]float64, n)
			b.ResetTimer()
			for range b.N {
				ParallelForEachRange(context.Background(), s, 0, n, func(r IndexRange[int]) {
					for i := r.Start; i < r.End; i++ {
						out[i] = spin(64)
					}
				})
			}
			benchSink = out[n-1]
		})
	}
}

// Package kernels holds the workloads the benchmark harness feeds to the
// schedulers: a fixed-duration busy loop and a small matrix product.
package kernels

import "time"

// DefaultPayload is the busy time of one payload task.
const DefaultPayload = 100 * time.Microsecond

// Payload keeps the calling goroutine busy for at least d and returns a value
// derived from the work so the loop cannot be optimized away.
func Payload(d time.Duration) int64 {
	begin := time.Now()
	seed := begin.UnixNano()
	if seed < 0 {
		seed = -seed
	}
	seed |= 1

	var acc int64
	for time.Since(begin) < d {
		for i := int64(1); i < seed%100; i++ {
			acc += seed / i
			acc %= seed
		}
	}
	return acc
}

// TheoryMs is the ideal wall time in milliseconds of running tasks payloads
// of length d on threads participants with zero overhead.
func TheoryMs(tasks int, d time.Duration, threads int) float64 {
	if threads < 1 {
		threads = 1
	}
	return float64(tasks) * float64(d) / float64(time.Millisecond) / float64(threads)
}

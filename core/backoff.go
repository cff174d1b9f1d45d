package core

import (
	"runtime"
	"time"
)

// IdleBackoff defines how a participant waits after failing to find work.
//
// Misses below SpinCount return immediately, misses below SpinCount+YieldCount
// call runtime.Gosched, and later misses sleep with exponential growth from
// InitialSleep up to MaxSleep. Any successful pop resets the miss counter.
type IdleBackoff struct {
	// SpinCount is the number of misses retried without yielding.
	SpinCount int

	// YieldCount is the number of misses that only yield the processor.
	YieldCount int

	// InitialSleep is the first sleep once spinning and yielding are exhausted.
	InitialSleep time.Duration

	// MaxSleep caps the sleep duration.
	MaxSleep time.Duration

	// BackoffRatio multiplies the sleep after each further miss (e.g. 2.0).
	BackoffRatio float64
}

// DefaultIdleBackoff favours wake latency: the tasks this scheduler targets
// finish within microseconds.
func DefaultIdleBackoff() IdleBackoff {
	return IdleBackoff{
		SpinCount:    32,
		YieldCount:   64,
		InitialSleep: 5 * time.Microsecond,
		MaxSleep:     500 * time.Microsecond,
		BackoffRatio: 2.0,
	}
}

// NoSleepBackoff never sleeps; idle participants only yield.
func NoSleepBackoff() IdleBackoff {
	return IdleBackoff{
		SpinCount:    0,
		YieldCount:   1 << 30,
		InitialSleep: 0,
		MaxSleep:     0,
		BackoffRatio: 1.0,
	}
}

func (b IdleBackoff) isZero() bool {
	return b == IdleBackoff{}
}

// wait blocks according to the policy for the given consecutive miss count.
func (b IdleBackoff) wait(misses int) {
	if misses < b.SpinCount {
		return
	}
	if misses < b.SpinCount+b.YieldCount || b.InitialSleep <= 0 {
		runtime.Gosched()
		return
	}
	time.Sleep(b.sleepFor(misses - b.SpinCount - b.YieldCount))
}

// sleepFor calculates the sleep for the given attempt past the yield phase
// (0-indexed).
func (b IdleBackoff) sleepFor(attempt int) time.Duration {
	if b.InitialSleep == 0 {
		return 0
	}

	delay := float64(b.InitialSleep)
	for i := 0; i < attempt; i++ {
		delay *= b.BackoffRatio
		if b.MaxSleep > 0 && delay >= float64(b.MaxSleep) {
			break
		}
	}

	if b.MaxSleep > 0 && delay > float64(b.MaxSleep) {
		delay = float64(b.MaxSleep)
	}

	return time.Duration(delay)
}

// spinLimit is how many misses an idle worker tolerates before parking on
// the wake channel.
func (b IdleBackoff) spinLimit() int {
	return b.SpinCount + min(b.YieldCount, 64)
}

package backoff

import (
	"math/rand"
	"time"
)

const int64Max = 1<<63 - 1

// Time returns a randomized exponential backoff duration for the given retry
// count: uniform in [0, 2^retries) slots, capped at maximum.
func Time(retries int64, slotTime time.Duration, maximum time.Duration) (backoff time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			backoff = maximum
		}
	}()

	if slotTime <= 0 || retries <= 0 {
		return time.Duration(0)
	}

	umax := uint64(1) << retries
	if umax > int64Max || umax == 0 {
		return maximum
	}
	n := rand.Int63n(int64(umax))

	// Prevents overflow
	u64Time := uint64(slotTime.Nanoseconds()) * uint64(n)
	if u64Time > int64Max {
		return maximum
	}

	backoff = time.Duration(n) * slotTime
	if backoff > maximum {
		backoff = maximum
	}
	return backoff
}

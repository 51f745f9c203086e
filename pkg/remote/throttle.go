package remote

import (
	"math"
	"time"
)

// Delay returns how long a transfer should pause so that its average rate
// stays under limitKBps. A limit of 0 disables throttling.
//
// The rate is recomputed from scratch after every chunk, so Delay bounds the
// average over the whole transfer rather than smoothing short bursts.
func Delay(limitKBps int, transferred int64, elapsed time.Duration) time.Duration {
	if limitKBps <= 0 {
		return 0
	}

	rate := transferred
	if elapsed >= time.Second {
		rate = int64(float64(transferred) / elapsed.Seconds())
	}
	if rate <= 1000*int64(limitKBps) {
		return 0
	}

	// The number of milliseconds the transfer should have taken at the
	// limit, minus the time it actually took.
	delayMs := float64(transferred/int64(limitKBps)) - float64(elapsed)/float64(time.Millisecond)
	if delayMs <= 0 {
		return 0
	}
	if delayMs > math.MaxInt32 {
		delayMs = math.MaxInt32
	}
	return time.Duration(delayMs) * time.Millisecond
}

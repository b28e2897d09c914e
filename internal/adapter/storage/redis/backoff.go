package redis

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	maxShift      = 62
	minRetryDelay = time.Millisecond
)

// exponential returns base * 2^attempt, saturating instead of overflowing.
func exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	multiplier := int64(1) << attempt
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}
	return base * time.Duration(multiplier)
}

// fullJitter returns a random duration in [0, delay).
func fullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(delay))) // #nosec G404 -- jitter, not security
}

// retryDelayFunc builds the redsync delay between acquisition attempts:
// exponential in the attempt number, capped at max, with full jitter and a
// small floor so waiters never spin.
func retryDelayFunc(base, max time.Duration) func(tries int) time.Duration {
	return func(tries int) time.Duration {
		d := exponential(base, tries-1)
		if max > 0 && d > max {
			d = max
		}
		if j := fullJitter(d); j > minRetryDelay {
			return j
		}
		return minRetryDelay
	}
}

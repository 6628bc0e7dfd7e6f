package worker

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	backoffBase = 5 * time.Second
	backoffCap  = 15 * time.Minute
)

// ExponentialBackoff returns the delay before retry number attempt:
// 5s, 10s, 20s ... capped at 15m, plus up to 500ms of jitter.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}

	return delay + time.Duration(rand.IntN(500))*time.Millisecond
}

// Package backoff provides the delay calculations behind retry policies.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the delay before a given retry attempt. Attempt
// numbering starts at zero for the first retry.
type Strategy interface {
	Delay(attempt int, base, max time.Duration) time.Duration
}

// Exponential doubles the delay each attempt (base * Multiplier^attempt,
// capped at max) and optionally adds uniform jitter. The zero value is a
// pure power-of-two schedule, which retry falloffs rely on.
type Exponential struct {
	// Multiplier scales each successive attempt; values <= 1 mean 2.
	Multiplier float64
	// Jitter in [0, 1] adds up to that fraction of the delay at random.
	Jitter float64
}

// Delay implements Strategy.
func (s Exponential) Delay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 62 {
		attempt = 62
	}
	multiplier := s.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}

	d := time.Duration(float64(base) * pow(multiplier, attempt))
	if d < 0 || (max > 0 && d > max) {
		d = max
	}

	jitter := s.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		extra := time.Duration(float64(d) * jitter * rand.Float64())
		if max > 0 && d+extra > max {
			d = max
		} else {
			d += extra
		}
	}
	return d
}

// Decorrelated implements AWS-style decorrelated jitter: a random delay
// between base and base*3^attempt, capped at max. It smooths tail latency
// under contention better than plain exponential jitter.
type Decorrelated struct{}

// Delay implements Strategy.
func (Decorrelated) Delay(attempt int, base, max time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	if attempt > 10 {
		attempt = 10
	}

	lower := float64(base)
	upper := lower * pow(3, attempt)
	if max > 0 && (upper > float64(max) || upper < 0) {
		upper = float64(max)
	}
	if upper < lower {
		upper = lower
	}

	d := time.Duration(lower + rand.Float64()*(upper-lower))
	if d < 0 || (max > 0 && d > max) {
		d = max
	}
	return d
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}

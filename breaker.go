package datalayer

import (
	"context"
	"sync/atomic"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int64

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// BreakerConfig holds circuit breaker thresholds. Zero values take the
// defaults noted on each field.
type BreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures. Default 5.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before probing
	// half-open. Default 60s.
	RecoveryTimeout time.Duration
	// SuccessThreshold closes a half-open circuit after this many
	// consecutive successes. Default 2.
	SuccessThreshold int
}

// Breaker is a lock-free circuit breaker with closed, open and half-open
// states. It is safe for concurrent use.
type Breaker struct {
	config      BreakerConfig
	state       int64
	failures    int64
	successes   int64
	lastFailure int64
}

// NewBreaker creates a circuit breaker, filling zero config fields with
// defaults.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}
	return &Breaker{config: config, state: int64(BreakerClosed)}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	return BreakerState(atomic.LoadInt64(&b.state))
}

// Allow reports whether a request may proceed, transitioning open circuits
// to half-open once the recovery timeout elapses.
func (b *Breaker) Allow() bool {
	switch b.State() {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		last := atomic.LoadInt64(&b.lastFailure)
		if time.Now().UnixNano()-last >= int64(b.config.RecoveryTimeout) {
			if atomic.CompareAndSwapInt64(&b.state, int64(BreakerOpen), int64(BreakerHalfOpen)) {
				atomic.StoreInt64(&b.successes, 0)
				return true
			}
		}
		return false
	default:
		return false
	}
}

// RecordFailure notes a failed dispatch.
func (b *Breaker) RecordFailure() {
	atomic.StoreInt64(&b.lastFailure, time.Now().UnixNano())

	switch b.State() {
	case BreakerClosed:
		if atomic.AddInt64(&b.failures, 1) >= int64(b.config.FailureThreshold) {
			atomic.StoreInt64(&b.state, int64(BreakerOpen))
		}
	case BreakerHalfOpen:
		atomic.StoreInt64(&b.state, int64(BreakerOpen))
		atomic.StoreInt64(&b.successes, 0)
	}
}

// RecordSuccess notes a successful dispatch.
func (b *Breaker) RecordSuccess() {
	switch b.State() {
	case BreakerClosed:
		atomic.StoreInt64(&b.failures, 0)
	case BreakerHalfOpen:
		if atomic.AddInt64(&b.successes, 1) >= int64(b.config.SuccessThreshold) {
			atomic.StoreInt64(&b.state, int64(BreakerClosed))
			atomic.StoreInt64(&b.failures, 0)
			atomic.StoreInt64(&b.successes, 0)
		}
	}
}

// WithBreaker short-circuits dispatch while the breaker is open, failing
// fast with an ErrCircuitOpen-kinded error. Recoverable dispatch failures
// trip the breaker; fatal construction errors do not, since no amount of
// backing off fixes a missing adapter.
func WithBreaker(next Fetch, breaker *Breaker) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if !breaker.Allow() {
			return nil, &DataError{
				Kind:     KindCircuit,
				Severity: SeverityError,
				Message:  "circuit breaker is open",
				Cause:    ErrCircuitOpen,
			}
		}
		resp, err := next(ctx, req)
		if err != nil && !IsFatal(err) {
			breaker.RecordFailure()
			return nil, err
		}
		if err == nil {
			breaker.RecordSuccess()
		}
		return resp, err
	}
}

package datalayer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	if b.State() != BreakerClosed {
		t.Error("Expected breaker closed below the threshold")
	}

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Error("Expected breaker open at the threshold")
	}
	if b.Allow() {
		t.Error("Expected open breaker to reject requests")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	if b.State() != BreakerClosed {
		t.Error("Expected success to reset the consecutive failure count")
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, SuccessThreshold: 2})

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatal("Expected breaker open")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("Expected half-open probe after the recovery timeout")
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("Expected half-open state, got %v", b.State())
	}

	b.RecordSuccess()
	if b.State() != BreakerHalfOpen {
		t.Error("Expected breaker to stay half-open below the success threshold")
	}
	b.RecordSuccess()
	if b.State() != BreakerClosed {
		t.Error("Expected breaker closed after enough successes")
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("Expected half-open probe")
	}

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Error("Expected half-open failure to reopen the breaker")
	}
}

func TestNewBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})
	if b.config.FailureThreshold != 5 {
		t.Errorf("Expected default failure threshold 5, got %d", b.config.FailureThreshold)
	}
	if b.config.RecoveryTimeout != 60*time.Second {
		t.Errorf("Expected default recovery timeout 60s, got %v", b.config.RecoveryTimeout)
	}
	if b.config.SuccessThreshold != 2 {
		t.Errorf("Expected default success threshold 2, got %d", b.config.SuccessThreshold)
	}
}

func TestWithBreakerShortCircuits(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	boom := &DataError{Kind: KindHTTP, Severity: SeverityError, Status: 503, Response: &Response{Status: 503}}
	calls := 0
	fetch := WithBreaker(func(ctx context.Context, req *Request) (*Response, error) {
		calls++
		return nil, boom
	}, b)

	if _, err := fetch(context.Background(), &Request{URL: "/x"}); err != boom {
		t.Fatalf("Expected dispatch failure, got %v", err)
	}

	_, err := fetch(context.Background(), &Request{URL: "/x"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	var de *DataError
	if !errors.As(err, &de) || de.Kind != KindCircuit {
		t.Errorf("Expected a %s error, got %v", KindCircuit, err)
	}
	if calls != 1 {
		t.Errorf("Expected the open breaker to skip dispatch, got %d calls", calls)
	}
}

func TestWithBreakerIgnoresFatalErrors(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	fatal := &DataError{Kind: KindValidation, Severity: SeverityFatal, Message: "bad request shape"}
	fetch := WithBreaker(func(ctx context.Context, req *Request) (*Response, error) {
		return nil, fatal
	}, b)

	for i := 0; i < 3; i++ {
		if _, err := fetch(context.Background(), &Request{URL: "/x"}); err != fatal {
			t.Fatalf("Expected the fatal error, got %v", err)
		}
	}
	if b.State() != BreakerClosed {
		t.Error("Expected fatal errors not to trip the breaker")
	}
}

func TestWithBreakerSuccessKeepsCircuitClosed(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	fetch := WithBreaker(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{Status: 200}, nil
	}, b)

	for i := 0; i < 3; i++ {
		if _, err := fetch(context.Background(), &Request{URL: "/x"}); err != nil {
			t.Fatalf("Expected success, got %v", err)
		}
	}
	if b.State() != BreakerClosed {
		t.Error("Expected breaker closed after successes")
	}
}

package backoff

import (
	"testing"
	"time"
)

func TestExponentialDefaultSchedule(t *testing.T) {
	s := Exponential{}
	base := 100 * time.Millisecond

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := s.Delay(tt.attempt, base, 0); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialCap(t *testing.T) {
	s := Exponential{}
	got := s.Delay(10, 100*time.Millisecond, time.Second)
	if got != time.Second {
		t.Errorf("Expected delay capped at 1s, got %v", got)
	}
}

func TestExponentialCustomMultiplier(t *testing.T) {
	s := Exponential{Multiplier: 3}
	if got := s.Delay(2, 10*time.Millisecond, 0); got != 90*time.Millisecond {
		t.Errorf("Expected 90ms, got %v", got)
	}
}

func TestExponentialNegativeAttempt(t *testing.T) {
	s := Exponential{}
	if got := s.Delay(-5, 100*time.Millisecond, 0); got != 100*time.Millisecond {
		t.Errorf("Expected base delay for negative attempts, got %v", got)
	}
}

func TestExponentialJitterBounds(t *testing.T) {
	s := Exponential{Jitter: 0.5}
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		got := s.Delay(1, base, 0)
		if got < 200*time.Millisecond || got > 300*time.Millisecond {
			t.Fatalf("Expected jittered delay in [200ms, 300ms], got %v", got)
		}
	}
}

func TestExponentialJitterRespectsMax(t *testing.T) {
	s := Exponential{Jitter: 1}
	max := 250 * time.Millisecond
	for i := 0; i < 50; i++ {
		if got := s.Delay(1, 100*time.Millisecond, max); got > max {
			t.Fatalf("Expected delay capped at %v, got %v", max, got)
		}
	}
}

func TestExponentialOverflowClamped(t *testing.T) {
	s := Exponential{}
	got := s.Delay(200, time.Second, time.Minute)
	if got != time.Minute {
		t.Errorf("Expected overflow clamped to max, got %v", got)
	}
}

func TestDecorrelatedFirstAttempt(t *testing.T) {
	s := Decorrelated{}
	base := 100 * time.Millisecond
	if got := s.Delay(0, base, time.Minute); got != base {
		t.Errorf("Expected base delay on first attempt, got %v", got)
	}
}

func TestDecorrelatedRange(t *testing.T) {
	s := Decorrelated{}
	base := 10 * time.Millisecond
	max := time.Second
	for i := 0; i < 50; i++ {
		got := s.Delay(3, base, max)
		if got < base || got > max {
			t.Fatalf("Expected delay in [%v, %v], got %v", base, max, got)
		}
	}
}

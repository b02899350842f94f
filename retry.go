package datalayer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/paychex/datalayer/internal/backoff"
)

var errFalloffExhausted = errors.New("datalayer: retry attempts exhausted")

// RetryOption tunes WithRetry.
type RetryOption func(*retryConfig)

type retryConfig struct {
	logger  zerolog.Logger
	metrics *MetricsCollector
}

// RetryLogger logs retry scheduling and exhaustion.
func RetryLogger(logger zerolog.Logger) RetryOption {
	return func(c *retryConfig) { c.logger = logger }
}

// RetryMetrics records retry attempts on the given collector.
func RetryMetrics(m *MetricsCollector) RetryOption {
	return func(c *retryConfig) { c.metrics = m }
}

// WithRetry re-dispatches failed requests for as long as retry allows.
// Attempts are counted per request identity, not per request value, so
// concurrently in-flight identical requests never share a counter; the
// counter is dropped once the request settles permanently. When retry
// denies, the original error is returned annotated with the cumulative
// retry count. The loop is explicit: retry depth never grows the stack.
func WithRetry(next Fetch, retry RetryFunc, options ...RetryOption) Fetch {
	cfg := retryConfig{logger: zerolog.Nop()}
	for _, option := range options {
		option(&cfg)
	}

	var mu sync.Mutex
	attempts := make(map[*Request]int)

	return func(ctx context.Context, req *Request) (*Response, error) {
		for {
			resp, err := next(ctx, req)
			if err == nil {
				mu.Lock()
				delete(attempts, req)
				mu.Unlock()
				return resp, nil
			}

			if rerr := retry(ctx, req, ResponseOf(err)); rerr != nil {
				mu.Lock()
				count := attempts[req]
				delete(attempts, req)
				mu.Unlock()
				cfg.logger.Debug().
					Str("url", req.URL).
					Int("attempts", count).
					AnErr("reason", rerr).
					Msg("retries exhausted")
				return nil, annotateAttempt(err, count)
			}

			mu.Lock()
			attempts[req]++
			n := attempts[req]
			mu.Unlock()

			cfg.logger.Debug().
				Str("url", req.URL).
				Int("attempt", n).
				Msg("retrying request")
			if cfg.metrics != nil {
				cfg.metrics.RecordRetry(req.Method, endpointOf(req), n)
			}
		}
	}
}

// annotateAttempt records the retry count on the original error without
// wrapping it, so callers still see the true terminal cause.
func annotateAttempt(err error, count int) error {
	var de *DataError
	if errors.As(err, &de) {
		de.Attempt = count
	}
	return err
}

// Falloff returns a retry policy that allows up to times retries, delaying
// the nth by 2^n * base, then failing permanently for that request.
// Non-positive arguments take the defaults of 3 retries and a 200ms base.
func Falloff(times int, base time.Duration) RetryFunc {
	return FalloffWithStrategy(times, base, backoff.Exponential{})
}

// FalloffWithStrategy is Falloff with a custom delay schedule, e.g.
// backoff.Exponential{Jitter: 0.1} or backoff.Decorrelated{}.
func FalloffWithStrategy(times int, base time.Duration, strategy backoff.Strategy) RetryFunc {
	if times <= 0 {
		times = 3
	}
	if base <= 0 {
		base = 200 * time.Millisecond
	}

	var mu sync.Mutex
	counts := make(map[*Request]int)

	return func(ctx context.Context, req *Request, _ *Response) error {
		mu.Lock()
		n := counts[req]
		if n >= times {
			delete(counts, req)
			mu.Unlock()
			return errFalloffExhausted
		}
		counts[req] = n + 1
		mu.Unlock()

		select {
		case <-time.After(strategy.Delay(n, base, 0)):
			return nil
		case <-ctx.Done():
			mu.Lock()
			delete(counts, req)
			mu.Unlock()
			return ctx.Err()
		}
	}
}

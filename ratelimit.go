package datalayer

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// WithRateLimit paces dispatch through a token bucket. Each request waits
// for a token before proceeding; a wait cut short by context cancellation
// or an impossible reservation fails with an ErrRateLimited-kinded error.
func WithRateLimit(next Fetch, limiter *rate.Limiter) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &DataError{
				Kind:     KindRateLimit,
				Severity: SeverityError,
				Message:  "rate limit exceeded",
				Cause:    fmt.Errorf("%w: %v", ErrRateLimited, err),
			}
		}
		return next(ctx, req)
	}
}

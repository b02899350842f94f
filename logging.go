package datalayer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WithLogging logs each dispatch with a generated request id, its duration
// and its outcome. Successful and cached settlements log at debug level,
// failures at warn with the error's severity attached. The request and
// response pass through unchanged.
func WithLogging(next Fetch, logger zerolog.Logger) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		id := uuid.NewString()
		logger.Debug().
			Str("requestId", id).
			Str("method", req.Method).
			Str("url", req.URL).
			Str("adapter", req.Adapter).
			Msg("request started")

		start := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			evt := logger.Warn().
				Str("requestId", id).
				Str("url", req.URL).
				Dur("elapsed", elapsed).
				Err(err)
			if de := asDataError(err); de != nil {
				evt = evt.Str("severity", string(de.Severity)).Int("status", de.Status)
			}
			evt.Msg("request failed")
			return nil, err
		}

		logger.Debug().
			Str("requestId", id).
			Str("url", req.URL).
			Dur("elapsed", elapsed).
			Int("status", resp.Status).
			Bool("cached", resp.Meta.Cached).
			Msg("request settled")
		return resp, nil
	}
}

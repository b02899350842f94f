package datalayer

import (
	"context"
	"net/http"
)

// ReauthenticateFunc restores the caller's credentials, e.g. by refreshing
// a token. It is awaited; failure makes the original 401 permanent.
type ReauthenticateFunc func(ctx context.Context, req *Request) error

// WithAuthentication recovers from expired credentials: a dispatch that
// fails with status 401 triggers reauthentication and, when that succeeds,
// a re-dispatch of the same request. If reauthentication fails, the
// original 401 error is returned so callers see the true cause.
func WithAuthentication(next Fetch, reauthenticate ReauthenticateFunc) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		for {
			resp, err := next(ctx, req)
			if err == nil {
				return resp, nil
			}
			if StatusOf(err) != http.StatusUnauthorized {
				return nil, err
			}
			if rerr := reauthenticate(ctx, req); rerr != nil {
				return nil, err
			}
		}
	}
}

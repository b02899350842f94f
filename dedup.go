package datalayer

import (
	"context"

	"github.com/paychex/datalayer/internal/singleflight"
)

// KeyFunc derives a coalescing key from a request.
type KeyFunc func(*Request) string

// WithDeduplication coalesces concurrent dispatches of identical requests:
// while one is in flight, callers issuing a request with the same key wait
// for it and share its outcome instead of dispatching again. Identity is
// by key (method, URL and body by default), not by request pointer, so
// separately created but identical requests coalesce too. Waiters marked
// as shared get a clone with Meta.Cached left untouched; note they settle
// under the owner's context.
func WithDeduplication(next Fetch, key KeyFunc) Fetch {
	if key == nil {
		key = RequestKey
	}
	group := singleflight.New()

	return func(ctx context.Context, req *Request) (*Response, error) {
		val, err, shared := group.Do(key(req), func() (interface{}, error) {
			return next(ctx, req)
		})
		resp, _ := val.(*Response)
		if shared && resp != nil {
			resp = resp.Clone()
		}
		return resp, err
	}
}

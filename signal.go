package datalayer

import "context"

// WithSignal gates dispatch behind a synchronization signal: Ready is
// awaited before the wrapped fetch runs, and Set releases the gate once
// the dispatch settles, success or failure. An auto-reset signal sequences
// dependent requests strictly one at a time; a counting signal bounds
// concurrency instead.
func WithSignal(next Fetch, signal Signal) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if err := signal.Ready(ctx); err != nil {
			return nil, err
		}
		defer signal.Set()
		return next(ctx, req)
	}
}

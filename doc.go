// Package datalayer turns declarative data descriptors into resolved HTTP
// requests and routes them through swappable transport adapters, with
// composable middleware for every cross-cutting concern:
//
//   - Ordered proxy rules with deterministic merge semantics (scalars
//     last-wins, header values accumulate)
//   - URL tokenizing (:name substitution + query serialization)
//   - Retries with pluggable falloff (exponential, jittered, decorrelated)
//   - Response caching (in-memory sharded store or Redis) that never
//     turns a cache failure into a fetch failure
//   - Request/response transformation, default headers, anti-CSRF token
//     injection, authentication recovery, connectivity gating
//   - Circuit breaking, rate limiting, request de-duplication
//   - Prometheus metrics and zerolog structured logging
//
// Design goals:
//   - One uniform Fetch shape - every middleware wraps a Fetch and returns
//     a Fetch, so callers compose behaviors in any order they need
//   - Adapters never fail; classification happens in exactly one place
//   - Requests are immutable once created; middleware clones before it
//     mutates
//   - No process-global state: each DataLayer owns its rules and adapters
//
// Typical usage:
//
//	dl, err := datalayer.New(
//	    datalayer.WithAdapter("default", datalayer.HTTPAdapter(nil)),
//	    datalayer.WithRules(datalayer.Rule{
//	        Match:  map[string]string{"base": "^users$"},
//	        Origin: "https://api.example.com",
//	    }),
//	)
//	req, err := dl.CreateRequest(&datalayer.Definition{
//	    Base: "users",
//	    Path: "/clients/:id",
//	}, map[string]any{"id": "007"}, nil)
//
//	fetch := datalayer.WithRetry(dl.Fetch, datalayer.Falloff(3, 200*time.Millisecond))
//	fetch = datalayer.WithCache(fetch, datalayer.NewMemoryCache(5*time.Minute))
//	resp, err := fetch(ctx, req)
//
// Middleware order matters semantically, not structurally: wrapping cache
// outside retry caches only settled successes, wrapping it inside would
// consult the cache on every attempt.
package datalayer

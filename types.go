package datalayer

import (
	"context"
	"strings"
	"time"
)

// Fetch dispatches a fully resolved Request and settles with a Response or
// an error. DataLayer.Fetch has this shape, and every middleware both accepts
// and returns it, so cross-cutting behaviors compose in any order.
type Fetch func(ctx context.Context, req *Request) (*Response, error)

// Adapter binds a Request to a concrete transport. Adapters never fail:
// transport problems are encoded in the returned Response (status 0,
// Meta.Error, Meta.Timeout) so classification stays in one place.
type Adapter func(ctx context.Context, req *Request) *Response

// Cache persists responses keyed by request. A miss is (nil, nil).
// Implementations should degrade gracefully; callers treat any returned
// error as advisory and never let it interrupt a fetch.
type Cache interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Set(ctx context.Context, req *Request, resp *Response) error
}

// Signal gates dispatch. Ready blocks until the gate opens; Set releases
// the gate for the next caller. An auto-reset signal sequences dependent
// requests one at a time; a counting signal bounds concurrency.
type Signal interface {
	Ready(ctx context.Context) error
	Set()
}

// Headers holds request header values. Keys are case-insensitive and
// normalized to lower case; a key may carry multiple values, which
// accumulate when proxy rules merge.
type Headers map[string][]string

// Set replaces the values stored under key.
func (h Headers) Set(key string, values ...string) {
	h[strings.ToLower(key)] = values
}

// Add appends a value to the list stored under key.
func (h Headers) Add(key, value string) {
	k := strings.ToLower(key)
	h[k] = append(h[k], value)
}

// Get returns the values under key joined with ", ", or "" when absent.
func (h Headers) Get(key string) string {
	return strings.Join(h[strings.ToLower(key)], ", ")
}

// Has reports whether any value is stored under key.
func (h Headers) Has(key string) bool {
	vs, ok := h[strings.ToLower(key)]
	return ok && len(vs) > 0
}

// Clone returns a deep copy. Cloning a nil Headers yields an empty one.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Definition is the caller-supplied intent for a data operation, before
// proxy rules and URL resolution are applied. Zero-valued fields take
// documented defaults during CreateRequest.
type Definition struct {
	Base            string          `yaml:"base,omitempty" json:"base,omitempty"`
	Path            string          `yaml:"path,omitempty" json:"path,omitempty"`
	Adapter         string          `yaml:"adapter,omitempty" json:"adapter,omitempty"`
	Method          string          `yaml:"method,omitempty" json:"method,omitempty"`
	Version         string          `yaml:"version,omitempty" json:"version,omitempty"`
	Headers         Headers         `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout         time.Duration   `yaml:"-" json:"timeout,omitempty"`
	WithCredentials bool            `yaml:"withCredentials,omitempty" json:"withCredentials,omitempty"`
	ResponseType    string          `yaml:"responseType,omitempty" json:"responseType,omitempty"`
	Ignore          map[string]bool `yaml:"ignore,omitempty" json:"ignore,omitempty"`
}

// Request is a fully resolved operation descriptor produced by
// CreateRequest. Once returned it is read-only by contract: middleware and
// adapters must Clone before changing anything, and a single Request value
// identifies one logical call across all of its retry attempts.
type Request struct {
	Definition
	URL  string `json:"url"`
	Body any    `json:"body,omitempty"`
}

// Clone returns a deep copy whose maps are safe to mutate. The clone is a
// distinct identity: retry counters never carry over to a clone.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = r.Headers.Clone()
	if r.Ignore != nil {
		out.Ignore = make(map[string]bool, len(r.Ignore))
		for k, v := range r.Ignore {
			out.Ignore[k] = v
		}
	}
	return &out
}

// Meta carries response metadata outside the payload itself.
type Meta struct {
	Error    bool              `json:"error"`
	Cached   bool              `json:"cached"`
	Timeout  bool              `json:"timeout"`
	Headers  map[string]string `json:"headers,omitempty"`
	Messages []string          `json:"messages,omitempty"`
}

// Response is the outcome of a dispatched request. It holds only plain
// serializable values (numbers, strings, maps, slices) so it round-trips
// through any cache store unchanged.
type Response struct {
	Data       any    `json:"data"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Meta       Meta   `json:"meta"`
}

// Clone returns a copy safe for metadata mutation. Data is shared: payloads
// are treated as read-only once a response settles.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	if r.Meta.Headers != nil {
		out.Meta.Headers = make(map[string]string, len(r.Meta.Headers))
		for k, v := range r.Meta.Headers {
			out.Meta.Headers[k] = v
		}
	}
	out.Meta.Messages = append([]string(nil), r.Meta.Messages...)
	return &out
}

// Ok reports whether the response status is in the 2xx range and no
// transport error was flagged.
func (r *Response) Ok() bool {
	return r != nil && !r.Meta.Error && r.Status >= 200 && r.Status <= 299
}

// Transformer mutates payloads crossing the middleware boundary. Both hooks
// are optional and independent.
type Transformer struct {
	// Request receives the outgoing body and mutable headers and returns
	// the body to send in its place.
	Request func(body any, headers Headers) any
	// Response receives settled response data and returns its replacement.
	Response func(data any) any
}

// RetryFunc decides whether a failed request should be attempted again.
// Returning nil schedules another dispatch of the same request; returning
// an error makes the failure permanent. failed is the classified response
// of the attempt that just failed, when one exists.
type RetryFunc func(ctx context.Context, req *Request, failed *Response) error

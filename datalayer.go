package datalayer

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultAdapter is the adapter name a definition resolves to when it does
// not name one and no proxy rule attaches one.
const DefaultAdapter = "default"

// DataLayer converts declarative definitions into fully resolved requests
// and dispatches them through a named adapter. It owns its rule engine and
// adapter registry; nothing in this package is process-global. Safe for
// concurrent use.
type DataLayer struct {
	proxy  *Proxy
	logger zerolog.Logger

	mu       sync.RWMutex
	adapters map[string]Adapter
}

// New constructs a DataLayer from the provided functional options and
// validates the resulting configuration.
func New(options ...Option) (*DataLayer, error) {
	dl := &DataLayer{
		proxy:    NewProxy(),
		logger:   zerolog.Nop(),
		adapters: make(map[string]Adapter),
	}
	for _, option := range options {
		option(dl)
	}
	if err := dl.validate(); err != nil {
		return nil, err
	}
	return dl, nil
}

func (dl *DataLayer) validate() error {
	if dl.proxy == nil {
		return &DataError{
			Kind:     KindValidation,
			Severity: SeverityFatal,
			Message:  "proxy must not be nil",
		}
	}
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	for name, adapter := range dl.adapters {
		if name == "" || adapter == nil {
			return &DataError{
				Kind:     KindValidation,
				Severity: SeverityFatal,
				Adapter:  name,
				Message:  "adapters require a name and a non-nil function",
			}
		}
	}
	return nil
}

// Proxy returns the rule engine owned by this DataLayer.
func (dl *DataLayer) Proxy() *Proxy {
	return dl.proxy
}

// SetAdapter registers adapter under name. Registering an existing name
// replaces the previous adapter; last registration wins.
func (dl *DataLayer) SetAdapter(name string, adapter Adapter) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.adapters[name] = adapter
}

// CreateRequest resolves a definition into a read-only Request: defaults
// are merged beneath the definition without mutating the caller's value,
// proxy rules fold in their overrides, and the URL is resolved through the
// rule engine and tokenizer using params. The returned Request must be
// treated as immutable; middleware clones before changing anything.
func (dl *DataLayer) CreateRequest(def *Definition, params map[string]any, body any) (*Request, error) {
	if def == nil {
		return nil, &DataError{
			Kind:     KindValidation,
			Severity: SeverityFatal,
			Message:  "a non-nil definition is required",
		}
	}

	d := *def
	if d.Method == "" {
		d.Method = http.MethodGet
	}
	if d.Adapter == "" {
		d.Adapter = DefaultAdapter
	}
	if d.Headers == nil {
		d.Headers = Headers{}
		d.Headers.Set("accept", "application/json, text/plain, */*")
	} else {
		d.Headers = d.Headers.Clone()
	}
	ignore := make(map[string]bool, len(d.Ignore))
	for k, v := range d.Ignore {
		ignore[k] = v
	}
	d.Ignore = ignore

	req := &Request{Definition: d, Body: body}
	dl.proxy.Apply(req)

	u, err := dl.proxy.URL(req.Base, req.Path)
	if err != nil {
		return nil, err
	}
	req.URL = Tokenize(u, params)
	return req, nil
}

// Fetch dispatches a resolved request through its adapter and classifies
// the outcome. A response whose Meta.Error is set or whose status falls
// outside [200, 299] becomes an error carrying the full response; its
// message is the response status text, falling back to the static status
// table, then to "Unknown HTTP Error". Requests missing url, method or
// adapter, and adapter names with no registration, fail fatally.
func (dl *DataLayer) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == "" || req.Method == "" || req.Adapter == "" {
		return nil, &DataError{
			Kind:     KindValidation,
			Severity: SeverityFatal,
			Message:  "request must carry url, method and adapter",
		}
	}

	dl.mu.RLock()
	adapter := dl.adapters[req.Adapter]
	dl.mu.RUnlock()
	if adapter == nil {
		return nil, &DataError{
			Kind:     KindAdapter,
			Severity: SeverityFatal,
			Adapter:  req.Adapter,
			Message:  "adapter not found",
		}
	}

	dl.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Str("adapter", req.Adapter).
		Msg("dispatching request")

	resp := adapter(ctx, req)
	if resp == nil {
		resp = &Response{Meta: Meta{Error: true, Messages: []string{"adapter returned no response"}}}
	}

	if resp.Meta.Error || resp.Status < 200 || resp.Status > 299 {
		err := &DataError{
			Kind:     KindHTTP,
			Severity: SeverityError,
			Message:  statusMessage(resp),
			Status:   resp.Status,
			Response: resp,
		}
		dl.logger.Debug().
			Int("status", resp.Status).
			Str("url", req.URL).
			Msg("request classified as error")
		return nil, err
	}
	return resp, nil
}

package datalayer

import "context"

// WithTransform applies the transformer's hooks around dispatch. The
// request hook sees a cloned request, so it may replace the body and
// mutate headers freely; the response hook sees cloned response data the
// same way. Either hook may be nil.
func WithTransform(next Fetch, transformer Transformer) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if transformer.Request != nil {
			r := req.Clone()
			if r.Headers == nil {
				r.Headers = Headers{}
			}
			r.Body = transformer.Request(r.Body, r.Headers)
			req = r
		}

		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}

		if transformer.Response != nil {
			out := resp.Clone()
			out.Data = transformer.Response(out.Data)
			return out, nil
		}
		return resp, nil
	}
}

// WithHeaders applies default headers to every request before dispatch.
// Defaults never override: a key already present on the request wins.
func WithHeaders(next Fetch, defaults Headers) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if len(defaults) == 0 {
			return next(ctx, req)
		}
		r := req.Clone()
		if r.Headers == nil {
			r.Headers = Headers{}
		}
		for k, vs := range defaults {
			if !r.Headers.Has(k) {
				r.Headers.Set(k, vs...)
			}
		}
		return next(ctx, r)
	}
}

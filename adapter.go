package datalayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// adapters cap response bodies to keep cached payloads bounded
const maxResponseBody = 10 * 1024 * 1024

// HTTPAdapter returns an Adapter over net/http, suitable as the "default"
// registration. Per the adapter contract it never fails: transport errors
// come back as a Response with status 0, Meta.Error set and, for deadline
// expiry, Meta.Timeout. Request.Timeout bounds the round trip through the
// context; WithCredentials relies on the client carrying a cookie jar.
//
// Bodies: strings and byte slices are sent as-is, anything else is JSON
// encoded with a content-type of application/json unless the request set
// its own. JSON response bodies decode into Response.Data; everything
// else, and any request with ResponseType "text", lands as a string.
func HTTPAdapter(client *http.Client) Adapter {
	if client == nil {
		client = &http.Client{}
	}

	return func(ctx context.Context, req *Request) *Response {
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}

		var body io.Reader
		contentType := ""
		switch b := req.Body.(type) {
		case nil:
		case string:
			body = strings.NewReader(b)
		case []byte:
			body = bytes.NewReader(b)
		default:
			buf, err := json.Marshal(b)
			if err != nil {
				return transportFailure(err, false)
			}
			body = bytes.NewReader(buf)
			contentType = "application/json"
		}

		hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
		if err != nil {
			return transportFailure(err, false)
		}
		for k, vs := range req.Headers {
			for _, v := range vs {
				hr.Header.Add(k, v)
			}
		}
		if contentType != "" && hr.Header.Get("Content-Type") == "" {
			hr.Header.Set("Content-Type", contentType)
		}

		res, err := client.Do(hr)
		if err != nil {
			return transportFailure(err, isTimeout(err))
		}
		defer func() { _ = res.Body.Close() }()

		raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
		if err != nil {
			return transportFailure(err, isTimeout(err))
		}

		return &Response{
			Data:       decodeBody(raw, res.Header.Get("Content-Type"), req.ResponseType),
			Status:     res.StatusCode,
			StatusText: statusTextOf(res),
			Meta:       Meta{Headers: flattenHeader(res.Header)},
		}
	}
}

func transportFailure(err error, timeout bool) *Response {
	return &Response{
		Status: 0,
		Meta: Meta{
			Error:    true,
			Timeout:  timeout,
			Messages: []string{err.Error()},
		},
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func decodeBody(raw []byte, contentType, responseType string) any {
	if len(raw) == 0 {
		return nil
	}
	if responseType != "text" && strings.Contains(contentType, "json") {
		var data any
		if err := json.Unmarshal(raw, &data); err == nil {
			return data
		}
	}
	return string(raw)
}

func statusTextOf(res *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)))
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}

package datalayer

import (
	"testing"
	"time"
)

func TestHeadersCaseInsensitive(t *testing.T) {
	h := Headers{}
	h.Set("Content-Type", "application/json")

	if got := h.Get("content-type"); got != "application/json" {
		t.Errorf("Expected lowercase lookup to work, got %q", got)
	}
	if got := h.Get("CONTENT-TYPE"); got != "application/json" {
		t.Errorf("Expected uppercase lookup to work, got %q", got)
	}
	if !h.Has("Content-type") {
		t.Error("Expected Has to be case-insensitive")
	}
}

func TestHeadersAddAccumulates(t *testing.T) {
	h := Headers{}
	h.Add("accept", "application/json")
	h.Add("Accept", "text/plain")

	if got := h.Get("accept"); got != "application/json, text/plain" {
		t.Errorf("Expected joined values, got %q", got)
	}
}

func TestHeadersSetReplaces(t *testing.T) {
	h := Headers{}
	h.Add("x-app", "one")
	h.Set("x-app", "two")

	if got := h.Get("x-app"); got != "two" {
		t.Errorf("Expected Set to replace, got %q", got)
	}
}

func TestHeadersClone(t *testing.T) {
	h := Headers{}
	h.Set("x-app", "demo")

	clone := h.Clone()
	clone.Set("x-app", "changed")
	clone.Set("x-new", "value")

	if got := h.Get("x-app"); got != "demo" {
		t.Errorf("Expected original untouched, got %q", got)
	}
	if h.Has("x-new") {
		t.Error("Expected new keys confined to the clone")
	}

	var nilHeaders Headers
	if got := nilHeaders.Clone(); got == nil {
		t.Error("Expected cloning nil to yield a usable map")
	}
}

func TestRequestClone(t *testing.T) {
	req := &Request{
		Definition: Definition{
			Method:  "POST",
			Adapter: "default",
			Timeout: 30 * time.Second,
			Headers: Headers{"x-app": {"demo"}},
			Ignore:  map[string]bool{"tracking": true},
		},
		URL:  "https://example.com/users",
		Body: "payload",
	}

	clone := req.Clone()
	if clone == req {
		t.Fatal("Expected a distinct value")
	}
	if clone.Method != "POST" || clone.URL != req.URL || clone.Body != "payload" {
		t.Errorf("Expected fields copied, got %+v", clone)
	}

	clone.Headers.Set("x-app", "changed")
	clone.Ignore["other"] = true
	if req.Headers.Get("x-app") != "demo" {
		t.Error("Expected header mutation confined to the clone")
	}
	if req.Ignore["other"] {
		t.Error("Expected ignore mutation confined to the clone")
	}

	var nilReq *Request
	if nilReq.Clone() != nil {
		t.Error("Expected nil to clone to nil")
	}
}

func TestResponseClone(t *testing.T) {
	resp := &Response{
		Data:       map[string]any{"id": 1},
		Status:     200,
		StatusText: "OK",
		Meta: Meta{
			Headers:  map[string]string{"x-request-id": "abc"},
			Messages: []string{"note"},
		},
	}

	clone := resp.Clone()
	clone.Meta.Cached = true
	clone.Meta.Headers["x-other"] = "zzz"
	clone.Meta.Messages = append(clone.Meta.Messages, "extra")

	if resp.Meta.Cached {
		t.Error("Expected metadata mutation confined to the clone")
	}
	if _, ok := resp.Meta.Headers["x-other"]; ok {
		t.Error("Expected header mutation confined to the clone")
	}
	if len(resp.Meta.Messages) != 1 {
		t.Errorf("Expected original messages untouched, got %v", resp.Meta.Messages)
	}
	if data, ok := clone.Data.(map[string]any); !ok || data["id"] != 1 {
		t.Error("Expected data shared with the clone")
	}
}

func TestResponseOk(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want bool
	}{
		{"success", &Response{Status: 200}, true},
		{"created", &Response{Status: 201}, true},
		{"redirect", &Response{Status: 301}, false},
		{"client error", &Response{Status: 404}, false},
		{"transport error", &Response{Status: 0, Meta: Meta{Error: true}}, false},
		{"meta error beats 2xx", &Response{Status: 200, Meta: Meta{Error: true}}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Ok(); got != tt.want {
				t.Errorf("Ok() = %v, want %v", got, tt.want)
			}
		})
	}
}

package datalayer

import (
	"context"
	"errors"
	"testing"
)

type fakeSignal struct {
	readyErr error
	readies  int
	sets     int
}

func (s *fakeSignal) Ready(ctx context.Context) error {
	s.readies++
	return s.readyErr
}

func (s *fakeSignal) Set() { s.sets++ }

func TestWithSignalReleasesOnSuccess(t *testing.T) {
	sig := &fakeSignal{}
	fetch := WithSignal(func(ctx context.Context, req *Request) (*Response, error) {
		if sig.sets != 0 {
			t.Error("Expected the signal to stay held during dispatch")
		}
		return &Response{Status: 200}, nil
	}, sig)

	if _, err := fetch(context.Background(), &Request{URL: "/x"}); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if sig.readies != 1 || sig.sets != 1 {
		t.Errorf("Expected one Ready and one Set, got %d and %d", sig.readies, sig.sets)
	}
}

func TestWithSignalReleasesOnFailure(t *testing.T) {
	sig := &fakeSignal{}
	boom := errors.New("dispatch failed")
	fetch := WithSignal(func(ctx context.Context, req *Request) (*Response, error) {
		return nil, boom
	}, sig)

	if _, err := fetch(context.Background(), &Request{URL: "/x"}); err != boom {
		t.Errorf("Expected original error, got %v", err)
	}
	if sig.sets != 1 {
		t.Errorf("Expected Set after failure, got %d", sig.sets)
	}
}

func TestWithSignalReadyFailureSkipsDispatch(t *testing.T) {
	sig := &fakeSignal{readyErr: context.Canceled}
	dispatched := false
	fetch := WithSignal(func(ctx context.Context, req *Request) (*Response, error) {
		dispatched = true
		return &Response{Status: 200}, nil
	}, sig)

	_, err := fetch(context.Background(), &Request{URL: "/x"})
	if err != context.Canceled {
		t.Errorf("Expected the Ready error, got %v", err)
	}
	if dispatched {
		t.Error("Expected dispatch to be skipped")
	}
	if sig.sets != 0 {
		t.Error("Expected no Set when Ready fails")
	}
}

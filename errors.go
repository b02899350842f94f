package datalayer

import (
	"errors"
	"fmt"
	"net/http"
)

// Severity classifies how a caller should react to an error.
type Severity string

const (
	// SeverityFatal marks construction and configuration failures that no
	// amount of retrying will fix.
	SeverityFatal Severity = "FATAL"
	// SeverityError marks dispatch failures that middleware may recover
	// from (retry, reauthentication, cache).
	SeverityError Severity = "ERROR"
	// SeverityNone marks advisory conditions.
	SeverityNone Severity = "NONE"
)

// Error kinds, compared by DataError.Is.
const (
	KindValidation = "Validation"
	KindOrigin     = "Origin"
	KindAdapter    = "Adapter"
	KindHTTP       = "HTTP"
	KindCircuit    = "CircuitOpen"
	KindRateLimit  = "RateLimit"
)

// Sentinel errors for gate middleware failures.
var (
	// ErrCircuitOpen is returned when the circuit breaker is in open state.
	ErrCircuitOpen = errors.New("datalayer: circuit open")

	// ErrRateLimited is returned when a request is denied by the rate limiter.
	ErrRateLimited = errors.New("datalayer: rate limited")
)

// DataError is the error type surfaced by request construction, dispatch
// and middleware. Contextual fields are populated where they apply: Adapter
// for registry misses, Response/Status for classified dispatch failures,
// Attempt for retry exhaustion.
type DataError struct {
	Kind     string
	Severity Severity
	Message  string
	Cause    error

	Adapter  string
	Status   int
	Attempt  int
	Response *Response
}

// Error implements the error interface.
func (e *DataError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Adapter != "" {
		msg = fmt.Sprintf("%s (adapter %q)", msg, e.Adapter)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d)", msg, e.Attempt)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DataError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches other DataErrors by kind, so errors.Is(err, &DataError{Kind:
// KindAdapter}) works regardless of contextual fields.
func (e *DataError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*DataError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// IsFatal reports whether err carries FATAL severity.
func IsFatal(err error) bool {
	var de *DataError
	return errors.As(err, &de) && de.Severity == SeverityFatal
}

// IsTransient reports whether err represents a failure that might succeed
// on retry: recoverable dispatch errors outside the 4xx range (except 429)
// and gate denials.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var de *DataError
	if !errors.As(err, &de) {
		return false
	}
	if de.Severity == SeverityFatal {
		return false
	}
	if de.Status >= 400 && de.Status < 500 {
		return de.Status == http.StatusTooManyRequests
	}
	return de.Severity == SeverityError
}

func asDataError(err error) *DataError {
	var de *DataError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// ResponseOf extracts the classified Response carried by a dispatch error,
// or nil when err has none.
func ResponseOf(err error) *Response {
	var de *DataError
	if errors.As(err, &de) {
		return de.Response
	}
	return nil
}

// StatusOf extracts the HTTP status carried by err, or -1 when err carries
// no status at all.
func StatusOf(err error) int {
	var de *DataError
	if errors.As(err, &de) {
		return de.Status
	}
	return -1
}

// statusMessage resolves the human readable message for a classified
// response: its own status text first, then the static status table,
// then a fixed fallback.
func statusMessage(resp *Response) string {
	if resp != nil {
		if resp.StatusText != "" {
			return resp.StatusText
		}
		if text := http.StatusText(resp.Status); text != "" {
			return text
		}
	}
	return "Unknown HTTP Error"
}

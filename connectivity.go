package datalayer

import (
	"context"

	"github.com/rs/zerolog"
)

// ReconnectFunc blocks until connectivity is restored for the given
// request, or fails with the reason it cannot be.
type ReconnectFunc func(ctx context.Context, req *Request) error

// ConnectivityOption tunes WithConnectivity.
type ConnectivityOption func(*connectivityConfig)

type connectivityConfig struct {
	online func() bool
}

// OnlineCheck supplies the connectivity probe consulted before every
// dispatch. Without one the middleware assumes the network is up and
// reconnect is never invoked.
func OnlineCheck(probe func() bool) ConnectivityOption {
	return func(c *connectivityConfig) { c.online = probe }
}

// WithConnectivity gates dispatch on network availability: when the probe
// reports offline, reconnect is awaited before the request proceeds. A
// reconnect failure settles the request with that failure.
func WithConnectivity(next Fetch, reconnect ReconnectFunc, options ...ConnectivityOption) Fetch {
	cfg := connectivityConfig{online: func() bool { return true }}
	for _, option := range options {
		option(&cfg)
	}

	return func(ctx context.Context, req *Request) (*Response, error) {
		if !cfg.online() {
			if err := reconnect(ctx, req); err != nil {
				return nil, err
			}
		}
		return next(ctx, req)
	}
}

// DiagnosticsFunc inspects a request whose dispatch failed at the
// transport level. It runs in the background; its outcome is discarded.
type DiagnosticsFunc func(ctx context.Context, req *Request)

// DiagnosticsOption tunes WithDiagnostics.
type DiagnosticsOption func(*diagnosticsConfig)

type diagnosticsConfig struct {
	logger zerolog.Logger
}

// DiagnosticsLogger logs panics escaping the diagnostics task.
func DiagnosticsLogger(logger zerolog.Logger) DiagnosticsOption {
	return func(c *diagnosticsConfig) { c.logger = logger }
}

// WithDiagnostics fires the diagnostics hook whenever a dispatch fails
// with a resolved status at or below zero, which marks transport-level
// failures rather than HTTP ones. The hook runs in a spawned task that is
// never awaited; the original error is returned unchanged either way.
func WithDiagnostics(next Fetch, diagnostics DiagnosticsFunc, options ...DiagnosticsOption) Fetch {
	cfg := diagnosticsConfig{logger: zerolog.Nop()}
	for _, option := range options {
		option(&cfg)
	}

	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err != nil {
			if ResponseOf(err) != nil && StatusOf(err) <= 0 {
				go func() {
					defer func() {
						if r := recover(); r != nil {
							cfg.logger.Error().Interface("panic", r).Str("url", req.URL).Msg("diagnostics panicked")
						}
					}()
					diagnostics(context.WithoutCancel(ctx), req)
				}()
			}
			return nil, err
		}
		return resp, nil
	}
}

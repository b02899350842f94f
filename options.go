package datalayer

import "github.com/rs/zerolog"

// Option configures a DataLayer during construction.
type Option func(*DataLayer)

// WithAdapter registers an adapter under name. The name "default" is what
// definitions resolve to when they do not pick an adapter themselves.
func WithAdapter(name string, adapter Adapter) Option {
	return func(dl *DataLayer) {
		dl.adapters[name] = adapter
	}
}

// WithRules appends proxy rules in the order given.
func WithRules(rules ...Rule) Option {
	return func(dl *DataLayer) {
		if dl.proxy != nil {
			dl.proxy.Use(rules...)
		}
	}
}

// WithProxy replaces the rule engine. Useful when several layers share one
// rule set.
func WithProxy(proxy *Proxy) Option {
	return func(dl *DataLayer) {
		dl.proxy = proxy
	}
}

// WithLogger sets the logger used for dispatch and classification events.
// The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(dl *DataLayer) {
		dl.logger = logger
	}
}

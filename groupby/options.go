package groupby

import "github.com/hwchen/groupby/groupby/annotations"

// Option configures a GroupBy
type Option func(*options)

type options struct {
	onError   ErrorHandler
	collector *annotations.Collector // nil disables events
	traceNew  bool                   // emit GroupCreated per new key
}

// WithErrorHandler sets the policy for records that fail key derivation or
// value parsing. The default aborts on the first failure.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.onError = h
		}
	}
}

// SkipInvalid drops failing records instead of aborting
func SkipInvalid() Option {
	return WithErrorHandler(Skip)
}

// WithAnnotations routes run events to handler
func WithAnnotations(handler annotations.Handler) Option {
	return func(o *options) {
		if handler == nil {
			o.collector = nil
			return
		}
		o.collector = annotations.NewCollector(handler)
	}
}

// WithCollector records run events into c, which the caller keeps and can
// read after the terminal call. It replaces any WithAnnotations handler; pass
// the handler to annotations.NewCollector to have both.
func WithCollector(c *annotations.Collector) Option {
	return func(o *options) {
		o.collector = c
	}
}

// WithGroupTracing additionally emits an event for every new group
func WithGroupTracing() Option {
	return func(o *options) {
		o.traceNew = true
	}
}

func applyOptions(opts []Option) options {
	o := options{onError: Abort}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

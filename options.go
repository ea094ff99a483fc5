package creek

import "github.com/go-logr/logr"

// Option configures a Prepare or Apply call.
type Option func(*options)

type options struct {
	log logr.Logger
}

func newOptions(opts []Option) options {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger attaches a logger to the execution. Progress is logged at
// V(1). The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

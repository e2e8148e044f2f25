package repository

import "time"

const defaultBusyTimeout = 5 * time.Second

type options struct {
	busyTimeout time.Duration
}

// Option applies a configuration option to the SQLiteStore.
type Option func(*options)

// WithBusyTimeout sets how long a statement waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

func newOptions(opts ...Option) options {
	o := options{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

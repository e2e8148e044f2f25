package worker

import (
	"time"

	"github.com/okian/scorehub/pkg/logger"
)

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithName sets the writer name used in logs, usually the connection id.
func WithName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the writer.
func WithLogger(logger logger.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithPingInterval enables periodic liveness pings.
func WithPingInterval(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.pingInterval = d
		}
	}
}

// WithOnFailure registers a callback invoked once when a write or ping fails.
func WithOnFailure(fn func(error)) Option {
	return func(w *Writer) {
		w.onFailure = fn
	}
}

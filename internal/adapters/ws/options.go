package ws

import (
	"time"

	"github.com/okian/scorehub/pkg/logger"
)

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithPingInterval sets the ping period; the read deadline is twice this.
func WithPingInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithWriteTimeout bounds each socket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithMaxMessageSize bounds inbound frames in bytes.
func WithMaxMessageSize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxMessageSize = n
		}
	}
}

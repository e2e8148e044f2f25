package client

import (
	"time"

	"github.com/okian/scorehub/pkg/logger"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithMaxAttempts bounds automatic reconnects after a drop.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxAttempts = n
		}
	}
}

// WithReconnectDelay sets the fixed delay between reconnects.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.reconnectDelay = d
		}
	}
}

// WithDialTimeout bounds each dial and send.
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dialTimeout = d
		}
	}
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.events = make(chan Event, n)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

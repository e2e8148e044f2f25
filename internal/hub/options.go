package hub

import (
	"time"

	"github.com/okian/scorehub/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRecentLimit sets the size of the recent-scores window.
func WithRecentLimit(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.recentLimit = n
		}
	}
}

// WithAggregationLimit sets how many latest rows feed the leaderboard.
func WithAggregationLimit(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.aggregationLimit = n
		}
	}
}

// WithSendBuffer sets the per-connection outbound queue capacity.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithClock replaces the clock used to stamp scores without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

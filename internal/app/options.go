package service

import (
	"time"

	"github.com/okian/scorehub/internal/adapters/repository"
	"github.com/okian/scorehub/internal/config"
	"github.com/okian/scorehub/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig applies every relevant setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		WithStorage(cfg.Storage, cfg.DBPath)(s)
		WithRecentLimit(cfg.RecentLimit)(s)
		WithAggregationLimit(cfg.AggregationLimit)(s)
		WithLeaderboardSize(cfg.LeaderboardSize)(s)
		WithRateLimitWindow(cfg.RateLimitWindow())(s)
		WithSendBuffer(cfg.SendBuffer)(s)
		if end, err := cfg.EventEndTime(); err == nil {
			WithEventEnd(end)(s)
		}
	}
}

// WithStorage selects the store backend and, for sqlite, its file.
func WithStorage(kind, path string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storage = kind
		}
		s.dbPath = path
	}
}

// WithStore injects an already opened store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithRecentLimit sets the size of the recent-scores window.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithAggregationLimit sets how many rows feed the leaderboard.
func WithAggregationLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.aggregationLimit = n
		}
	}
}

// WithLeaderboardSize caps leaderboard entries.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithRateLimitWindow sets the per player and game submission spacing.
func WithRateLimitWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.rateLimitWindow = d
		}
	}
}

// WithEventEnd closes submissions after t. The zero time never closes.
func WithEventEnd(t time.Time) Option {
	return func(s *Service) {
		s.eventEnd = t
	}
}

// WithSendBuffer sets the per-connection outbound queue capacity.
func WithSendBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// WithPruneInterval sets how often expired ledger entries are dropped.
func WithPruneInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pruneInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

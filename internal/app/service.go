// Package service wires the score store, validator, aggregator and realtime
// hub into one lifecycle and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/scorehub/internal/adapters/repository"
	"github.com/okian/scorehub/internal/config"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/scoring"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/internal/hub"
	"github.com/okian/scorehub/pkg/logger"
	"github.com/okian/scorehub/pkg/metrics"
)

// Service owns the hub and its collaborators.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	validator  *validation.Validator
	aggregator *scoring.Aggregator
	hub        *hub.Hub

	// Configuration
	storage          string
	dbPath           string
	recentLimit      int
	aggregationLimit int
	leaderboardSize  int
	rateLimitWindow  time.Duration
	eventEnd         time.Time
	sendBuffer       int
	pruneInterval    time.Duration

	// State
	started     bool
	openedStore bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storage:          config.StorageMemory,
		recentLimit:      repository.DefaultRecentLimit,
		aggregationLimit: repository.DefaultAggregationLimit,
		leaderboardSize:  scoring.DefaultLimit,
		rateLimitWindow:  validation.DefaultRateLimitWindow,
		sendBuffer:       64,
		pruneInterval:    time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and runs the hub.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting scorehub service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.openedStore = true
	}

	s.validator = validation.New(
		validation.WithWindow(s.rateLimitWindow),
		validation.WithEventEnd(s.eventEnd),
	)
	s.aggregator = scoring.NewAggregator(scoring.WithLimit(s.leaderboardSize))
	s.hub = hub.New(s.store, s.validator, s.aggregator,
		hub.WithRecentLimit(s.recentLimit),
		hub.WithAggregationLimit(s.aggregationLimit),
		hub.WithSendBuffer(s.sendBuffer),
	)

	// The hub outlives the start request.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.pruneLoop(runCtx)
	}()

	s.started = true
	s.logger.Info(ctx, "scorehub service started",
		logger.String("storage", s.storage),
		logger.Int("recentLimit", s.recentLimit),
		logger.Int("aggregationLimit", s.aggregationLimit),
		logger.Duration("rateLimitWindow", s.rateLimitWindow),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storage {
	case config.StorageSQLite:
		store, err := repository.NewSQLiteStore(ctx, s.dbPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
		return store, nil
	case config.StorageMemory:
		s.logger.Warn(ctx, "using in-memory store; scores are lost on restart")
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, s.storage)
	}
}

// pruneLoop keeps the rate-limit ledger bounded while the event runs.
func (s *Service) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.validator.Prune()
			metrics.UpdateLedgerSize(s.validator.Size())
		}
	}
}

// Stop shuts the hub down, closing every connection, then closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping scorehub service...")

	var firstErr error
	if err := s.hub.Stop(ctx); err != nil {
		firstErr = err
	}
	s.cancel()
	s.wg.Wait()

	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}
	if s.openedStore {
		s.store = nil
		s.openedStore = false
	}

	s.started = false
	s.logger.Info(ctx, "scorehub service stopped")
	return firstErr
}

// Hub returns the running hub, or nil before Start.
func (s *Service) Hub() *hub.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

func (s *Service) running() (*hub.Hub, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.hub, nil
}

// Submit validates, stores and broadcasts a score.
func (s *Service) Submit(ctx context.Context, sc model.Score) error {
	h, err := s.running()
	if err != nil {
		return err
	}
	return h.Submit(ctx, sc)
}

// Leaderboard ranks the latest scores, optionally for one game.
func (s *Service) Leaderboard(ctx context.Context, filter *model.Game) ([]model.LeaderboardEntry, error) {
	h, err := s.running()
	if err != nil {
		return nil, err
	}
	return h.Leaderboard(ctx, filter)
}

// RecentScores returns the recent-scores window.
func (s *Service) RecentScores(ctx context.Context) ([]model.Score, error) {
	h, err := s.running()
	if err != nil {
		return nil, err
	}
	return h.RecentScores(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"storage":         s.storage,
		"recentLimit":     s.recentLimit,
		"leaderboardSize": s.leaderboardSize,
	}
	if !s.started {
		return stats
	}

	hs := s.hub.Stats()
	stats["connections"] = hs.Connections
	stats["players"] = hs.Players
	stats["accepted"] = hs.Accepted
	stats["rejected"] = hs.Rejected
	stats["failed"] = hs.Failed
	stats["evicted"] = hs.Evicted

	ledger := s.validator.Size()
	stats["ledgerSize"] = ledger
	metrics.UpdateLedgerSize(ledger)

	if n, err := s.store.Count(context.Background()); err == nil {
		stats["storedScores"] = n
		metrics.UpdateStoredScores(n)
	}
	return stats
}

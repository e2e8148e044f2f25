// Package validation decides whether a submitted score is accepted.
package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/pkg/metrics"
)

// Rejection reasons shown to players.
const (
	ReasonEventEnded     = "Event ended"
	ReasonMissingPlayer  = "Missing player id"
	ReasonUnknownGame    = "Unknown game"
	ReasonReactionFast   = "Reaction time too fast"
	ReasonReactionSlow   = "Reaction time too slow"
	ReasonTypingInvalid  = "Invalid typing score"
	ReasonTypingTooHigh  = "WPM too high"
	ReasonPatternInvalid = "Invalid pattern score"
	ReasonPatternTooHigh = "Pattern score too high"
	// ReasonRateLimited is the rate-limit reason for the default window;
	// RateLimitedReason renders it for any window.
	ReasonRateLimited = "Rate limited - wait 5s between scores"
)

// RateLimitedReason is the rate-limit rejection text for window, e.g.
// "Rate limited - wait 5s between scores".
func RateLimitedReason(window time.Duration) string {
	return fmt.Sprintf("Rate limited - wait %s between scores", window.Round(time.Millisecond))
}

// DefaultRateLimitWindow is the minimum spacing of accepted submissions per
// (player, game).
const DefaultRateLimitWindow = 5 * time.Second

// Content bounds per game, inclusive.
const (
	ReactionMin = 50
	ReactionMax = 5000
	TypingMin   = 0
	TypingMax   = 300
	PatternMin  = 0
	PatternMax  = 200
)

type ledgerKey struct {
	playerID string
	game     model.Game
}

// Validator checks score content and enforces one accepted submission per
// (player, game) within the rate-limit window.
type Validator struct {
	mu       sync.Mutex
	ledger   map[ledgerKey]time.Time
	window   time.Duration
	eventEnd time.Time
	now      func() time.Time
	// prune every pruneEvery accepted submissions
	pruneEvery int
	accepted   int
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		window:     DefaultRateLimitWindow,
		now:        time.Now,
		pruneEvery: 256,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.ledger = make(map[ledgerKey]time.Time)
	return v
}

// CheckContent applies the stateless checks only.
func (v *Validator) CheckContent(s model.Score) error {
	if !v.eventEnd.IsZero() && !v.now().Before(v.eventEnd) {
		return reject(ReasonEventEnded)
	}
	return checkContent(s)
}

func checkContent(s model.Score) error {
	if s.PlayerID == "" {
		return reject(ReasonMissingPlayer)
	}
	switch s.Game {
	case model.GameReaction:
		if s.Score < ReactionMin {
			return reject(ReasonReactionFast)
		}
		if s.Score > ReactionMax {
			return reject(ReasonReactionSlow)
		}
	case model.GameTyping:
		if s.Score < TypingMin {
			return reject(ReasonTypingInvalid)
		}
		if s.Score > TypingMax {
			return reject(ReasonTypingTooHigh)
		}
	case model.GamePattern:
		if s.Score < PatternMin {
			return reject(ReasonPatternInvalid)
		}
		if s.Score > PatternMax {
			return reject(ReasonPatternTooHigh)
		}
	default:
		return reject(ReasonUnknownGame)
	}
	return nil
}

// Validate returns nil when s is accepted and records the acceptance in the
// ledger. The check and the record happen under one lock, so concurrent
// submissions for the same key cannot both pass.
func (v *Validator) Validate(ctx context.Context, s model.Score) error {
	if err := v.CheckContent(s); err != nil {
		reason, _ := Reason(err)
		metrics.RecordRejection(reason)
		return err
	}

	key := ledgerKey{playerID: s.PlayerID, game: s.Game}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if last, ok := v.ledger[key]; ok && now.Sub(last) < v.window {
		// metric label stays fixed whatever the window
		metrics.RecordRejection(ReasonRateLimited)
		return reject(RateLimitedReason(v.window))
	}
	v.ledger[key] = now

	v.accepted++
	if v.accepted%v.pruneEvery == 0 {
		v.pruneLocked(now)
	}
	metrics.UpdateLedgerSize(len(v.ledger))
	return nil
}

// Release forgets the last acceptance for the score's key so the player may
// resubmit immediately. Used when an accepted score could not be stored.
func (v *Validator) Release(ctx context.Context, s model.Score) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.ledger, ledgerKey{playerID: s.PlayerID, game: s.Game})
	metrics.UpdateLedgerSize(len(v.ledger))
}

// Size returns the number of tracked (player, game) keys.
func (v *Validator) Size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.ledger)
}

// Prune drops ledger entries older than the window.
func (v *Validator) Prune() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pruneLocked(v.now())
}

func (v *Validator) pruneLocked(now time.Time) {
	for k, at := range v.ledger {
		if now.Sub(at) >= v.window {
			delete(v.ledger, k)
		}
	}
}

// Window returns the configured rate-limit window.
func (v *Validator) Window() time.Duration { return v.window }

// EventEnd returns the configured close instant; zero means open-ended.
func (v *Validator) EventEnd() time.Time { return v.eventEnd }

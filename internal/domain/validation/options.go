package validation

import "time"

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithWindow sets the per (player, game) rate-limit window.
func WithWindow(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.window = d
		}
	}
}

// WithEventEnd closes submissions at t. A zero time keeps the event open.
func WithEventEnd(t time.Time) Option {
	return func(v *Validator) {
		v.eventEnd = t
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithPruneEvery sets how many acceptances pass between ledger sweeps.
func WithPruneEvery(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.pruneEvery = n
		}
	}
}

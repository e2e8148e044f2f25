package scoring

import "github.com/okian/scorehub/internal/domain/model"

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLimit caps the number of leaderboard entries.
func WithLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.limit = n
		}
	}
}

// WithGameWeights overrides weights for the given games. Non-positive weights
// and unknown games are ignored.
func WithGameWeights(weights map[model.Game]float64) Option {
	return func(a *Aggregator) {
		for g, w := range weights {
			if g.Valid() && w > 0 {
				a.weights[g] = w
			}
		}
	}
}

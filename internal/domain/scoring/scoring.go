// Package scoring derives the ranked leaderboard from raw score rows.
package scoring

import (
	"sort"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/pkg/metrics"
)

// Default aggregation constants.
const (
	DefaultLimit = 20
	// reaction times are mapped onto max(0, reactionCeiling - ms)
	reactionCeiling = 500
)

// DefaultWeights are the per-game multipliers applied to normalized bests.
func DefaultWeights() map[model.Game]float64 {
	return map[model.Game]float64{
		model.GameReaction: 2,
		model.GameTyping:   3,
		model.GamePattern:  2.5,
	}
}

// Normalize maps a raw best value onto a higher-is-better scale.
func Normalize(g model.Game, v int64) float64 {
	if g == model.GameReaction {
		n := float64(reactionCeiling - v)
		if n < 0 {
			return 0
		}
		return n
	}
	return float64(v)
}

// Build ranks rows with the default weights and limit. filter, when not nil,
// keeps only rows of that game.
func Build(rows []model.Score, filter *model.Game) []model.LeaderboardEntry {
	return build(rows, filter, DefaultWeights(), DefaultLimit)
}

func build(rows []model.Score, filter *model.Game, weights map[model.Game]float64, limit int) []model.LeaderboardEntry {
	type acc struct {
		entry model.LeaderboardEntry
		index map[model.Game]int
	}

	byPlayer := make(map[string]*acc)
	order := make([]*acc, 0)

	for _, r := range rows {
		if filter != nil && r.Game != *filter {
			continue
		}
		a, ok := byPlayer[r.PlayerID]
		if !ok {
			a = &acc{
				entry: model.LeaderboardEntry{PlayerID: r.PlayerID, PlayerName: r.PlayerName},
				index: make(map[model.Game]int),
			}
			byPlayer[r.PlayerID] = a
			order = append(order, a)
		}
		i, seen := a.index[r.Game]
		if !seen {
			a.index[r.Game] = len(a.entry.Games)
			a.entry.Games = append(a.entry.Games, model.GameBest{Game: r.Game, Score: r.Score})
			continue
		}
		best := &a.entry.Games[i]
		if r.Game.LowerIsBetter() {
			if r.Score < best.Score {
				best.Score = r.Score
			}
		} else if r.Score > best.Score {
			best.Score = r.Score
		}
	}

	out := make([]model.LeaderboardEntry, len(order))
	for i, a := range order {
		var total float64
		for _, gb := range a.entry.Games {
			total += weights[gb.Game] * Normalize(gb.Game, gb.Score)
		}
		a.entry.TotalScore = total
		out[i] = a.entry
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Aggregator is a configured leaderboard builder that records metrics.
type Aggregator struct {
	limit   int
	weights map[model.Game]float64
}

// NewAggregator creates an Aggregator with the default weights and limit.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		limit:   DefaultLimit,
		weights: DefaultWeights(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build ranks rows. See the package-level Build.
func (a *Aggregator) Build(rows []model.Score, filter *model.Game) []model.LeaderboardEntry {
	start := time.Now()
	out := build(rows, filter, a.weights, a.limit)
	metrics.RecordLeaderboardBuild(float64(time.Since(start).Microseconds())/1000.0, len(out))
	return out
}

// Limit returns the maximum number of entries produced.
func (a *Aggregator) Limit() int { return a.limit }

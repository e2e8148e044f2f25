package loadgen

import (
	"context"
	"fmt"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/scoring"
	"github.com/okian/scorehub/pkg/logger"
)

// verify checks the served leaderboard against one built from the accepted
// scores. The hub may hold other players' scores, so only entries for
// generated players are compared, on their per-game bests. Totals depend on
// every row in the store and are only checked for ordering.
func verify(ctx context.Context, accepted []model.Score, served []model.LeaderboardEntry, stats *Stats) error {
	if err := checkOrdered(served); err != nil {
		return err
	}

	local := scoring.NewAggregator(scoring.WithLimit(len(accepted) + 1)).Build(accepted, nil)
	expected := make(map[string]model.LeaderboardEntry, len(local))
	for _, e := range local {
		expected[e.PlayerID] = e
	}

	for _, got := range served {
		want, ok := expected[got.PlayerID]
		if !ok {
			continue
		}
		for _, g := range model.Games {
			wv, wok := want.Best(g)
			gv, gok := got.Best(g)
			if wok != gok || wv != gv {
				return fmt.Errorf("%w: player %s %s best is %d, want %d", ErrMismatch, got.PlayerID, g, gv, wv)
			}
		}
		stats.Verified++
	}

	logger.Get().Info(ctx, "leaderboard verified",
		logger.Int("served", len(served)),
		logger.Int("verified", stats.Verified))
	return nil
}

func checkOrdered(entries []model.LeaderboardEntry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i].TotalScore > entries[i-1].TotalScore {
			return fmt.Errorf("%w: entry %d outranks entry %d", ErrMismatch, i, i-1)
		}
	}
	return nil
}

package loadgen

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/okian/scorehub/internal/client"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/pkg/logger"
)

// Value ranges for generated scores, kept inside the accepted bounds.
const (
	reactionMin = 120
	reactionMax = 900
	typingMin   = 15
	typingMax   = 140
	patternMin  = 1
	patternMax  = 40
)

// generate creates one score per game for each of n fresh players. Each
// (player, game) pair appears once so the rate limit never trips.
func generate(ctx context.Context, n int, stats *Stats) []model.Score {
	logger.Get().Info(ctx, "generating scores", logger.Int("players", n))

	now := time.Now().UnixMilli()
	scores := make([]model.Score, 0, n*len(model.Games))
	for i := 0; i < n; i++ {
		p := model.Player{ID: model.NewPlayerID(), Name: client.RandomName()}
		for _, g := range model.Games {
			scores = append(scores, model.Score{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Game:       g,
				Score:      randomValue(g),
				Timestamp:  now,
			})
		}
	}
	rand.Shuffle(len(scores), func(i, j int) { scores[i], scores[j] = scores[j], scores[i] })

	stats.PlayersGenerated = n
	stats.ScoresGenerated = len(scores)
	return scores
}

func randomValue(g model.Game) int64 {
	switch g {
	case model.GameReaction:
		return between(reactionMin, reactionMax)
	case model.GameTyping:
		return between(typingMin, typingMax)
	default:
		return between(patternMin, patternMax)
	}
}

func between(lo, hi int64) int64 {
	return lo + rand.Int64N(hi-lo+1)
}

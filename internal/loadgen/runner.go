package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scorehub/internal/client"
	"github.com/okian/scorehub/pkg/logger"
)

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	api := client.NewHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: health
	banner, err := api.Health(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	log.Info(ctx, "hub is healthy", logger.String("banner", banner))

	// Step 2: generate and submit
	scores := generate(ctx, cfg.Players, stats)
	accepted := submit(ctx, api, cfg, scores, stats)
	if len(accepted) == 0 {
		return stats, ErrNothingAccepted
	}

	// Step 3: let the hub settle, then verify
	if cfg.Settle > 0 {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(cfg.Settle):
		}
	}
	stats.Leaderboard = api.FetchLeaderboard(ctx, nil)
	if err := verify(ctx, accepted, stats.Leaderboard, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report(ctx, cfg, stats)
	return stats, nil
}

// report logs the final statistics and the top of the leaderboard.
func report(ctx context.Context, cfg Config, stats *Stats) {
	log := logger.Get().Named("loadgen")

	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("players", stats.PlayersGenerated),
		logger.Int("submitted", stats.ScoresSubmitted),
		logger.Int("accepted", stats.ScoresAccepted),
		logger.Int("rejected", stats.ScoresRejected),
		logger.Int("failed", stats.ScoresFailed),
		logger.Int("verified", stats.Verified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("scoresPerSecond", perSecond))

	for reason, n := range stats.Rejections {
		log.Info(ctx, "rejections", logger.String("reason", reason), logger.Int("count", n))
	}

	top := min(cfg.TopN, len(stats.Leaderboard))
	for i := 0; i < top; i++ {
		e := stats.Leaderboard[i]
		log.Info(ctx, "leaderboard",
			logger.Int("rank", i+1),
			logger.String("player", e.PlayerName),
			logger.Float64("total", e.TotalScore))
	}
}

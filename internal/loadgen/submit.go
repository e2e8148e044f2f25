package loadgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scorehub/internal/client"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/pkg/logger"
)

const progressInterval = time.Second

// submit posts scores through a pool of workers and returns the accepted
// ones.
func submit(ctx context.Context, api *client.HTTPClient, cfg Config, scores []model.Score, stats *Stats) []model.Score {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "submitting scores", logger.Int("scores", len(scores)), logger.Int("workers", cfg.Workers))

	var (
		submitted int64
		failed    int64
		mu        sync.Mutex
		accepted  []model.Score
		reasons   = map[string]int{}
	)

	var lastReport atomic.Int64
	work := make(chan model.Score, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range work {
				err := api.PostScore(ctx, s)
				n := atomic.AddInt64(&submitted, 1)

				switch reason, rejected := validation.Reason(err); {
				case err == nil:
					mu.Lock()
					accepted = append(accepted, s)
					mu.Unlock()
				case rejected:
					mu.Lock()
					reasons[reason]++
					mu.Unlock()
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Debug(ctx, "submission failed", logger.String("player", s.PlayerID), logger.Error(err))
					}
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress", logger.Int64("submitted", n), logger.Int("total", len(scores)))
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, s := range scores {
			select {
			case <-ctx.Done():
				return
			case work <- s:
			}
		}
	}()
	wg.Wait()

	stats.ScoresSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ScoresAccepted = len(accepted)
	stats.ScoresFailed = int(atomic.LoadInt64(&failed))
	stats.Rejections = reasons
	for _, n := range reasons {
		stats.ScoresRejected += n
	}

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.ScoresAccepted),
		logger.Int("rejected", stats.ScoresRejected),
		logger.Int("failed", stats.ScoresFailed))
	return accepted
}

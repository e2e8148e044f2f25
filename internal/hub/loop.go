package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/scorehub/internal/adapters/mq/queue"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/pkg/logger"
	"github.com/okian/scorehub/pkg/metrics"
)

// Everything in this file runs on the Run goroutine.

func (h *Hub) submit(ctx context.Context, s model.Score) error {
	if err := h.validator.Validate(ctx, s); err != nil {
		h.rejected.Add(1)
		metrics.RecordSubmission(string(s.Game), "rejected")
		if reason, ok := validation.Reason(err); ok {
			h.logger.Debug(ctx, "score rejected",
				logger.String("player", s.PlayerID),
				logger.String("game", string(s.Game)),
				logger.Int64("score", s.Score),
				logger.String("reason", reason),
			)
		}
		return err
	}

	if err := h.store.Append(ctx, s); err != nil {
		h.validator.Release(ctx, s)
		h.failed.Add(1)
		metrics.RecordSubmission(string(s.Game), "failed")
		metrics.RecordErrorByComponent("hub", "storage")
		h.logger.Error(ctx, "failed to store score",
			logger.String("player", s.PlayerID),
			logger.String("game", string(s.Game)),
			logger.Error(err),
		)
		return fmt.Errorf("append score: %w", err)
	}

	h.accepted.Add(1)
	metrics.RecordSubmission(string(s.Game), "accepted")
	h.logger.Info(ctx, "score accepted",
		logger.String("player", s.PlayerID),
		logger.String("game", string(s.Game)),
		logger.Int64("score", s.Score),
	)

	h.broadcast(ctx, types.NewScore(s), nil)

	if len(h.conns) == 0 {
		return nil
	}
	entries, err := h.Leaderboard(ctx, nil)
	if err != nil {
		// the score is stored; only the refresh is lost
		metrics.RecordErrorByComponent("hub", "aggregation")
		h.logger.Warn(ctx, "leaderboard refresh failed", logger.Error(err))
		return nil
	}
	h.broadcast(ctx, types.NewLeaderboard(entries), nil)
	return nil
}

// broadcast encodes m once and offers it to every connection except skip.
// Connections whose queue refuses the frame are evicted afterwards.
func (h *Hub) broadcast(ctx context.Context, m types.Message, skip *Conn) {
	frame, err := types.Encode(m)
	if err != nil {
		h.logger.Error(ctx, "failed to encode broadcast", logger.String("type", string(m.Type)), logger.Error(err))
		return
	}
	metrics.RecordBroadcast(string(m.Type))

	var slow []*Conn
	for c := range h.conns {
		if c == skip {
			continue
		}
		if !c.queue.Enqueue(ctx, queue.Frame(frame)) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.logger.Warn(ctx, "evicting slow connection",
			logger.String("conn", c.id),
			logger.String("player", c.player.ID),
		)
		h.remove(ctx, c, "slow_consumer")
	}
}

// send queues m for c only, evicting c if its queue is full.
func (h *Hub) send(ctx context.Context, c *Conn, m types.Message) {
	frame, err := types.Encode(m)
	if err != nil {
		h.logger.Error(ctx, "failed to encode message", logger.String("type", string(m.Type)), logger.Error(err))
		return
	}
	if !c.queue.Enqueue(ctx, queue.Frame(frame)) {
		h.remove(ctx, c, "slow_consumer")
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, c *Conn) {
	h.send(ctx, c, types.NewPlayers(append([]model.Player(nil), h.live...)))

	recent, err := h.RecentScores(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("hub", "snapshot")
		h.logger.Warn(ctx, "recent scores unavailable for snapshot", logger.Error(err))
	} else if len(recent) > 0 {
		h.send(ctx, c, types.NewScores(recent))
	}

	entries, err := h.Leaderboard(ctx, nil)
	if err != nil {
		metrics.RecordErrorByComponent("hub", "snapshot")
		h.logger.Warn(ctx, "leaderboard unavailable for snapshot", logger.Error(err))
		entries = nil
	}
	h.send(ctx, c, types.NewLeaderboard(entries))
}

// remove drops c and, if it was current for its player, removes the player
// from the live set and broadcasts a leave.
func (h *Hub) remove(ctx context.Context, c *Conn, cause string) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	h.dropConn(c)

	if cause != "disconnect" {
		h.evicted.Add(1)
		metrics.RecordEviction(cause)
	}

	if h.current[c.player.ID] != c {
		h.updateGauges()
		return
	}
	delete(h.current, c.player.ID)
	h.removeLive(c.player.ID)
	h.updateGauges()

	h.logger.Info(ctx, "player left",
		logger.String("player", c.player.ID),
		logger.String("conn", c.id),
		logger.String("cause", cause),
	)
	h.broadcast(ctx, types.NewLeave(c.player.ID), nil)
}

// dropConn forgets c and closes its queue so its writer exits.
func (h *Hub) dropConn(c *Conn) {
	delete(h.conns, c)
	_ = c.queue.Close()
}

func (h *Hub) upsertLive(p model.Player) {
	for i := range h.live {
		if h.live[i].ID == p.ID {
			h.live[i] = p
			return
		}
	}
	h.live = append(h.live, p)
}

func (h *Hub) removeLive(id string) {
	for i := range h.live {
		if h.live[i].ID == id {
			h.live = append(h.live[:i], h.live[i+1:]...)
			return
		}
	}
}

func (h *Hub) updateGauges() {
	h.nConns.Store(int64(len(h.conns)))
	h.nPlayers.Store(int64(len(h.live)))
	metrics.UpdateActiveConnections(len(h.conns))
	metrics.UpdateLivePlayers(len(h.live))
}

func (h *Hub) closeAll() {
	for c := range h.conns {
		h.dropConn(c)
	}
	h.current = make(map[string]*Conn)
	h.live = nil
	h.updateGauges()
}

// IsRejected reports whether err is a validation rejection.
func IsRejected(err error) bool {
	return errors.Is(err, validation.ErrRejected)
}

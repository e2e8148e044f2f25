// Package hub coordinates realtime connections, score submission and
// broadcast. All state changes run on one goroutine, so every connection
// observes broadcasts in the order their operations completed.
package hub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scorehub/internal/adapters/mq/queue"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/pkg/logger"
)

// Default hub configuration constants.
const (
	defaultRecentLimit      = 50
	defaultAggregationLimit = 500
	defaultSendBuffer       = 64
	// players, scores and leaderboard must fit on connect
	minSendBuffer = 4
)

// Store is the subset of the score log the hub needs.
type Store interface {
	Append(ctx context.Context, s model.Score) error
	Recent(ctx context.Context, limit int) ([]model.Score, error)
	ForAggregation(ctx context.Context, limit int) ([]model.Score, error)
}

// Validator accepts or rejects submissions.
type Validator interface {
	Validate(ctx context.Context, s model.Score) error
	Release(ctx context.Context, s model.Score)
}

// Aggregator ranks score rows.
type Aggregator interface {
	Build(rows []model.Score, filter *model.Game) []model.LeaderboardEntry
}

// Conn is one transport session registered with the hub.
type Conn struct {
	id     string
	player model.Player
	queue  *queue.InMemoryQueue
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// Player returns the player bound to the connection.
func (c *Conn) Player() model.Player { return c.player }

// Queue returns the outbound frame queue a writer should drain.
func (c *Conn) Queue() queue.Queue { return c.queue }

// Stats is a point-in-time view of hub counters.
type Stats struct {
	Connections int   `json:"connections"`
	Players     int   `json:"players"`
	Accepted    int64 `json:"accepted"`
	Rejected    int64 `json:"rejected"`
	Failed      int64 `json:"failed"`
	Evicted     int64 `json:"evicted"`
}

// Hub owns the live set and the broadcast group.
type Hub struct {
	store      Store
	validator  Validator
	aggregator Aggregator

	recentLimit      int
	aggregationLimit int
	sendBuffer       int
	now              func() time.Time

	ops      chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool

	// owned by the Run goroutine
	conns   map[*Conn]struct{}
	current map[string]*Conn
	live    []model.Player

	nConns, nPlayers                    atomic.Int64
	accepted, rejected, failed, evicted atomic.Int64

	logger logger.Logger
}

// New creates a Hub. Run must be started before any other call.
func New(store Store, validator Validator, aggregator Aggregator, opts ...Option) *Hub {
	h := &Hub{
		store:            store,
		validator:        validator,
		aggregator:       aggregator,
		recentLimit:      defaultRecentLimit,
		aggregationLimit: defaultAggregationLimit,
		sendBuffer:       defaultSendBuffer,
		now:              time.Now,
		ops:              make(chan func()),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
		conns:            make(map[*Conn]struct{}),
		current:          make(map[string]*Conn),
		logger:           logger.Get().Named("hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.sendBuffer < minSendBuffer {
		h.sendBuffer = minSendBuffer
	}
	return h
}

// Run executes operations until ctx is cancelled or Stop is called. Open
// connections are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	defer close(h.done)
	defer h.closeAll()

	h.logger.Info(ctx, "hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info(ctx, "hub stopping", logger.String("reason", "context done"))
			return
		case <-h.stop:
			h.logger.Info(ctx, "hub stopping", logger.String("reason", "stop requested"))
			return
		case op := <-h.ops:
			op()
		}
	}
}

// Stop asks Run to exit and waits for it.
func (h *Hub) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })
	if !h.running.Load() {
		return nil
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub stop: %w", ctx.Err())
	}
}

// do runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case h.ops <- op:
	case <-h.done:
		return ErrStopped
	case <-h.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	// an accepted op always runs to completion
	<-finished
	return nil
}

// Connect registers a transport session for p. A blank id is replaced by a
// short random id and the name is normalized. A connection already bound to
// the same player id is superseded: it stays open and keeps receiving
// broadcasts, but the player now belongs to the new connection and the old
// one closing later is silent.
func (h *Hub) Connect(ctx context.Context, p model.Player) (*Conn, error) {
	if p.ID == "" {
		p.ID = model.NewPlayerID()
	}
	p.Name = model.NormalizeName(p.Name)

	c := &Conn{
		id:     uuid.NewString(),
		player: p,
		queue:  queue.NewInMemoryQueue(queue.WithCapacity(h.sendBuffer)),
	}

	err := h.do(ctx, func() {
		if old, ok := h.current[p.ID]; ok {
			h.logger.Debug(ctx, "connection superseded",
				logger.String("player", p.ID),
				logger.String("old", old.id),
				logger.String("new", c.id),
			)
		}
		h.conns[c] = struct{}{}
		h.current[p.ID] = c
		h.upsertLive(p)
		h.updateGauges()

		h.broadcast(ctx, types.NewJoin(p), c)
		h.sendSnapshot(ctx, c)
	})
	if err != nil {
		_ = c.queue.Close()
		return nil, err
	}

	h.logger.Info(ctx, "player connected",
		logger.String("player", p.ID),
		logger.String("name", p.Name),
		logger.String("conn", c.id),
	)
	return c, nil
}

// Disconnect removes c. When c is its player's current connection the player
// leaves the live set and a leave is broadcast. Repeated calls are no-ops.
func (h *Hub) Disconnect(ctx context.Context, c *Conn) error {
	if c == nil {
		return nil
	}
	return h.do(ctx, func() {
		h.remove(ctx, c, "disconnect")
	})
}

// Submit validates, persists and broadcasts s. Rejections are returned as
// *validation.RejectedError; storage faults wrap repository.ErrStorage.
func (h *Hub) Submit(ctx context.Context, s model.Score) error {
	s.PlayerName = model.NormalizeName(s.PlayerName)
	if s.Timestamp <= 0 {
		s.Timestamp = h.now().UnixMilli()
	}

	var result error
	if err := h.do(ctx, func() {
		result = h.submit(ctx, s)
	}); err != nil {
		return err
	}
	return result
}

// SubmitFromSocket submits a score received on c. Missing player fields are
// taken from the connection. Failures are logged and dropped.
func (h *Hub) SubmitFromSocket(ctx context.Context, c *Conn, s model.Score) {
	if s.PlayerID == "" {
		s.PlayerID = c.player.ID
	}
	if s.PlayerName == "" {
		s.PlayerName = c.player.Name
	}
	if err := h.Submit(ctx, s); err != nil {
		h.logger.Debug(ctx, "socket submission dropped",
			logger.String("conn", c.id),
			logger.String("player", s.PlayerID),
			logger.Error(err),
		)
	}
}

// AnnouncePlaying tells every other connection what c's player is playing.
// Nothing is stored. Inactive connections and unknown games are ignored.
func (h *Hub) AnnouncePlaying(ctx context.Context, c *Conn, g model.Game) error {
	if !g.Valid() {
		return nil
	}
	return h.do(ctx, func() {
		if _, ok := h.conns[c]; !ok {
			return
		}
		h.broadcast(ctx, types.NewPlaying(c.player, g), c)
	})
}

// Players returns a snapshot of the live set in join order.
func (h *Hub) Players(ctx context.Context) ([]model.Player, error) {
	var out []model.Player
	err := h.do(ctx, func() {
		out = append(make([]model.Player, 0, len(h.live)), h.live...)
	})
	return out, err
}

// Leaderboard ranks the latest stored rows. It does not touch live state.
func (h *Hub) Leaderboard(ctx context.Context, filter *model.Game) ([]model.LeaderboardEntry, error) {
	rows, err := h.store.ForAggregation(ctx, h.aggregationLimit)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	return h.aggregator.Build(rows, filter), nil
}

// RecentScores returns the recent-scores window.
func (h *Hub) RecentScores(ctx context.Context) ([]model.Score, error) {
	rows, err := h.store.Recent(ctx, h.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent: %w", err)
	}
	return rows, nil
}

// Stats returns current counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections: int(h.nConns.Load()),
		Players:     int(h.nPlayers.Load()),
		Accepted:    h.accepted.Load(),
		Rejected:    h.rejected.Load(),
		Failed:      h.failed.Load(),
		Evicted:     h.evicted.Load(),
	}
}


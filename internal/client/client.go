// Package client keeps a player's realtime link to the hub alive and mirrors
// the hub's broadcasts into a locally cached view.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/pkg/logger"
	"github.com/okian/scorehub/pkg/metrics"
)

// Default manager configuration constants.
const (
	DefaultMaxAttempts    = 5
	DefaultReconnectDelay = 3 * time.Second
	defaultDialTimeout    = 10 * time.Second
	defaultEventBuffer    = 256
	recentKeep            = 50
)

// State is the connection status.
type State int

// Connection states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Transport is one open link to the hub.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	// Receive blocks until a frame arrives or the link fails.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens transports for a player.
type Dialer interface {
	Dial(ctx context.Context, p model.Player) (Transport, error)
}

// View is the cached picture of the hub. It stays readable while
// disconnected.
type View struct {
	State        State
	Players      []model.Player
	RecentScores []model.Score
	Leaderboard  []model.LeaderboardEntry
}

// Event is published on every state change (Message nil) and every inbound
// message.
type Event struct {
	State   State
	Message *types.Message
}

// Manager is the client connection state machine.
type Manager struct {
	player model.Player
	dialer Dialer

	maxAttempts    int
	reconnectDelay time.Duration
	dialTimeout    time.Duration

	mu        sync.Mutex
	state     State
	attempts  int
	gen       uint64
	transport Transport
	timer     *time.Timer

	players []model.Player
	recent  []model.Score
	board   []model.LeaderboardEntry

	events chan Event
	logger logger.Logger
}

// NewManager creates a Manager for p. A blank id or name is generated.
func NewManager(p model.Player, d Dialer, opts ...Option) *Manager {
	if p.ID == "" {
		p.ID = model.NewPlayerID()
	}
	if p.Name == "" {
		p.Name = RandomName()
	}
	m := &Manager{
		player:         p,
		dialer:         d,
		maxAttempts:    DefaultMaxAttempts,
		reconnectDelay: DefaultReconnectDelay,
		dialTimeout:    defaultDialTimeout,
		events:         make(chan Event, defaultEventBuffer),
		logger:         logger.Get().Named("client"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.String("player", p.ID))
	return m
}

// Player returns the identity the manager connects as.
func (m *Manager) Player() model.Player { return m.player }

// Events returns the event stream. Events are dropped when the reader lags.
func (m *Manager) Events() <-chan Event { return m.events }

// State returns the current connection status.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// View returns a copy of the cached view.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{
		State:        m.state,
		Players:      append([]model.Player(nil), m.players...),
		RecentScores: append([]model.Score(nil), m.recent...),
		Leaderboard:  append([]model.LeaderboardEntry(nil), m.board...),
	}
}

// Connect starts a connection unless one is already open or opening. It
// resets the reconnect attempt count and cancels any pending retry.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Disconnected {
		return
	}
	m.attempts = 0
	m.stopTimerLocked()
	m.startLocked()
}

// Disconnect closes the link, suppresses every pending or future automatic
// reconnect and clears the cached view.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.attempts = m.maxAttempts
	m.stopTimerLocked()
	m.gen++
	t := m.transport
	m.transport = nil
	m.players, m.recent, m.board = nil, nil, nil
	m.transition(Disconnected)
	m.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	m.logger.Info(context.Background(), "disconnected by caller")
}

// SubmitScore sends s if connected. It never queues or retries.
func (m *Manager) SubmitScore(s model.Score) bool {
	if s.PlayerID == "" {
		s.PlayerID = m.player.ID
	}
	if s.PlayerName == "" {
		s.PlayerName = m.player.Name
	}
	return m.send(types.NewScore(s))
}

// AnnouncePlaying tells other players which game this player started.
func (m *Manager) AnnouncePlaying(g model.Game) bool {
	return m.send(types.NewPlaying(m.player, g))
}

func (m *Manager) send(msg types.Message) bool {
	m.mu.Lock()
	t := m.transport
	ok := m.state == Connected && t != nil
	m.mu.Unlock()
	if !ok {
		return false
	}

	frame, err := types.Encode(msg)
	if err != nil {
		m.logger.Error(context.Background(), "failed to encode outbound message", logger.Error(err))
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	defer cancel()
	if err := t.Send(ctx, frame); err != nil {
		m.logger.Debug(ctx, "send failed", logger.String("type", string(msg.Type)), logger.Error(err))
		return false
	}
	return true
}

// transition is the only place state changes. Callers hold mu.
func (m *Manager) transition(to State) {
	if m.state == to {
		return
	}
	m.state = to
	metrics.RecordClientTransition(to.String())
	m.emit(Event{State: to})
}

func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// startLocked opens a new session. Callers hold mu and have checked the state.
func (m *Manager) startLocked() {
	m.gen++
	gen := m.gen
	m.transition(Connecting)
	go m.dial(gen)
}

func (m *Manager) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	defer cancel()
	t, err := m.dialer.Dial(ctx, m.player)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if t != nil {
			_ = t.Close()
		}
		return
	}
	if err != nil {
		m.logger.Debug(ctx, "dial failed", logger.Int("attempt", m.attempts), logger.Error(err))
		m.transition(Disconnected)
		m.scheduleLocked()
		m.mu.Unlock()
		return
	}
	m.transport = t
	m.attempts = 0
	m.transition(Connected)
	m.mu.Unlock()

	m.logger.Info(ctx, "connected")
	m.readLoop(gen, t)
}

func (m *Manager) readLoop(gen uint64, t Transport) {
	ctx := context.Background()
	for {
		data, err := t.Receive(ctx)
		if err != nil {
			m.closed(gen, t, err)
			return
		}
		msg, err := types.Decode(data)
		if err != nil {
			m.logger.Debug(ctx, "ignoring malformed frame", logger.Error(err))
			continue
		}
		m.apply(gen, msg)
	}
}

func (m *Manager) closed(gen uint64, t Transport, cause error) {
	_ = t.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.logger.Info(context.Background(), "connection lost", logger.Error(cause))
	m.transport = nil
	m.transition(Disconnected)
	m.scheduleLocked()
}

// scheduleLocked arms a retry until maxAttempts is reached.
func (m *Manager) scheduleLocked() {
	if m.attempts >= m.maxAttempts {
		m.logger.Warn(context.Background(), "giving up reconnecting", logger.Int("attempts", m.attempts))
		return
	}
	m.attempts++
	metrics.RecordClientReconnect()

	gen := m.gen
	m.timer = time.AfterFunc(m.reconnectDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen || m.state != Disconnected {
			return
		}
		m.timer = nil
		m.startLocked()
	})
}

func (m *Manager) apply(gen uint64, msg types.Message) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	switch msg.Type {
	case types.TypePlayers:
		m.players = append([]model.Player(nil), msg.Players...)
	case types.TypeJoin:
		if msg.Player != nil && !m.hasPlayer(msg.Player.ID) {
			m.players = append(m.players, *msg.Player)
		}
	case types.TypeLeave:
		kept := m.players[:0]
		for _, p := range m.players {
			if p.ID != msg.PlayerID {
				kept = append(kept, p)
			}
		}
		m.players = kept
	case types.TypeScores:
		m.recent = append([]model.Score(nil), msg.Scores...)
	case types.TypeScore:
		if msg.Score != nil {
			if len(m.recent) >= recentKeep {
				m.recent = append([]model.Score(nil), m.recent[len(m.recent)-recentKeep+1:]...)
			}
			m.recent = append(m.recent, *msg.Score)
		}
	case types.TypeLeaderboard:
		m.board = append([]model.LeaderboardEntry(nil), msg.Entries...)
	}
	state := m.state
	m.mu.Unlock()

	m.emit(Event{State: state, Message: &msg})
}

func (m *Manager) hasPlayer(id string) bool {
	for _, p := range m.players {
		if p.ID == id {
			return true
		}
	}
	return false
}

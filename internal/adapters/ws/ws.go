// Package ws serves the realtime websocket endpoint and bridges sockets to
// the hub.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/scorehub/internal/adapters/mq/worker"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/internal/hub"
	"github.com/okian/scorehub/pkg/logger"
	"github.com/okian/scorehub/pkg/metrics"
)

// Default socket tuning.
const (
	defaultPingInterval   = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultMaxMessageSize = 4096
	disconnectTimeout     = 5 * time.Second
)

// Hub is what the websocket endpoint needs from the realtime hub.
type Hub interface {
	Connect(ctx context.Context, p model.Player) (*hub.Conn, error)
	Disconnect(ctx context.Context, c *hub.Conn) error
	SubmitFromSocket(ctx context.Context, c *hub.Conn, s model.Score)
	AnnouncePlaying(ctx context.Context, c *hub.Conn, g model.Game) error
}

// Handler upgrades requests to websockets and pumps frames in both directions.
type Handler struct {
	hub      Hub
	upgrader websocket.Upgrader

	pingInterval   time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64

	logger logger.Logger
}

// NewHandler creates a websocket Handler bound to h.
func NewHandler(h Hub, opts ...Option) *Handler {
	ws := &Handler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		pingInterval:   defaultPingInterval,
		writeTimeout:   defaultWriteTimeout,
		maxMessageSize: defaultMaxMessageSize,
		logger:         logger.Get().Named("ws"),
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// IsUpgrade reports whether r asks for a websocket.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// ServeHTTP handles GET /ws?id=&name=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	q := r.URL.Query()
	player := model.Player{ID: q.Get("id"), Name: q.Get("name")}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug(ctx, "websocket upgrade failed", logger.Error(err))
		return
	}

	c, err := h.hub.Connect(ctx, player)
	if err != nil {
		h.logger.Warn(ctx, "hub refused connection", logger.Error(err))
		deadline := time.Now().Add(h.writeTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = conn.Close()
		return
	}

	sink := &socketSink{conn: conn, writeTimeout: h.writeTimeout}
	writer := worker.NewWriter(c.Queue(), sink,
		worker.WithName(c.ID()),
		worker.WithPingInterval(h.pingInterval),
		// unblock the read pump so the hub hears about it
		worker.WithOnFailure(func(error) { _ = conn.Close() }),
	)
	go writer.Run(ctx)

	h.readPump(ctx, conn, c)

	dctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()
	if err := h.hub.Disconnect(dctx, c); err != nil {
		h.logger.Debug(ctx, "disconnect after read loop", logger.Error(err))
	}
	_ = conn.Close()
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, c *hub.Conn) {
	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(h.maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug(ctx, "socket closed unexpectedly", logger.String("conn", c.ID()), logger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := types.Decode(data)
		if err != nil {
			metrics.RecordMalformedFrame()
			h.logger.Debug(ctx, "discarding malformed frame", logger.String("conn", c.ID()), logger.Error(err))
			continue
		}

		switch msg.Type {
		case types.TypeScore:
			h.hub.SubmitFromSocket(ctx, c, *msg.Score)
		case types.TypePlaying:
			if err := h.hub.AnnouncePlaying(ctx, c, msg.Game); err != nil {
				h.logger.Debug(ctx, "playing announcement dropped", logger.Error(err))
			}
		default:
			// server-to-client types are not accepted from clients
			metrics.RecordMalformedFrame()
		}
	}
}

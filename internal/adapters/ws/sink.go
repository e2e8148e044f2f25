package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/scorehub/internal/adapters/mq/queue"
)

// socketSink writes frames to a gorilla websocket. Only the connection's
// writer calls WriteFrame.
type socketSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *socketSink) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(s.writeTimeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

func (s *socketSink) WriteFrame(ctx context.Context, f queue.Frame) error {
	if err := s.conn.SetWriteDeadline(s.deadline(ctx)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, f)
}

func (s *socketSink) Ping(ctx context.Context) error {
	return s.conn.WriteControl(websocket.PingMessage, nil, s.deadline(ctx))
}

func (s *socketSink) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

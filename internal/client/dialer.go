package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/scorehub/internal/domain/model"
)

// Default websocket tuning.
const (
	defaultReadWait     = 90 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// WSDialer dials the hub's websocket endpoint, e.g. ws://localhost:3026/ws.
type WSDialer struct {
	URL      string
	Dialer   *websocket.Dialer
	ReadWait time.Duration
}

// Dial opens a websocket carrying the player's id and name.
func (d *WSDialer) Dial(ctx context.Context, p model.Player) (Transport, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	q := u.Query()
	q.Set("id", p.ID)
	q.Set("name", p.Name)
	u.RawQuery = q.Encode()

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	readWait := d.ReadWait
	if readWait <= 0 {
		readWait = defaultReadWait
	}
	return newWSTransport(conn, readWait), nil
}

// wsTransport adapts a gorilla connection to Transport. Sends are
// serialized; gorilla allows one concurrent writer.
type wsTransport struct {
	conn     *websocket.Conn
	readWait time.Duration
	writeMu  sync.Mutex
}

func newWSTransport(conn *websocket.Conn, readWait time.Duration) *wsTransport {
	t := &wsTransport{conn: conn, readWait: readWait}
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	return t
}

func (t *wsTransport) Send(ctx context.Context, frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	_ = t.conn.SetReadDeadline(time.Now().Add(t.readWait))
	return data, nil
}

func (t *wsTransport) Close() error {
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return t.conn.Close()
}

package voice

import (
	"context"
	"fmt"

	"nhooyr.io/websocket"
)

// DefaultReadLimit is the largest websocket message accepted.
const DefaultReadLimit = 512 << 20

// Conn is a websocket connection. *websocket.Conn satisfies it.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens websocket connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials real websocket connections.
type WebsocketDialer struct {
	Options   *websocket.DialOptions
	ReadLimit int64
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, d.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	readLimit := d.ReadLimit
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}

	conn.SetReadLimit(readLimit)

	return conn, nil
}

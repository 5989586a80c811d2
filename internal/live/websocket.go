package live

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// WebSocketTransport subscribes over a WebSocket that sends one JSON text
// message per event.
type WebSocketTransport struct {
	DialOptions *websocket.DialOptions
}

func (t WebSocketTransport) Open(ctx context.Context, endpoint string) (Stream, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, t.DialOptions)
	if err != nil {
		return nil, fmt.Errorf("dial event socket: %w", err)
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Recv(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ == websocket.MessageText {
			return data, nil
		}
	}
}

func (s *wsStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

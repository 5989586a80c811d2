package live

import (
	"context"
	"strings"
)

// Stream is one open push connection.
type Stream interface {
	// Recv blocks until the next message arrives. Any error ends the stream.
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Transport opens push connections.
type Transport interface {
	Open(ctx context.Context, endpoint string) (Stream, error)
}

// WebSocketURL converts an http(s) URL to its ws(s) form.
func WebSocketURL(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	}
	return httpURL
}

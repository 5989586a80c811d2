package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 5 * time.Second

// StreamEvents handles GET /api/events as a server-sent event stream. Each
// broadcast becomes one "data:" frame; comments keep idle proxies open.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if s.Hub == nil {
		writeError(w, r, http.StatusServiceUnavailable, "events unavailable")
		return
	}
	logger := log.Ctx(r.Context())

	// The stream outlives the server's WriteTimeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	// Subscribe before the headers go out so a client that sees the
	// response cannot miss a broadcast.
	msgs, unsubscribe := s.Hub.Subscribe()
	defer unsubscribe()
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()
	logger.Debug().Int("subscribers", s.Hub.Len()).Msg("sse client connected")

	ticker := time.NewTicker(s.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("sse client disconnected")
			return
		case msg, ok := <-msgs:
			if !ok {
				// Dropped by the hub for falling behind.
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// StreamEventsWS handles GET /api/events/ws. Messages are the same JSON
// change events as the SSE stream, one per text frame.
func (s *Server) StreamEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		writeError(w, r, http.StatusServiceUnavailable, "events unavailable")
		return
	}
	logger := log.Ctx(r.Context())
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	msgs, unsubscribe := s.Hub.Subscribe()
	defer unsubscribe()

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	logger.Debug().Int("subscribers", s.Hub.Len()).Msg("websocket client connected")

	ticker := time.NewTicker(s.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("websocket client disconnected")
			return
		case msg, ok := <-msgs:
			if !ok {
				conn.Close(websocket.StatusTryAgainLater, "subscriber too slow")
				return
			}
			if err := writeWS(ctx, conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/model"
)

type contextKey string

const correlationIDKey contextKey = "correlationId"

// HeaderChangeID carries the client's change identifier. Handlers echo it
// in the broadcast so the writer can drop its own echo.
const HeaderChangeID = "X-Change-ID"

// CorrelationMiddleware reads X-Correlation-ID header and adds it to context.
// Generates a new correlation ID if client doesn't provide one.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)

		logger := log.With().Str("correlation_id", correlationID).Logger()
		if id := r.Header.Get(HeaderChangeID); id != "" {
			logger = logger.With().Str("changeId", id).Logger()
		}
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID retrieves the correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey).(string); ok {
		return correlationID
	}
	return ""
}

// changeID prefers the header and falls back to the body field.
func changeID(r *http.Request, fromBody string) string {
	if id := r.Header.Get(HeaderChangeID); id != "" {
		return id
	}
	return fromBody
}

// parseIDParam extracts a positive numeric id from the URL.
func parseIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// publish broadcasts a committed change. Failures are logged; the write
// already succeeded.
func (s *Server) publish(r *http.Request, typ model.EventType, data any, id string) {
	if s.Hub == nil {
		return
	}
	if err := s.Hub.Publish(typ, data, id); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("eventType", string(typ)).Msg("failed to broadcast change")
	}
}

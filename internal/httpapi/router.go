package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/events"
	"github.com/erauner12/groceries/internal/repo"
)

// DefaultHeartbeat is how often idle push streams get a keep-alive.
const DefaultHeartbeat = 30 * time.Second

// Server holds dependencies for HTTP handlers
type Server struct {
	Repo repo.Repository
	Hub  *events.Hub

	// RateLimitConfig applies to the REST routes. A zero value disables
	// rate limiting.
	RateLimitConfig RateLimitInfo

	// HeartbeatInterval defaults to DefaultHeartbeat.
	HeartbeatInterval time.Duration
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

func (s *Server) heartbeat() time.Duration {
	if s.HeartbeatInterval > 0 {
		return s.HeartbeatInterval
	}
	return DefaultHeartbeat
}

// Routes creates the HTTP router with the REST and push endpoints
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", s.Info)

		// Push streams stay open, so they sit outside the rate limit.
		r.Get("/events", s.StreamEvents)
		r.Get("/events/ws", s.StreamEventsWS)

		r.Group(func(r chi.Router) {
			if s.RateLimitConfig.MaxRequests > 0 {
				r.Use(RateLimitMiddleware(s.RateLimitConfig))
			}

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.ListCategories)
				r.Post("/", s.CreateCategory)
				r.Put("/reorder", s.ReorderCategories)
				r.Put("/{id}", s.UpdateCategory)
				r.Delete("/{id}", s.DeleteCategory)
			})

			r.Route("/items", func(r chi.Router) {
				r.Get("/", s.ListItems)
				r.Post("/", s.CreateItem)
				r.Delete("/checked", s.DeleteCheckedItems)
				r.Put("/{id}", s.UpdateItem)
				r.Patch("/{id}/check", s.ToggleItem)
				r.Delete("/{id}", s.DeleteItem)
			})

			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", s.ListRecipes)
				r.Post("/", s.CreateRecipe)
				r.Get("/{id}", s.GetRecipe)
				r.Put("/{id}", s.UpdateRecipe)
				r.Delete("/{id}", s.DeleteRecipe)
				r.Post("/{id}/add-to-list", s.AddRecipeToList)
			})
		})
	})

	log.Info().Msg("HTTP routes registered")
	return r
}

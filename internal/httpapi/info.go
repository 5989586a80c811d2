package httpapi

import (
	"net/http"
	"time"
)

// APIVersion is reported by GET /api/info.
const APIVersion = "1.0"

// ServerInfo represents the server's capabilities and configuration
type ServerInfo struct {
	APIVersion string         `json:"apiVersion"`
	ServerTime string         `json:"serverTime"`
	Transports []string       `json:"transports"`
	Heartbeat  int            `json:"heartbeatSeconds"`
	RateLimit  *RateLimitInfo `json:"rateLimit,omitempty"`
	Hints      *ClientHints   `json:"hints,omitempty"`
}

// RateLimitInfo describes the server's rate limiting policy
type RateLimitInfo struct {
	WindowSeconds int `json:"windowSeconds"` // e.g. 60
	MaxRequests   int `json:"maxRequests"`   // per window
	Burst         int `json:"burst"`         // token bucket size
}

// ClientHints are recommendations for client behavior
type ClientHints struct {
	BackoffMsOn429 int `json:"backoffMsOn429"` // if Retry-After is missing
	OwnChangeTTLMs int `json:"ownChangeTtlMs"`
}

// Info handles GET /api/info
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	info := ServerInfo{
		APIVersion: APIVersion,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
		Transports: []string{"sse", "websocket"},
		Heartbeat:  int(s.heartbeat() / time.Second),
		Hints: &ClientHints{
			BackoffMsOn429: 1500,
			OwnChangeTTLMs: 5000,
		},
	}
	if s.RateLimitConfig.MaxRequests > 0 {
		rl := s.RateLimitConfig
		info.RateLimit = &rl
	}

	writeJSON(w, http.StatusOK, info)
}

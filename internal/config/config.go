package config

import (
	"net/url"
	"os"
	"path/filepath"
)

// Live update transports.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Config holds all configuration for the grocery list client
type Config struct {
	APIBaseURL string `json:"apiBaseUrl"`
	// EventsPath is the push endpoint, relative to APIBaseURL.
	EventsPath string `json:"eventsPath"`
	Transport  string `json:"transport"`
	// DataDir holds the local cache database.
	DataDir  string `json:"dataDir"`
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"`
	Debug    bool   `json:"debug"`
}

// ServerConfig holds configuration for the reference server
type ServerConfig struct {
	HTTPAddr    string `json:"httpAddr"`
	DatabaseURL string `json:"databaseUrl,omitempty"`
	Seed        bool   `json:"seed"`
	Env         string `json:"env"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIBaseURL
	}

	switch c.Transport {
	case TransportSSE, TransportWebSocket:
	default:
		return ErrInvalidTransport
	}

	if c.DataDir == "" {
		return ErrMissingDataDir
	}
	return nil
}

// EventsURL joins the base URL and the push endpoint.
func (c *Config) EventsURL() string {
	return c.APIBaseURL + c.EventsPath
}

// Validate checks if the server configuration is valid
func (c *ServerConfig) Validate() error {
	if c.HTTPAddr == "" {
		return ErrMissingHTTPAddr
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL: "http://localhost:3000",
		EventsPath: "/api/events",
		Transport:  TransportSSE,
		DataDir:    defaultDataDir(),
		LogLevel:   "info",
	}
}

// DefaultServerConfig returns the server defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HTTPAddr: ":3000",
		Seed:     true,
		Env:      "dev",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "groceries")
	}
	return ".groceries"
}

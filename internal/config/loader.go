package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Environment variables read by the loaders.
const (
	EnvAPIBaseURL  = "GROCERIES_API_BASE_URL"
	EnvEventsPath  = "GROCERIES_EVENTS_PATH"
	EnvTransport   = "GROCERIES_TRANSPORT"
	EnvDataDir     = "GROCERIES_DATA_DIR"
	EnvLogLevel    = "GROCERIES_LOG_LEVEL"
	EnvLogFile     = "GROCERIES_LOG_FILE"
	EnvDebug       = "GROCERIES_DEBUG"
	EnvHTTPAddr    = "GROCERIES_HTTP_ADDR"
	EnvDatabaseURL = "DATABASE_URL"
	EnvNoSeed      = "GROCERIES_NO_SEED"
	EnvEnv         = "ENV"
)

// Load loads configuration from a file path and applies environment variable overrides
// Validation is deferred to allow CLI flag overrides to be applied first
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	applyEnvironmentOverrides(cfg)
	return cfg, nil
}

// loadFromFile decodes a JSON file over the defaults already in cfg, so
// keys the file omits keep their default values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigFileNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if apiURL := os.Getenv(EnvAPIBaseURL); apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(apiURL, "/")
	}
	if path := os.Getenv(EnvEventsPath); path != "" {
		cfg.EventsPath = path
	}
	if transport := os.Getenv(EnvTransport); transport != "" {
		cfg.Transport = strings.ToLower(strings.TrimSpace(transport))
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = dir
	}
	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile := os.Getenv(EnvLogFile); logFile != "" {
		cfg.LogFile = logFile
	}
	if isTrue(os.Getenv(EnvDebug)) {
		cfg.Debug = true
	}
}

// LoadFromEnvironment creates a configuration using only environment variables
// Validation is deferred to allow CLI flag overrides to be applied first
func LoadFromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvironmentOverrides(cfg)
	return cfg, nil
}

// LoadServerFromEnvironment builds the server configuration from defaults
// and environment variables.
func LoadServerFromEnvironment() *ServerConfig {
	cfg := DefaultServerConfig()
	if addr := os.Getenv(EnvHTTPAddr); addr != "" {
		cfg.HTTPAddr = addr
	}
	if dsn := os.Getenv(EnvDatabaseURL); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	if isTrue(os.Getenv(EnvNoSeed)) {
		cfg.Seed = false
	}
	if env := os.Getenv(EnvEnv); env != "" {
		cfg.Env = env
	}
	return cfg
}

func isTrue(v string) bool {
	return v == "true" || v == "1"
}

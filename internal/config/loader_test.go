package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var allEnv = []string{
	EnvAPIBaseURL, EnvEventsPath, EnvTransport, EnvDataDir, EnvLogLevel,
	EnvLogFile, EnvDebug, EnvHTTPAddr, EnvDatabaseURL, EnvNoSeed, EnvEnv,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnv {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		checks  func(*testing.T, *Config)
	}{
		{
			name: "default values when no env set",
			checks: func(t *testing.T, cfg *Config) {
				if cfg.APIBaseURL != "http://localhost:3000" {
					t.Errorf("expected default APIBaseURL, got %s", cfg.APIBaseURL)
				}
				if cfg.EventsPath != "/api/events" {
					t.Errorf("expected default EventsPath, got %s", cfg.EventsPath)
				}
				if cfg.Transport != TransportSSE {
					t.Errorf("expected default Transport=sse, got %s", cfg.Transport)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected default LogLevel=info, got %s", cfg.LogLevel)
				}
				if cfg.DataDir == "" {
					t.Error("expected a default DataDir")
				}
			},
		},
		{
			name: "overrides from env",
			envVars: map[string]string{
				EnvAPIBaseURL: "https://groceries.example.com/",
				EnvTransport:  " WebSocket ",
				EnvDataDir:    "/var/lib/groceries",
				EnvDebug:      "1",
				EnvLogFile:    "/tmp/groceries.log",
			},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.APIBaseURL != "https://groceries.example.com" {
					t.Errorf("expected trailing slash trimmed, got %s", cfg.APIBaseURL)
				}
				if cfg.Transport != TransportWebSocket {
					t.Errorf("expected Transport=websocket, got %q", cfg.Transport)
				}
				if cfg.DataDir != "/var/lib/groceries" {
					t.Errorf("expected DataDir from env, got %s", cfg.DataDir)
				}
				if !cfg.Debug {
					t.Error("expected Debug=true")
				}
				if cfg.LogFile != "/tmp/groceries.log" {
					t.Errorf("expected LogFile from env, got %s", cfg.LogFile)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := LoadFromEnvironment()
			if err != nil {
				t.Fatalf("LoadFromEnvironment() error = %v", err)
			}
			tt.checks(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	testConfigPath := filepath.Join(tmpDir, "config.json")
	testConfigJSON := `{
  "apiBaseUrl": "http://shop.local:8080",
  "transport": "websocket",
  "debug": true,
  "logLevel": "debug"
}`
	if err := os.WriteFile(testConfigPath, []byte(testConfigJSON), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}

	badConfigPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(badConfigPath, []byte(`{"apiBaseUrl": `), 0644); err != nil {
		t.Fatalf("failed to create bad config file: %v", err)
	}

	tests := []struct {
		name       string
		configPath string
		envVars    map[string]string
		wantErr    error
		checks     func(*testing.T, *Config)
	}{
		{
			name:       "load from file keeps defaults for missing keys",
			configPath: testConfigPath,
			checks: func(t *testing.T, cfg *Config) {
				if cfg.APIBaseURL != "http://shop.local:8080" {
					t.Errorf("expected APIBaseURL from file, got %s", cfg.APIBaseURL)
				}
				if cfg.Transport != TransportWebSocket {
					t.Errorf("expected Transport from file, got %s", cfg.Transport)
				}
				if cfg.EventsPath != "/api/events" {
					t.Errorf("expected default EventsPath, got %s", cfg.EventsPath)
				}
			},
		},
		{
			name:       "env overrides file",
			configPath: testConfigPath,
			envVars: map[string]string{
				EnvAPIBaseURL: "http://override:9000",
			},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.APIBaseURL != "http://override:9000" {
					t.Errorf("expected env to override file APIBaseURL, got %s", cfg.APIBaseURL)
				}
				if !cfg.Debug {
					t.Error("expected Debug=true from file")
				}
			},
		},
		{
			name:       "nonexistent file",
			configPath: filepath.Join(tmpDir, "missing.json"),
			wantErr:    ErrConfigFileNotFound,
		},
		{
			name:       "invalid json",
			configPath: badConfigPath,
			wantErr:    ErrInvalidConfigFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(tt.configPath)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.checks(t, cfg)
		})
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIBaseURL: "http://localhost:3000",
			EventsPath: "/api/events",
			Transport:  TransportSSE,
			DataDir:    "/tmp/groceries",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing API base URL", mutate: func(c *Config) { c.APIBaseURL = "" }, wantErr: ErrMissingAPIBaseURL},
		{name: "non-http API base URL", mutate: func(c *Config) { c.APIBaseURL = "ftp://example.com" }, wantErr: ErrInvalidAPIBaseURL},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport = "carrier-pigeon" }, wantErr: ErrInvalidTransport},
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: ErrMissingDataDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventsURL(t *testing.T) {
	cfg := &Config{APIBaseURL: "http://localhost:3000", EventsPath: "/api/events"}
	if got := cfg.EventsURL(); got != "http://localhost:3000/api/events" {
		t.Errorf("EventsURL() = %s", got)
	}
}

func TestLoadServerFromEnvironment(t *testing.T) {
	clearEnv(t)
	cfg := LoadServerFromEnvironment()
	if cfg.HTTPAddr != ":3000" || !cfg.Seed || cfg.Env != "dev" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	t.Setenv(EnvHTTPAddr, ":9090")
	t.Setenv(EnvDatabaseURL, "postgres://localhost/groceries")
	t.Setenv(EnvNoSeed, "true")
	cfg = LoadServerFromEnvironment()
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("expected HTTPAddr from env, got %s", cfg.HTTPAddr)
	}
	if cfg.DatabaseURL != "postgres://localhost/groceries" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.Seed {
		t.Error("expected Seed=false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

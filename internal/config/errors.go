package config

import "errors"

var (
	// ErrMissingAPIBaseURL indicates that the API base URL is not configured
	ErrMissingAPIBaseURL = errors.New("apiBaseUrl is required in configuration")

	// ErrInvalidAPIBaseURL indicates that the API base URL is not an http(s) URL
	ErrInvalidAPIBaseURL = errors.New("apiBaseUrl must be an http or https URL")

	// ErrInvalidTransport indicates an unknown live update transport
	ErrInvalidTransport = errors.New("transport must be \"sse\" or \"websocket\"")

	// ErrMissingDataDir indicates that no local data directory is configured
	ErrMissingDataDir = errors.New("dataDir is required in configuration")

	// ErrMissingHTTPAddr indicates that the server listen address is empty
	ErrMissingHTTPAddr = errors.New("httpAddr is required in configuration")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file has invalid JSON
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")
)

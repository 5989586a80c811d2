package client

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError means the server could not be reached or the response was
// lost in transit. The operation may or may not have been applied, which is
// why queued replays carry change identifiers.
type NetworkError struct {
	Op     string
	Status int // set when an intermediary answered 502/503/504
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server unavailable (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a response the server produced on purpose: validation,
// not found, conflict and internal errors.
type APIError struct {
	Op      string
	Status  int
	Message string
	// ItemCount is set when a category delete is refused because items
	// still reference it.
	ItemCount int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Message)
}

// ErrRateLimited is returned when 429 persists after all retries.
type ErrRateLimited struct {
	RetryAfter int
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}

// IsNetwork reports whether err is a NetworkError. Only these failures are
// worth queueing for a later retry.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRetryable reports whether a replayed call should stay queued: the
// server was unreachable or kept answering 429.
func IsRetryable(err error) bool {
	var rl ErrRateLimited
	return IsNetwork(err) || errors.As(err, &rl)
}

// StatusOf returns the HTTP status of an APIError, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

func IsConflict(err error) bool { return StatusOf(err) == http.StatusConflict }

func IsValidation(err error) bool { return StatusOf(err) == http.StatusBadRequest }

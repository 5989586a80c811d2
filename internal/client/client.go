// Package client is the stateless wrapper over the grocery REST API.
//
// Every mutating call takes a change identifier. It is sent as the
// X-Change-ID header and, when the body is a JSON object, as its changeId
// field, so the server can echo it on the resulting push event.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// HeaderChangeID carries the change identifier on mutating requests.
const HeaderChangeID = "X-Change-ID"

// Client issues API calls against one server.
type Client struct {
	http    *HTTPClient
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.http.logger = logger }
}

// New creates a client for the server at baseURL; API paths are resolved
// under baseURL + "/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    NewHTTPClient(zerolog.Nop()),
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Error     string `json:"error"`
	ItemCount int    `json:"itemCount,omitempty"`
}

// do sends one request and decodes the JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path, changeID string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if changeID != "" {
		req.Header.Set(HeaderChangeID, changeID)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var ne *NetworkError
		if errors.As(err, &ne) {
			ne.Op = op
		}
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &NetworkError{Op: op, Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode}
		var eb errorBody
		if json.NewDecoder(resp.Body).Decode(&eb) == nil {
			apiErr.Message = eb.Error
			apiErr.ItemCount = eb.ItemCount
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Truncated or reset mid-body.
		return &NetworkError{Op: op, Err: err}
	}
	return nil
}

type changeRequest struct {
	ChangeID string `json:"changeId,omitempty"`
}

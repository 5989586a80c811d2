package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/erauner12/groceries/internal/events"
	"github.com/erauner12/groceries/internal/model"
	"github.com/erauner12/groceries/internal/repo"
)

// newTestServer wires a server over the in-memory repository.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	srv := &Server{
		Repo: repo.NewMemory(),
		Hub:  events.NewHub(events.WithLogger(zerolog.Nop())),
	}
	return srv, srv.Routes()
}

// makeRequest sends a JSON request with an optional X-Change-ID header.
func makeRequest(t *testing.T, router http.Handler, method, path string, body interface{}, changeID string) *httptest.ResponseRecorder {
	t.Helper()

	var bodyReader *bytes.Reader
	switch b := body.(type) {
	case nil:
		bodyReader = bytes.NewReader(nil)
	case string:
		bodyReader = bytes.NewReader([]byte(b))
	default:
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if changeID != "" {
		req.Header.Set(HeaderChangeID, changeID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response (status %d): %v", w.Code, err)
	}
	return out
}

// nextEvent waits briefly for the next broadcast on ch.
func nextEvent(t *testing.T, ch <-chan []byte) model.ChangeEvent {
	t.Helper()

	select {
	case raw := <-ch:
		ev, err := model.ParseChangeEvent(raw)
		if err != nil {
			t.Fatalf("Failed to parse broadcast: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for broadcast")
		return model.ChangeEvent{}
	}
}

func assertNoEvent(t *testing.T, ch <-chan []byte) {
	t.Helper()

	select {
	case raw := <-ch:
		t.Fatalf("Unexpected broadcast: %s", raw)
	default:
	}
}

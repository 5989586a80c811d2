package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erauner12/groceries/internal/model"
)

func TestClient_HeaderInjection(t *testing.T) {
	var capturedHeaders http.Header
	var capturedBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedHeaders = r.Header
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.Item{ID: 12, Name: "milk"})
	}))
	defer server.Close()

	c := New(server.URL)
	item, err := c.CreateItem(context.Background(), model.ItemInput{Name: "milk"}, "change-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if item.ID != 12 {
		t.Errorf("unexpected item id: %d", item.ID)
	}

	if corr := capturedHeaders.Get("X-Correlation-ID"); corr == "" {
		t.Error("missing X-Correlation-ID header")
	}
	if id := capturedHeaders.Get(HeaderChangeID); id != "change-1" {
		t.Errorf("unexpected %s header: %s", HeaderChangeID, id)
	}
	if capturedBody["changeId"] != "change-1" {
		t.Errorf("changeId missing from body: %v", capturedBody)
	}
	if capturedBody["name"] != "milk" {
		t.Errorf("name missing from body: %v", capturedBody)
	}
}

func TestClient_Paths(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *Client) error
		method string
		path   string
	}{
		{"list categories", func(c *Client) error { _, err := c.ListCategories(context.Background()); return err }, "GET", "/api/categories"},
		{"reorder", func(c *Client) error {
			_, err := c.ReorderCategories(context.Background(), model.DenseOrder([]int64{2, 1}), "x")
			return err
		}, "PUT", "/api/categories/reorder"},
		{"delete category", func(c *Client) error { return c.DeleteCategory(context.Background(), 3, "x") }, "DELETE", "/api/categories/3"},
		{"toggle", func(c *Client) error { _, err := c.ToggleItemCheck(context.Background(), 4, true, "x"); return err }, "PATCH", "/api/items/4/check"},
		{"delete checked", func(c *Client) error { _, err := c.DeleteCheckedItems(context.Background(), "x"); return err }, "DELETE", "/api/items/checked"},
		{"get recipe", func(c *Client) error { _, err := c.GetRecipe(context.Background(), 9); return err }, "GET", "/api/recipes/9"},
		{"add to list", func(c *Client) error { _, err := c.AddRecipeToList(context.Background(), 9, "x"); return err }, "POST", "/api/recipes/9/add-to-list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				switch {
				case strings.HasSuffix(r.URL.Path, "/reorder"), r.URL.Path == "/api/categories":
					_, _ = w.Write([]byte(`[]`))
				case r.Method == http.MethodDelete && !strings.HasSuffix(r.URL.Path, "/checked"):
					w.WriteHeader(http.StatusNoContent)
				default:
					_, _ = w.Write([]byte(`{}`))
				}
			}))
			defer server.Close()

			if err := tt.call(New(server.URL + "/")); err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if method != tt.method || path != tt.path {
				t.Errorf("got %s %s, want %s %s", method, path, tt.method, tt.path)
			}
		})
	}
}

func TestClient_NetworkErrorWhenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(url).ListItems(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNetwork(err) {
		t.Errorf("expected network error, got %T: %v", err, err)
	}
}

func TestClient_GatewayStatusIsNetwork(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		err := New(server.URL).DeleteItem(context.Background(), 1, "c")
		server.Close()

		if !IsNetwork(err) {
			t.Errorf("status %d: expected network error, got %v", status, err)
		}
	}
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		check     func(error) bool
		message   string
		itemCount int
	}{
		{"not found", 404, `{"error":"Item not found"}`, IsNotFound, "Item not found", 0},
		{"conflict", 409, `{"error":"Cannot delete category with items","itemCount":3}`, IsConflict, "Cannot delete category with items", 3},
		{"validation", 400, `{"error":"Item name is required"}`, IsValidation, "Item name is required", 0},
		{"server error without body", 500, ``, func(err error) bool { return StatusOf(err) == 500 }, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			err := New(server.URL).DeleteCategory(context.Background(), 1, "c")
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if IsNetwork(err) {
				t.Error("application error classified as network")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Message != tt.message {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.message)
			}
			if apiErr.ItemCount != tt.itemCount {
				t.Errorf("itemCount = %d, want %d", apiErr.ItemCount, tt.itemCount)
			}
		})
	}
}

func TestClient_TruncatedBodyIsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "200")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `[{"id":1,"name":"mi`)
	}))
	defer server.Close()

	_, err := New(server.URL).ListItems(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestClient_MalformedBodyIsNotNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id": "not-a-number"}`)
	}))
	defer server.Close()

	_, err := New(server.URL).GetRecipe(context.Background(), 1)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if IsNetwork(err) {
		t.Errorf("decode error classified as network: %v", err)
	}
}

func TestClient_CancelledContextIsNotNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(server.URL).ListItems(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if IsNetwork(err) {
		t.Error("cancellation classified as network")
	}
}

func TestHTTPClient_Retry429(t *testing.T) {
	callCount := 0
	var capturedBodies []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		bodyBytes, _ := io.ReadAll(r.Body)
		capturedBodies = append(capturedBodies, string(bodyBytes))
		if callCount == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"id":5,"name":"Dairy","sort_order":1}`)
	}))
	defer server.Close()

	start := time.Now()
	cat, err := New(server.URL).CreateCategory(context.Background(), "Dairy", "c")
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if cat.ID != 5 {
		t.Errorf("unexpected category: %+v", cat)
	}
	if callCount != 2 {
		t.Errorf("expected 2 API calls (429 + retry), got %d", callCount)
	}
	if duration < 1*time.Second {
		t.Errorf("expected backoff of at least 1s, got %v", duration)
	}
	if len(capturedBodies) != 2 || capturedBodies[0] != capturedBodies[1] {
		t.Errorf("body not preserved on retry: %q", capturedBodies)
	}
}

func TestHTTPClient_RateLimitCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := New(server.URL).ListRecipes(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.value); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 10*time.Second {
		t.Errorf("parseRetryAfter(http-date) = %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", &NetworkError{Op: "GET /api/items", Err: errors.New("refused")}, true},
		{"rate limited", ErrRateLimited{RetryAfter: 5}, true},
		{"wrapped rate limit", fmt.Errorf("replay: %w", ErrRateLimited{}), true},
		{"not found", &APIError{Op: "delete item", Status: http.StatusNotFound}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

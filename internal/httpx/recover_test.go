package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRecover(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithRecover(logger, true))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["message"] != "Internal server error" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	if body["error"] != "boom" {
		t.Fatalf("expected panic value in error, got %v", body["error"])
	}
	if s, _ := body["stack"].(string); s == "" {
		t.Fatal("expected stack detail")
	}
}

func TestWithRecover_DetailSuppressed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithRecover(logger, false))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))

	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	for _, k := range []string{"error", "stack"} {
		if _, present := body[k]; present {
			t.Fatalf("expected %q to be suppressed", k)
		}
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}), WithRequestID)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("expected a generated request id")
	}
	if rw.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("response header %q does not match context id %q", rw.Header().Get(RequestIDHeader), seen)
	}

	// Caller-provided ids pass through.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "req-123" {
		t.Fatalf("expected caller id to pass through, got %q", seen)
	}
}

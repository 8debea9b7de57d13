package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const testAPIKey = "test-secret-key-12345"

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func lastLogEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("parse log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + testAPIKey, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"basic scheme", "Basic " + testAPIKey, http.StatusUnauthorized},
		{"lowercase scheme", "bearer " + testAPIKey, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"whitespace token", "Bearer    ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			AuthMiddleware(testAPIKey)(next).ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("next called = %v", called)
			}
		})
	}
}

func TestAuthMiddleware_ProblemBodyDoesNotLeakKey(t *testing.T) {
	logs := captureLogs(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tick", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	AuthMiddleware(testAPIKey)(http.NotFoundHandler()).ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Status != http.StatusUnauthorized || p.Instance != "/api/v1/tick" {
		t.Errorf("problem = %+v", p)
	}
	if !strings.HasPrefix(p.Type, "https://pulse.dev/errors/") {
		t.Errorf("type = %q", p.Type)
	}

	for _, out := range []string{w.Body.String(), logs.String()} {
		if strings.Contains(out, testAPIKey) {
			t.Errorf("API key leaked: %s", out)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"Bearer   abc  ": "abc",
		"Token abc":      "",
		"Bearerabc":      "",
		"Bearer abc def": "abc def",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := extractBearerToken(req); got != want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !constantTimeEqual("same", "same") {
		t.Error("equal strings compared unequal")
	}
	for _, pair := range [][2]string{{"a", "b"}, {"short", "longer"}, {"", "x"}} {
		if constantTimeEqual(pair[0], pair[1]) {
			t.Errorf("constantTimeEqual(%q, %q) = true", pair[0], pair[1])
		}
	}
}

func TestLogLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{200, slog.LevelInfo},
		{204, slog.LevelInfo},
		{304, slog.LevelInfo},
		{404, slog.LevelWarn},
		{422, slog.LevelWarn},
		{500, slog.LevelError},
		{503, slog.LevelError},
	}
	for _, tt := range tests {
		if got := logLevelForStatus(tt.status); got != tt.want {
			t.Errorf("logLevelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"ok", http.StatusOK, "INFO"},
		{"not found", http.StatusNotFound, "WARN"},
		{"server error", http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			h := chiMiddleware.RequestID(LoggingMiddleware(next))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
			req.Header.Set("Authorization", "Bearer "+testAPIKey)
			req.RemoteAddr = "192.0.2.1:4321"
			h.ServeHTTP(httptest.NewRecorder(), req)

			entry := lastLogEntry(t, logs)
			if entry["msg"] != "request completed" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if int(entry["status"].(float64)) != tt.status {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			for _, field := range []string{"request_id", "method", "path", "duration_ms", "remote_addr"} {
				if _, ok := entry[field]; !ok {
					t.Errorf("missing field %q in %v", field, entry)
				}
			}
			if entry["request_id"] == "" {
				t.Error("request_id is empty")
			}
			if entry["remote_addr"] != "192.0.2.1:4321" {
				t.Errorf("remote_addr = %v", entry["remote_addr"])
			}
			if strings.Contains(logs.String(), testAPIKey) {
				t.Error("authorization header leaked into logs")
			}
		})
	}
}

func TestLoggingMiddleware_ImplicitOK(t *testing.T) {
	logs := captureLogs(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("body"))
		w.WriteHeader(http.StatusTeapot)
	})
	LoggingMiddleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := lastLogEntry(t, logs)["status"]; int(got.(float64)) != http.StatusOK {
		t.Errorf("status = %v, want 200 once the body is written", got)
	}
}

func TestGetRequestID(t *testing.T) {
	var seen string
	h := chiMiddleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Error("request ID not set inside chi RequestID middleware")
	}

	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("GetRequestID without middleware = %q, want empty", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("passes through", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
		w := httptest.NewRecorder()
		RecoveryMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", w.Code)
		}
	})

	t.Run("panic becomes 500 without details", func(t *testing.T) {
		logs := captureLogs(t)
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("schedule table corrupted at row 7")
		})
		w := httptest.NewRecorder()
		RecoveryMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tick", nil))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", w.Code)
		}
		if strings.Contains(w.Body.String(), "row 7") {
			t.Errorf("panic value leaked to client: %s", w.Body.String())
		}
		if !strings.Contains(logs.String(), "panic recovered") || !strings.Contains(logs.String(), "row 7") {
			t.Errorf("panic not logged: %s", logs.String())
		}
	})

	t.Run("abort handler re-panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r != http.ErrAbortHandler {
				t.Errorf("recovered %v, want http.ErrAbortHandler", r)
			}
		}()
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})
		RecoveryMiddleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

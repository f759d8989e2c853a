package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRequestLoggerLevels(t *testing.T) {
	h := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	tests := []struct {
		path   string
		logged string
	}{
		{path: "/api/v1/settings", logged: "level=INFO"},
		{path: "/metrics", logged: ""},
		{path: "/events", logged: ""},
		{path: "/ws/events", logged: ""},
		{path: "/health", logged: ""},
		{path: "/boom", logged: "level=WARN"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf := captureLog(t)
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			out := buf.String()
			if tt.logged == "" {
				if out != "" {
					t.Fatalf("log output = %q; want nothing at info level", out)
				}
				return
			}
			if !strings.Contains(out, tt.logged) || !strings.Contains(out, "path="+tt.path) {
				t.Fatalf("log output = %q; want %s for %s", out, tt.logged, tt.path)
			}
		})
	}
}

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/collegeportal/web/internal/logging"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestRequestLoggerAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		logging.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/colleges", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid request id got %q", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("expected response header %q got %q", seen, got)
	}

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected two log entries got %d", len(entries))
	}
	for _, entry := range entries {
		if entry["request_id"] != seen || entry["path"] != "/colleges" {
			t.Fatalf("expected request metadata on every entry got %v", entry)
		}
	}
	if entries[1]["status"] != float64(http.StatusTeapot) {
		t.Fatalf("expected logged status 418 got %v", entries[1]["status"])
	}
}

func TestRequestLoggerReusesIncomingID(t *testing.T) {
	cases := map[string]struct {
		header string
		reuse  bool
	}{
		"valid":       {header: "proxy-123", reuse: true},
		"empty":       {header: "", reuse: false},
		"with spaces": {header: "a b", reuse: false},
		"too long":    {header: strings.Repeat("x", 200), reuse: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
			handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if tc.reuse && got != tc.header {
				t.Fatalf("expected %q got %q", tc.header, got)
			}
			if !tc.reuse {
				if _, err := uuid.Parse(got); err != nil {
					t.Fatalf("expected generated uuid got %q", got)
				}
			}
		})
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatal("expected panic to be logged")
	}
}

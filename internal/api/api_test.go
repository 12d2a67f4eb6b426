package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestHealthRoute(t *testing.T) {
	r := chi.NewRouter()
	Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body Health
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.OK {
		t.Error("ok = false")
	}
	if _, err := time.Parse(time.RFC3339Nano, body.Timestamp); err != nil {
		t.Errorf("timestamp %q is not ISO-8601: %v", body.Timestamp, err)
	}
}

func TestHealthTimestampFormat(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 17, 4, 5, 120_000_000, time.FixedZone("CET", 3600))
	rec := httptest.NewRecorder()
	health(func() time.Time { return fixed })(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	want := `{"ok":true,"timestamp":"2024-03-09T16:04:05.120Z"}` + "\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestHealthRejectsPost(t *testing.T) {
	r := chi.NewRouter()
	Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

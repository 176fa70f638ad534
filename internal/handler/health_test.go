package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/config"
)

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(&config.Config{}, "test")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	cfg := &config.Config{
		Rules: []config.RuleConfig{
			{Match: "api-sports.io", Headers: map[string]string{"x-rapidapi-key": "secret"}},
			{Match: "the-odds-api.com"},
		},
	}
	h := NewHealthHandler(cfg, "1.2.3")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/proxy/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["version"] != "1.2.3" {
		t.Errorf("version = %v, want %q", body["version"], "1.2.3")
	}
	if body["rules"] != float64(2) {
		t.Errorf("rules = %v, want 2", body["rules"])
	}

	// Rule header values carry credentials and must never appear in status output.
	if strings.Contains(rec.Body.String(), "secret") {
		t.Errorf("status body %q must not expose rule header values", rec.Body.String())
	}
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/client"
	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/metrics"
	"cors-proxy-go/internal/middleware"
	"cors-proxy-go/internal/service"
)

// newTestApp wires the full route table behind the CORS middleware, the way
// the binary composes it.
func newTestApp(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	if cfg.Upstream.TimeoutSeconds == 0 {
		cfg.Upstream.TimeoutSeconds = 10
	}
	if cfg.Upstream.IdleConnections == 0 {
		cfg.Upstream.IdleConnections = 10
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = "cors-proxy-go/test"
	}
	logger := testLogger()
	m := metrics.New()
	uc := client.NewUpstreamClient(cfg, logger, m)
	svc, err := service.NewForwarder(uc, cfg, logger)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	e := echo.New()
	e.Use(middleware.CORS())
	RegisterRoutes(e, cfg, m, NewProxyHandler(svc, logger), NewHealthHandler(cfg, "test"))
	return e
}

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	e := newTestApp(t, &config.Config{
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"GET / relays", http.MethodGet, "/?url=" + url.QueryEscape(upstream.URL), http.StatusOK},
		{"GET / without url param", http.MethodGet, "/", http.StatusBadRequest},
		{"OPTIONS / preflight", http.MethodOptions, "/", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			// Every response out of the relay carries the CORS header, errors included.
			if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	e := newTestApp(t, &config.Config{
		Metrics: config.MetricsConfig{Enabled: false, Path: "/metrics"},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d when metrics are disabled", rec.Code, http.StatusNotFound)
	}
}

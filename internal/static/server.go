// Package static implements the local development file server: a directory
// served over HTTP with explicit MIME types, security headers, a loopback
// port scan and browser auto-open.
package static

import (
	"fmt"
	"log/slog"
	"mime"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/middleware"
)

// mimeOverrides pins the extensions the suite's pages depend on. The stdlib
// table is usually right, but on some platforms it is populated from system
// state (e.g. the Windows registry) and serves .js as text/plain.
var mimeOverrides = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript",
}

// RegisterMIMETypes installs the explicit extension-to-MIME overrides.
func RegisterMIMETypes() error {
	for ext, typ := range mimeOverrides {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			return fmt.Errorf("register MIME type for %s: %w", ext, err)
		}
	}
	return nil
}

// NewEcho builds the static file server around cfg.Static.Dir.
func NewEcho(cfg *config.Config, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 30 * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(securityHeaders())
	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:  cfg.Static.Dir,
		Index: cfg.Static.Index,
	}))

	return e
}

// IndexURL returns the browser-facing URL of the index page.
func IndexURL(cfg *config.Config, port int) string {
	return fmt.Sprintf("http://%s:%d/%s", cfg.Static.Host, port, cfg.Static.Index)
}

// securityHeaders adds the file server's response headers. Unlike the relay,
// pages here are meant to frame each other, so X-Frame-Options is SAMEORIGIN
// rather than DENY.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Response().Header()
			header.Set("X-Content-Type-Options", "nosniff")
			header.Set("X-Frame-Options", "SAMEORIGIN")
			header.Set("X-XSS-Protection", "1; mode=block")
			return next(c)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	"github.com/pkg/browser"
	"go.uber.org/fx"

	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/logging"
	"cors-proxy-go/internal/static"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.StaticCLI
	kong.Parse(&cli,
		kong.Name("static-server"),
		kong.Description("Static file server for the local analytics pages, with browser auto-open."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.StaticCLI { return &cli },
			config.LoadStatic,
			logging.New,
			static.NewEcho,
		),
		fx.Invoke(startServer),
	).Run()
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := static.RegisterMIMETypes(); err != nil {
				return err
			}

			ln, port, err := static.Listen(cfg.Static.Host, cfg.Static.StartPort, cfg.Static.PortAttempts)
			if err != nil {
				return err
			}

			url := static.IndexURL(cfg, port)
			logger.Info("serving directory",
				"dir", cfg.Static.Dir,
				"addr", ln.Addr().String(),
				"url", url,
			)

			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()

			if !cfg.Static.NoBrowser {
				if err := browser.OpenURL(url); err != nil {
					logger.Warn("could not open browser", "err", err, "url", url)
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}

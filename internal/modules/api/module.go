package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	alerts "signal_bot/internal/modules/alerts/service"
	"signal_bot/internal/modules/api/service"
	broadcast "signal_bot/internal/modules/broadcast/service"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func newHandler(
	cfg *config.Config,
	state *service.State,
	feed *service.Feed,
	ingestor *runner.Ingestor,
	reg *prometheus.Registry,
	sched *alerts.Scheduler,
) *service.Handler {
	return service.NewHandler(service.HandlerDeps{
		State:    state,
		Feed:     feed,
		Ingestor: ingestor,
		Gatherer: reg,
		Pending:  sched.Pending,
		Token:    cfg.Webhook.Token,
		Name:     cfg.Telegram.Brand,
	})
}

func NewEcho(h *service.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(service.RequestLogging())
	h.RegisterRoutes(e)
	return e
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, e *echo.Echo, state *service.State, feed *service.Feed, out *broadcast.Fanout) {
	out.AddTap(state)
	out.AddTap(feed)

	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.Port)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			e.Listener = ln
			go func() {
				if err := e.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("api: http server: %v", err)
				}
			}()
			state.SetReady(true)
			logger.Info("api: listening on %s", addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			feed.Close()
			return e.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			service.NewState,
			service.NewFeed,
			newHandler,
			NewEcho,
		),
		fx.Invoke(RunHTTP),
	)
}

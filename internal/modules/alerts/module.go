package alerts

import (
	"context"
	"strings"

	"signal_bot/internal/helper"
	"signal_bot/internal/metrics"
	"signal_bot/internal/modules/alerts/service"
	broadcast "signal_bot/internal/modules/broadcast/service"
	"signal_bot/internal/modules/config"
	market "signal_bot/internal/modules/market/service"
	signallog "signal_bot/internal/modules/signallog/service"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

func newSettler(cfg *config.Config, fetcher market.Fetcher) service.Settler {
	if strings.EqualFold(cfg.Alerts.Outcome, "settle") {
		return service.NewMarketSettler(fetcher)
	}
	logger.Info("alerts: outcome mode is simulated (demo)")
	return service.NewSimulated(nil)
}

func newScheduler(
	cfg *config.Config,
	out *broadcast.Fanout,
	journal *signallog.Log,
	settler service.Settler,
	rec *metrics.Recorder,
) *service.Scheduler {
	a := cfg.Alerts
	return service.NewScheduler(service.Config{
		PreAlertLead:     a.PreAlertLead,
		ConfirmationLead: a.ConfirmationLead,
		ResultDelay:      a.ResultDelay,
	}, service.Deps{
		Clock:    service.SystemClock{},
		Out:      out,
		Journal:  journal,
		Settler:  settler,
		Renderer: service.NewRenderer(cfg.Telegram.Brand, cfg.Telegram.Tagline, helper.DisplayZone(a.DisplayZone, a.DisplayOffset)),
		Metrics:  rec,
	})
}

// Module поднимает планировщик стадий.
func Module() fx.Option {
	return fx.Module("alerts",
		fx.Provide(
			newSettler,
			newScheduler,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *service.Scheduler) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					s.Start(runCtx)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					defer cancel()
					drain, stop := context.WithTimeout(ctx, cfg.Alerts.DrainTimeout)
					defer stop()
					return s.Stop(drain)
				},
			})
		}),
	)
}

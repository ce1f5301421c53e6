package main

import (
	"context"
	"log"

	"signal_bot/internal/metrics"
	"signal_bot/internal/modules/alerts"
	"signal_bot/internal/modules/api"
	"signal_bot/internal/modules/broadcast"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/market"
	"signal_bot/internal/modules/postgres"
	"signal_bot/internal/modules/signallog"
	"signal_bot/internal/modules/strategy"
	"signal_bot/internal/modules/subscribers"
	telegram "signal_bot/internal/modules/telegram_bot"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"

	"go.uber.org/fx"
)

// setupObservability: логгер и (опционально) jaeger до старта остальных модулей.
func setupObservability(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(cfg.Service.Name)
	tracing.SetServiceName(cfg.Service.Name)
	if err := logger.Init(cfg.Service.LogLevel); err != nil {
		return err
	}
	logger.Debug("config:\n%s", cfg.Dump())
	if !cfg.Tracing.Enabled {
		return nil
	}

	_, closer, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
	if err != nil {
		logger.Warn("tracing: %v, continuing without jaeger", err)
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(setupObservability),
		metrics.Module(),
		postgres.Module(),
		subscribers.Module(),
		market.Module(),
		strategy.Module(),
		signallog.Module(),
		telegram.Module(),
		broadcast.Module(),
		alerts.Module(),
		runner.Module(),
		api.Module(),
	)

	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	// Run ждёт SIGINT/SIGTERM и останавливает модули в обратном порядке.
	app.Run()
	logger.Sync()
}

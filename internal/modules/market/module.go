package market

import (
	"context"

	"signal_bot/internal/metrics"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/market/service"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

// newFetcher собирает цепочку: кэш (если задан redis) → роутер → провайдеры.
func newFetcher(lc fx.Lifecycle, cfg *config.Config, rec *metrics.Recorder) service.Fetcher {
	td := service.NewTwelveData(service.TwelveDataConfig{
		BaseURL: cfg.Market.BaseURL,
		APIKey:  cfg.Market.APIKey,
		Timeout: cfg.Market.Timeout,
	}, rec)
	okx := service.NewOKX(service.OKXConfig{
		BaseURL: cfg.Market.OKXBaseURL,
		Timeout: cfg.Market.Timeout,
	}, rec)

	var f service.Fetcher = service.NewRouter(td, okx)
	if cfg.Redis.Addr == "" {
		return f
	}

	store := service.NewRedisStore(service.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// без redis работаем напрямую, кэш просто промахивается
			if err := store.Ping(ctx); err != nil {
				logger.Warn("redis %s unavailable: %v", cfg.Redis.Addr, err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return service.NewCached(f, store, cfg.Redis.TTL)
}

// Module поднимает источники свечей.
func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			newFetcher,
		),
	)
}

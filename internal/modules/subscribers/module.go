package subscribers

import (
	"context"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/subscribers/service"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

// newStore: Postgres, если задан DSN, иначе локальный sqlite.
func newStore(lc fx.Lifecycle, cfg *config.Config, pg *db.PgTxManager) (service.Store, error) {
	if pg != nil {
		return service.NewPostgres(context.Background(), pg)
	}

	s, err := service.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}

// Module регистрирует хранилище подписчиков и сидирует админов.
func Module() fx.Option {
	return fx.Module("subscribers",
		fx.Provide(
			newStore,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, store service.Store) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := service.SeedAdmins(ctx, store, cfg.Telegram.AdminIDs); err != nil {
						return err
					}
					logger.Info("subscribers: %d admins approved", len(cfg.Telegram.AdminIDs))
					return nil
				},
			})
		}),
	)
}

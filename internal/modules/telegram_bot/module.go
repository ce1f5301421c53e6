package telegram

import (
	"context"
	"fmt"

	"signal_bot/internal/modules/config"
	broadcast "signal_bot/internal/modules/broadcast/service"
	subscribers "signal_bot/internal/modules/subscribers/service"
	"signal_bot/internal/modules/telegram_bot/service"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

// newSender: без токена сообщения пишутся в лог.
func newSender(cfg *config.Config, store subscribers.Store) (broadcast.Sender, *service.Telegram, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("telegram: token is empty, messages go to stdout")
		return service.Stdout{}, nil, nil
	}
	t, err := service.NewTelegram(cfg, store)
	if err != nil {
		return nil, nil, err
	}
	return t, t, nil
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			newSender,
		),
		// Запуск основного цикла через Lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config, t *service.Telegram) {
				if t == nil {
					return
				}
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						go t.Start(context.Background())
						go t.NotifyAdmins(context.Background(),
							fmt.Sprintf("🤖 %s started. Signals are live.", cfg.Telegram.Brand))
						return nil
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}

package broadcast

import (
	"signal_bot/internal/metrics"
	"signal_bot/internal/modules/broadcast/service"
	"signal_bot/internal/modules/config"
	subscribers "signal_bot/internal/modules/subscribers/service"

	"go.uber.org/fx"
)

func newFanout(cfg *config.Config, store subscribers.Store, sender service.Sender, rec *metrics.Recorder) *service.Fanout {
	return service.NewFanout(store, sender, cfg.Telegram.Workers, rec)
}

// Module поднимает рассылку по подписчикам.
func Module() fx.Option {
	return fx.Module("broadcast",
		fx.Provide(
			newFanout,
		),
	)
}

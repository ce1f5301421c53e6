package signallog

import (
	"context"

	"signal_bot/internal/helper"
	"signal_bot/internal/metrics"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/signallog/service"
	"signal_bot/pkg/db"

	"go.uber.org/fx"
)

func newLog(lc fx.Lifecycle, cfg *config.Config, pg *db.PgTxManager, rec *metrics.Recorder) (*service.Log, error) {
	var sinks []service.Sink

	if cfg.SignalLog.CSV != "" {
		zone := helper.DisplayZone(cfg.Alerts.DisplayZone, cfg.Alerts.DisplayOffset)
		csv, err := service.NewCSV(cfg.SignalLog.CSV, zone)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csv)
	}
	if pg != nil {
		p, err := service.NewPostgres(context.Background(), pg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, p)
	}

	l := service.NewLog(rec, sinks...)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return l.Close()
		},
	})
	return l, nil
}

// Module поднимает журнал сигналов.
func Module() fx.Option {
	return fx.Module("signallog",
		fx.Provide(
			newLog,
		),
	)
}

package runner

import (
	"context"

	"signal_bot/internal/metrics"
	alerts "signal_bot/internal/modules/alerts/service"
	"signal_bot/internal/modules/config"
	signallog "signal_bot/internal/modules/signallog/service"
	strategy "signal_bot/internal/modules/strategy/service"
	subscribers "signal_bot/internal/modules/subscribers/service"

	"go.uber.org/fx"
)

func newRunner(
	cfg *config.Config,
	an *strategy.Analyzer,
	sched *alerts.Scheduler,
	journal *signallog.Log,
	store subscribers.Store,
	rec *metrics.Recorder,
) *Runner {
	s := cfg.Scan
	return New(Config{
		Symbols:       s.Symbols,
		Timeframe:     cfg.PrimaryTimeframe(),
		MinConfidence: s.MinConfidence,
		RecentSize:    s.RecentSize,
		PickTries:     s.PickTries,
		IdleWait:      s.IdleWait,
		ErrorBackoff:  s.ErrorBackoff,
		NoSignalWait:  s.NoSignalWait,
		GapMin:        s.GapMin,
		GapMax:        s.GapMax,
	}, Deps{
		Analyzer:    an,
		Scheduler:   sched,
		Journal:     journal,
		Subscribers: store,
		Metrics:     rec,
	})
}

func newIngestor(sched *alerts.Scheduler, journal *signallog.Log) *Ingestor {
	return NewIngestor(sched, journal)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			newRunner,
			newIngestor,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					r.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					r.Stop()
					return nil
				},
			})
		}),
	)
}

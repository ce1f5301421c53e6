package strategy

import (
	"signal_bot/internal/modules/config"
	market "signal_bot/internal/modules/market/service"
	"signal_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

func newConfluenceConfig(cfg *config.Config) service.Config {
	s := cfg.Strategy
	return service.Config{
		Timeframe:        cfg.PrimaryTimeframe(),
		SecondaryConfirm: s.SecondaryConfirm,
		EMAFast:          s.EMAFast,
		EMASlow:          s.EMASlow,
		MACDFast:         s.MACDFast,
		MACDSlow:         s.MACDSlow,
		MACDSignal:       s.MACDSignal,
		RSIPeriod:        s.RSIPeriod,
		RSIBuyBelow:      s.RSIBuyBelow,
		RSISellAbove:     s.RSISellAbove,
		ATRPeriod:        s.ATRPeriod,
		MinATRRatio:      s.MinATRRatio,
		PSARStep:         s.PSARStep,
		PSARMax:          s.PSARMax,
		RequiredVotes:    s.RequiredVotes,
		MaxConfidence:    s.MaxConfidence,
		JitterMax:        s.JitterMax,
	}
}

func newAnalyzer(cfg *config.Config, conf *service.Confluence, fetcher market.Fetcher) *service.Analyzer {
	return service.NewAnalyzer(conf, fetcher, service.AnalyzerConfig{
		PrimaryBars:        cfg.Market.PrimaryBars,
		SecondaryBars:      cfg.Market.SecondaryBars,
		SecondaryTimeframe: cfg.SecondaryTimeframe(),
	})
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			newConfluenceConfig,
			func(c service.Config) *service.Confluence { return service.NewConfluence(c, nil) },
			newAnalyzer,
		),
	)
}

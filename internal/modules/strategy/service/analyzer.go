package service

import (
	"context"
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

// Fetcher — источник свечей, бары от старых к новым.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, tf models.Timeframe, bars int) (models.Series, error)
}

type AnalyzerConfig struct {
	PrimaryBars        int
	SecondaryBars      int
	SecondaryTimeframe models.Timeframe
}

// Analyzer тянет свечи двух таймфреймов и прогоняет их через Confluence.
type Analyzer struct {
	conf    *Confluence
	fetcher Fetcher
	cfg     AnalyzerConfig
}

func NewAnalyzer(conf *Confluence, fetcher Fetcher, cfg AnalyzerConfig) *Analyzer {
	if cfg.PrimaryBars < conf.cfg.MinBars() {
		cfg.PrimaryBars = conf.cfg.MinBars()
	}
	return &Analyzer{conf: conf, fetcher: fetcher, cfg: cfg}
}

// Analyze: ошибка основного ряда -> ErrInsufficientData, ошибка старшего — подтверждение проходит.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (res Result, err error) {
	span, ctx := tracing.StartSpan(ctx, "strategy.Analyze", map[string]any{"symbol": symbol})
	defer func() { tracing.Finish(span, err) }()

	primary, err := a.fetcher.Fetch(ctx, symbol, a.conf.cfg.Timeframe, a.cfg.PrimaryBars)
	if err == nil {
		err = primary.Validate()
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s: %v: %w", symbol, err, ErrInsufficientData)
	}

	var secondary *models.Series
	if a.conf.cfg.SecondaryConfirm && a.cfg.SecondaryTimeframe.Valid() {
		s, err := a.fetcher.Fetch(ctx, symbol, a.cfg.SecondaryTimeframe, a.cfg.SecondaryBars)
		switch {
		case err != nil:
			logger.Warn("[EVAL] %s secondary %s unavailable: %v", symbol, a.cfg.SecondaryTimeframe, err)
		case s.Validate() != nil:
			logger.Warn("[EVAL] %s secondary %s unordered, skipped", symbol, a.cfg.SecondaryTimeframe)
		default:
			secondary = &s
		}
	}

	res, err = a.conf.Evaluate(primary, secondary)
	if err != nil {
		return Result{}, err
	}
	span.SetTag("direction", string(res.Direction))
	return res, nil
}

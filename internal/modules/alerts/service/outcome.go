package service

import (
	"context"
	"math/rand/v2"
	"sync"

	"signal_bot/internal/models"
	market "signal_bot/internal/modules/market/service"
	"signal_bot/pkg/logger"
)

// Settler определяет исход сигнала на стадии результата.
type Settler interface {
	Settle(ctx context.Context, sig models.Signal, tl Timeline) models.Outcome
}

// Simulated — демо-режим: WIN с вероятностью confidence/100.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulated(rng *rand.Rand) *Simulated {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulated{rng: rng}
}

func (s *Simulated) Settle(_ context.Context, sig models.Signal, _ Timeline) models.Outcome {
	s.mu.Lock()
	p := s.rng.Float64()
	s.mu.Unlock()

	if p < float64(sig.Confidence)/100 {
		return models.OutcomeWin
	}
	return models.OutcomeLoss
}

// MarketSettler сравнивает open свечи входа с close последней свечи,
// закрывшейся к моменту результата. Нет данных или цена не изменилась — VOID.
type MarketSettler struct {
	fetcher market.Fetcher
}

func NewMarketSettler(fetcher market.Fetcher) *MarketSettler {
	return &MarketSettler{fetcher: fetcher}
}

func (m *MarketSettler) Settle(ctx context.Context, sig models.Signal, tl Timeline) models.Outcome {
	tf := sig.Timeframe
	if !tf.Valid() {
		tf = models.TimeframeM1
	}
	step := tf.Duration()
	bars := int(tl.Result.Sub(tl.Entry)/step) + 5

	s, err := m.fetcher.Fetch(ctx, sig.Symbol, tf, bars)
	if err != nil {
		logger.Warn("[RESULT] %s settle fetch %s: %v", sig.ID, sig.Symbol, err)
		return models.OutcomeVoid
	}

	var (
		entry, exit float64
		haveEntry   bool
		haveExit    bool
	)
	for _, b := range s.Bars {
		if b.Time.Equal(tl.Entry) {
			entry, haveEntry = b.Open, true
		}
		if !b.Time.Before(tl.Entry) && !b.Time.Add(step).After(tl.Result) {
			exit, haveExit = b.Close, true
		}
	}
	if !haveEntry || !haveExit {
		return models.OutcomeVoid
	}
	return compare(sig.Direction, entry, exit)
}

func compare(dir models.Direction, entry, exit float64) models.Outcome {
	switch {
	case exit == entry:
		return models.OutcomeVoid
	case dir == models.DirectionBuy && exit > entry, dir == models.DirectionSell && exit < entry:
		return models.OutcomeWin
	case dir == models.DirectionNone:
		return models.OutcomeVoid
	default:
		return models.OutcomeLoss
	}
}

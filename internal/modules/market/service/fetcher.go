package service

import (
	"context"
	"errors"
	"time"

	"signal_bot/internal/models"
)

var ErrNoData = errors.New("no market data")

// Fetcher — контракт источника свечей: бары от старых к новым.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, tf models.Timeframe, bars int) (models.Series, error)
}

// Observer получает длительность каждого запроса к провайдеру.
type Observer interface {
	ObserveFetch(provider string, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, time.Duration, error) {}

func observe(o Observer, provider string, start time.Time, err error) {
	if o == nil {
		return
	}
	o.ObserveFetch(provider, time.Since(start), err)
}

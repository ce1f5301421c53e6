package service

import (
	"context"
	"strings"

	"signal_bot/internal/models"
)

// Router выбирает провайдера по виду символа: BTC-USDT уходит в OKX, остальное в TwelveData.
type Router struct {
	primary Fetcher
	okx     Fetcher
}

var _ Fetcher = (*Router)(nil)

func NewRouter(primary, okx Fetcher) *Router {
	return &Router{primary: primary, okx: okx}
}

func (r *Router) Fetch(ctx context.Context, symbol string, tf models.Timeframe, bars int) (models.Series, error) {
	if r.okx != nil && IsOKXSymbol(symbol) {
		return r.okx.Fetch(ctx, symbol, tf, bars)
	}
	return r.primary.Fetch(ctx, symbol, tf, bars)
}

func IsOKXSymbol(symbol string) bool {
	return strings.Contains(symbol, "-")
}

package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"signal_bot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const okxProvider = "okx"

// okxBar переводит таймфрейм в формат параметра bar у OKX.
func okxBar(tf models.Timeframe) (string, error) {
	switch tf {
	case models.TimeframeM1:
		return "1m", nil
	case models.TimeframeM5:
		return "5m", nil
	case models.TimeframeM15:
		return "15m", nil
	case models.TimeframeM30:
		return "30m", nil
	case models.TimeframeH1:
		return "1H", nil
	case models.TimeframeH4:
		return "4H", nil
	default:
		return "", errors.Errorf("unsupported timeframe %q", tf)
	}
}

type OKXConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OKX — публичные свечи OKX для инструментов вида BTC-USDT.
type OKX struct {
	cfg      OKXConfig
	http     *http.Client
	observer Observer
}

var _ Fetcher = (*OKX)(nil)

func NewOKX(cfg OKXConfig, observer Observer) *OKX {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.okx.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &OKX{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		observer: observer,
	}
}

// Fetch: строка данных OKX: [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
func (c *OKX) Fetch(ctx context.Context, instID string, tf models.Timeframe, limit int) (series models.Series, err error) {
	start := time.Now()
	defer func() {
		observe(c.observer, okxProvider, start, err)
		if err != nil {
			err = fmt.Errorf("okx.Fetch %s %s: %w", instID, tf, err)
		}
	}()

	if limit <= 0 {
		limit = 100
	}
	// больше 300 за раз OKX не отдаёт
	if limit > 300 {
		limit = 300
	}
	bar, err := okxBar(tf)
	if err != nil {
		return models.Series{}, err
	}

	u := fmt.Sprintf("%s/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.QueryEscape(instID), url.QueryEscape(bar), limit,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Series{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.Series{}, err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.Series{}, errors.Errorf("http %d: %s", resp.StatusCode, string(b))
	}

	return parseOKXCandles(b, instID, tf)
}

func parseOKXCandles(b []byte, instID string, tf models.Timeframe) (models.Series, error) {
	var r struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	if err := sonic.Unmarshal(b, &r); err != nil {
		return models.Series{}, errors.Wrap(err, "decode")
	}
	if r.Code != "0" {
		return models.Series{}, errors.Errorf("okx candles error: code=%s msg=%s", r.Code, r.Msg)
	}

	// OKX отдаёт newest-first → разворачиваем
	out := models.Series{Symbol: instID, Timeframe: tf, Bars: make([]models.Bar, 0, len(r.Data))}
	for i := len(r.Data) - 1; i >= 0; i-- {
		row := r.Data[i]
		if len(row) < 5 {
			continue
		}

		tsMs, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closep, _ := strconv.ParseFloat(row[4], 64)
		if closep <= 0 {
			continue
		}

		var vol float64
		if len(row) >= 6 {
			vol, _ = strconv.ParseFloat(row[5], 64)
		}

		out.Bars = append(out.Bars, models.Bar{
			Time:   time.UnixMilli(tsMs).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closep,
			Volume: vol,
		})
	}

	if len(out.Bars) == 0 {
		return models.Series{}, ErrNoData
	}
	if err := out.Validate(); err != nil {
		return models.Series{}, err
	}
	return out, nil
}

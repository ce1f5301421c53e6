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

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	twelveDataProvider = "twelvedata"
	twelveTimeLayout   = "2006-01-02 15:04:05"
	twelveDateLayout   = "2006-01-02"
)

var twelveIntervals = map[models.Timeframe]string{
	models.TimeframeM1:  "1min",
	models.TimeframeM5:  "5min",
	models.TimeframeM15: "15min",
	models.TimeframeM30: "30min",
	models.TimeframeH1:  "1h",
	models.TimeframeH4:  "4h",
}

type TwelveDataConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// TwelveData — клиент time_series для форекса, металлов, крипты и акций.
type TwelveData struct {
	cfg      TwelveDataConfig
	http     *http.Client
	observer Observer
}

var _ Fetcher = (*TwelveData)(nil)

func NewTwelveData(cfg TwelveDataConfig, observer Observer) *TwelveData {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &TwelveData{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		observer: observer,
	}
}

func (c *TwelveData) Fetch(ctx context.Context, symbol string, tf models.Timeframe, bars int) (series models.Series, err error) {
	start := time.Now()
	defer func() {
		observe(c.observer, twelveDataProvider, start, err)
		if err != nil {
			err = fmt.Errorf("twelvedata.Fetch %s %s: %w", symbol, tf, err)
		}
	}()

	interval, ok := twelveIntervals[tf]
	if !ok {
		return models.Series{}, errors.Errorf("unsupported timeframe %q", tf)
	}
	if bars <= 0 {
		bars = 100
	}

	params := url.Values{}
	// провайдер принимает пары без слеша
	params.Set("symbol", strings.ReplaceAll(symbol, "/", ""))
	params.Set("interval", interval)
	params.Set("outputsize", strconv.Itoa(bars))
	params.Set("apikey", c.cfg.APIKey)
	params.Set("format", "JSON")
	params.Set("timezone", "UTC")

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/time_series?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Series{}, errors.Wrap(err, "new request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Series{}, errors.Wrap(err, "do")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Series{}, errors.Wrap(err, "read body")
	}
	if resp.StatusCode/100 != 2 {
		return models.Series{}, errors.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	return parseTwelveData(body, symbol, tf)
}

// parseTwelveData разбирает ответ time_series. Провайдер отдаёт newest-first.
func parseTwelveData(body []byte, symbol string, tf models.Timeframe) (models.Series, error) {
	if !gjson.ValidBytes(body) {
		return models.Series{}, errors.New("invalid json")
	}
	if gjson.GetBytes(body, "status").String() == "error" {
		return models.Series{}, errors.Errorf("provider error %d: %s",
			gjson.GetBytes(body, "code").Int(), gjson.GetBytes(body, "message").String())
	}

	values := gjson.GetBytes(body, "values").Array()
	if len(values) == 0 {
		return models.Series{}, ErrNoData
	}

	out := models.Series{Symbol: symbol, Timeframe: tf, Bars: make([]models.Bar, 0, len(values))}
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		ts, err := parseTwelveTime(v.Get("datetime").String())
		if err != nil {
			return models.Series{}, err
		}

		var bar models.Bar
		bar.Time = ts
		if bar.Open, err = parseNumber(v, "open"); err != nil {
			return models.Series{}, err
		}
		if bar.High, err = parseNumber(v, "high"); err != nil {
			return models.Series{}, err
		}
		if bar.Low, err = parseNumber(v, "low"); err != nil {
			return models.Series{}, err
		}
		if bar.Close, err = parseNumber(v, "close"); err != nil {
			return models.Series{}, err
		}
		// объёма у форекса нет
		bar.Volume = v.Get("volume").Float()

		out.Bars = append(out.Bars, bar)
	}

	if err := out.Validate(); err != nil {
		return models.Series{}, err
	}
	return out, nil
}

func parseTwelveTime(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(twelveTimeLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(twelveDateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse datetime %q", raw)
	}
	return t, nil
}

func parseNumber(v gjson.Result, field string) (float64, error) {
	raw := v.Get(field)
	if !raw.Exists() {
		return 0, errors.Errorf("missing %s", field)
	}
	f, err := strconv.ParseFloat(raw.String(), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", field)
	}
	return f, nil
}

package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"signal_bot/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

const twelveBody = `{
  "meta": {"symbol": "EUR/USD", "interval": "1min"},
  "values": [
    {"datetime": "2024-05-06 09:02:00", "open": "1.0760", "high": "1.0765", "low": "1.0758", "close": "1.0763"},
    {"datetime": "2024-05-06 09:01:00", "open": "1.0755", "high": "1.0761", "low": "1.0754", "close": "1.0760"},
    {"datetime": "2024-05-06 09:00:00", "open": "1.0750", "high": "1.0756", "low": "1.0749", "close": "1.0755"}
  ],
  "status": "ok"
}`

func TestTwelveDataFetch(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(twelveBody))
	}))
	defer srv.Close()

	c := NewTwelveData(TwelveDataConfig{BaseURL: srv.URL, APIKey: "k"}, nil)
	s, err := c.Fetch(context.Background(), "EUR/USD", models.TimeframeM1, 3)
	assert.NoError(t, err)

	assert.Equal(t, got.URL.Path, "/time_series")
	q := got.URL.Query()
	assert.Equal(t, q.Get("symbol"), "EURUSD")
	assert.Equal(t, q.Get("interval"), "1min")
	assert.Equal(t, q.Get("outputsize"), "3")
	assert.Equal(t, q.Get("timezone"), "UTC")
	assert.Equal(t, q.Get("apikey"), "k")

	assert.Equal(t, s.Len(), 3)
	assert.Equal(t, s.Symbol, "EUR/USD")
	assert.Equal(t, s.Bars[0].Time, time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, s.Bars[2].Close, 1.0763)
	assert.NoError(t, s.Validate())
}

func TestTwelveDataProviderError(t *testing.T) {
	_, err := parseTwelveData([]byte(`{"code":429,"message":"rate limit","status":"error"}`), "EUR/USD", models.TimeframeM1)
	assert.Error(t, err)

	_, err = parseTwelveData([]byte(`{"values":[],"status":"ok"}`), "EUR/USD", models.TimeframeM1)
	assert.True(t, errors.Is(err, ErrNoData))

	_, err = parseTwelveData([]byte(`{"values":[{"datetime":"2024-05-06 09:00:00","open":"x","high":"1","low":"1","close":"1"}]}`), "EUR/USD", models.TimeframeM1)
	assert.Error(t, err)
}

func TestTwelveDataHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewTwelveData(TwelveDataConfig{BaseURL: srv.URL}, obs)
	_, err := c.Fetch(context.Background(), "EUR/USD", models.TimeframeM5, 10)
	assert.Error(t, err)
	assert.Equal(t, obs.errs, 1)
}

func TestOKXParse(t *testing.T) {
	body := `{"code":"0","msg":"","data":[
		["1714986120000","64010","64020","64000","64015","12","0","0","1"],
		["1714986060000","64000","64012","63990","64010","10","0","0","1"]
	]}`
	s, err := parseOKXCandles([]byte(body), "BTC-USDT", models.TimeframeM1)
	assert.NoError(t, err)
	assert.Equal(t, s.Len(), 2)
	assert.Equal(t, s.Bars[0].Close, 64010.0)
	assert.True(t, s.Bars[1].Time.After(s.Bars[0].Time))

	_, err = parseOKXCandles([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`), "X-Y", models.TimeframeM1)
	assert.Error(t, err)

	_, err = parseOKXCandles([]byte(`{"code":"0","data":[]}`), "BTC-USDT", models.TimeframeM1)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestOKXBar(t *testing.T) {
	b, err := okxBar(models.TimeframeH4)
	assert.NoError(t, err)
	assert.Equal(t, b, "4H")

	_, err = okxBar("W1")
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	td := &countingFetcher{}
	okx := &countingFetcher{}
	r := NewRouter(td, okx)

	_, _ = r.Fetch(context.Background(), "EUR/USD", models.TimeframeM1, 10)
	_, _ = r.Fetch(context.Background(), "BTC-USDT", models.TimeframeM1, 10)
	_, _ = r.Fetch(context.Background(), "AAPL", models.TimeframeM1, 10)

	assert.Equal(t, td.symbols, []string{"EUR/USD", "AAPL"})
	assert.Equal(t, okx.symbols, []string{"BTC-USDT"})
}

func TestCached(t *testing.T) {
	next := &countingFetcher{}
	store := newMemStore()
	c := NewCached(next, store, time.Minute)

	a, err := c.Fetch(context.Background(), "EUR/USD", models.TimeframeM1, 2)
	assert.NoError(t, err)
	b, err := c.Fetch(context.Background(), "EUR/USD", models.TimeframeM1, 2)
	assert.NoError(t, err)

	assert.Equal(t, len(next.symbols), 1)
	assert.Equal(t, "", cmp.Diff(a, b))
	_, ok := store.data["ohlc:EUR/USD:M1:2"]
	assert.True(t, ok)

	// ошибки хранилища не ломают запрос
	store.fail = true
	_, err = c.Fetch(context.Background(), "GBP/USD", models.TimeframeM1, 2)
	assert.NoError(t, err)
	assert.Equal(t, len(next.symbols), 2)
}

type recordingObserver struct {
	mu   sync.Mutex
	errs int
}

func (o *recordingObserver) ObserveFetch(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errs++
	}
}

type countingFetcher struct {
	symbols []string
}

func (f *countingFetcher) Fetch(_ context.Context, symbol string, tf models.Timeframe, bars int) (models.Series, error) {
	f.symbols = append(f.symbols, symbol)
	s := models.Series{Symbol: symbol, Timeframe: tf}
	for i := 0; i < bars; i++ {
		s.Bars = append(s.Bars, models.Bar{
			Time:  time.Date(2024, 5, 6, 9, i, 0, 0, time.UTC),
			Open:  1,
			High:  1.1,
			Low:   0.9,
			Close: 1,
		})
	}
	return s, nil
}

type memStore struct {
	data map[string][]byte
	fail bool
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	if m.fail {
		return nil, false, errors.New("connection refused")
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memStore) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.fail {
		return errors.New("connection refused")
	}
	m.data[key] = value
	return nil
}

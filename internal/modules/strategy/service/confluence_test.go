package service

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"signal_bot/internal/models"

	"github.com/peterldowns/testy/assert"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

// geometric — ряд с постоянным темпом роста (r > 1) или падения (r < 1).
func geometric(n int, start, r float64, tf models.Timeframe) models.Series {
	s := models.Series{Symbol: "EUR/USD", Timeframe: tf, Bars: make([]models.Bar, n)}
	price := start
	for i := range s.Bars {
		s.Bars[i] = models.Bar{
			Time:  t0.Add(time.Duration(i) * tf.Duration()),
			Open:  price,
			High:  price * 1.001,
			Low:   price * 0.999,
			Close: price,
		}
		price *= r
	}
	return s
}

// accelDecline — падение с ускорением: p = 300 - 100*1.005^i.
func accelDecline(n int, tf models.Timeframe) models.Series {
	s := models.Series{Symbol: "XAU/USD", Timeframe: tf, Bars: make([]models.Bar, n)}
	for i := range s.Bars {
		price := 300 - 100*math.Pow(1.005, float64(i))
		s.Bars[i] = models.Bar{
			Time:  t0.Add(time.Duration(i) * tf.Duration()),
			Open:  price,
			High:  price * 1.001,
			Low:   price * 0.999,
			Close: price,
		}
	}
	return s
}

func newTestConfluence(seed uint64) *Confluence {
	return NewConfluence(DefaultConfig(), rand.New(rand.NewPCG(seed, seed)))
}

func TestEvaluateInsufficientData(t *testing.T) {
	c := newTestConfluence(1)
	need := c.Config().MinBars()
	assert.Equal(t, need, 35)

	for _, n := range []int{0, 1, 20, need - 1} {
		_, err := c.Evaluate(geometric(n, 100, 1.002, models.TimeframeM1), nil)
		assert.True(t, errors.Is(err, ErrInsufficientData))
	}

	_, err := c.Evaluate(geometric(need, 100, 1.002, models.TimeframeM1), nil)
	assert.NoError(t, err)
}

func TestEvaluateBuyWithSecondaryAgreement(t *testing.T) {
	c := newTestConfluence(1)
	primary := geometric(120, 100, 1.002, models.TimeframeM1)
	agree := geometric(120, 100, 1.002, models.TimeframeM5)

	res, err := c.Evaluate(primary, &agree)
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionBuy)
	assert.Equal(t, res.BullVotes, 4)
	assert.Equal(t, res.BearVotes, 1)
	assert.Equal(t, res.Confirmations, 4)
	assert.True(t, res.SecondaryOK)
	assert.Equal(t, res.Reasons, []string{ReasonEMABull, ReasonMACDBull, ReasonPSARBull})
	assert.True(t, res.Confidence >= 90 && res.Confidence <= 94)
	assert.Equal(t, res.Price, primary.Bars[119].Close)
}

func TestEvaluateNoneWithSecondaryDisagreement(t *testing.T) {
	c := newTestConfluence(1)
	primary := geometric(120, 100, 1.002, models.TimeframeM1)
	disagree := geometric(120, 100, 0.998, models.TimeframeM5)

	res, err := c.Evaluate(primary, &disagree)
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionNone)
	assert.Equal(t, res.BullVotes, 4)
	assert.False(t, res.SecondaryOK)
	assert.Equal(t, res.Confidence, 0)
}

func TestEvaluateSecondaryUnavailablePasses(t *testing.T) {
	c := newTestConfluence(1)
	primary := geometric(120, 100, 1.002, models.TimeframeM1)
	short := geometric(5, 100, 0.998, models.TimeframeM5)

	res, err := c.Evaluate(primary, &short)
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionBuy)

	res, err = c.Evaluate(primary, nil)
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionBuy)
}

func TestEvaluateSell(t *testing.T) {
	c := newTestConfluence(2)
	primary := accelDecline(120, models.TimeframeM1)
	agree := accelDecline(120, models.TimeframeM5)

	res, err := c.Evaluate(primary, &agree)
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionSell)
	assert.Equal(t, res.BearVotes, 4)
	assert.Equal(t, res.Reasons, []string{ReasonEMABear, ReasonMACDBear, ReasonPSARBear})
}

func TestEvaluateLowVolatilityRemovesVote(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinATRRatio = 1
	c := NewConfluence(cfg, rand.New(rand.NewPCG(3, 3)))
	primary := geometric(120, 100, 1.002, models.TimeframeM1)

	res, err := c.Evaluate(primary, nil)
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionBuy)
	assert.Equal(t, res.BullVotes, 3)
	assert.Equal(t, res.BearVotes, 0)
	assert.Equal(t, res.Reasons, []string{ReasonEMABull, ReasonMACDBull, ReasonPSARBull, ReasonLowATR})
	assert.True(t, res.Confidence >= 80 && res.Confidence <= 84)

	cfg.RequiredVotes = 4
	res, err = NewConfluence(cfg, nil).Evaluate(primary, nil)
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionNone)
}

func TestEvaluateDeterministicDecision(t *testing.T) {
	primary := geometric(150, 100, 1.0015, models.TimeframeM1)
	agree := geometric(150, 100, 1.0015, models.TimeframeM5)

	base, err := newTestConfluence(1).Evaluate(primary, &agree)
	assert.NoError(t, err)

	for seed := uint64(2); seed < 40; seed++ {
		res, err := newTestConfluence(seed).Evaluate(primary, &agree)
		assert.NoError(t, err)
		assert.Equal(t, res.Direction, base.Direction)
		assert.Equal(t, res.Confirmations, base.Confirmations)
		assert.Equal(t, res.Reasons, base.Reasons)
		assert.True(t, math.Abs(float64(res.Confidence-base.Confidence)) <= 4)
		assert.LessThanOrEqual(t, res.Confidence, 98)
	}
}

func TestConfidenceCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JitterMax = 0
	c := NewConfluence(cfg, nil)
	assert.Equal(t, c.confidence(3), 80)
	assert.Equal(t, c.confidence(5), 98)

	// джиттер только добавляет, значит каждый сигнал с RequiredVotes >= порога
	cfg.JitterMax = 4
	c = NewConfluence(cfg, rand.New(rand.NewPCG(3, 3)))
	floor := FloorConfidence(cfg.RequiredVotes, cfg.MaxConfidence)
	assert.Equal(t, floor, 80)
	for i := 0; i < 50; i++ {
		assert.True(t, c.confidence(cfg.RequiredVotes) >= floor)
	}
	assert.Equal(t, FloorConfidence(5, 98), 98)
}

func TestSnapshotMarshalUsesNull(t *testing.T) {
	c := newTestConfluence(1)
	res, err := c.Evaluate(geometric(60, 100, 1.002, models.TimeframeM1), nil)
	assert.NoError(t, err)

	b := res.Snapshot.Marshal()
	assert.NotNil(t, b)
	assert.True(t, strings.Contains(string(b), `"secondary_ema_fast":null`))
}

type fakeFetcher struct {
	series map[models.Timeframe]models.Series
	errs   map[models.Timeframe]error
	calls  []models.Timeframe
}

func (f *fakeFetcher) Fetch(_ context.Context, symbol string, tf models.Timeframe, bars int) (models.Series, error) {
	f.calls = append(f.calls, tf)
	if err := f.errs[tf]; err != nil {
		return models.Series{}, err
	}
	return f.series[tf], nil
}

func TestAnalyzer(t *testing.T) {
	f := &fakeFetcher{
		series: map[models.Timeframe]models.Series{
			models.TimeframeM1: geometric(120, 100, 1.002, models.TimeframeM1),
			models.TimeframeM5: geometric(120, 100, 0.998, models.TimeframeM5),
		},
		errs: map[models.Timeframe]error{},
	}
	a := NewAnalyzer(newTestConfluence(1), f, AnalyzerConfig{
		PrimaryBars:        250,
		SecondaryBars:      120,
		SecondaryTimeframe: models.TimeframeM5,
	})

	res, err := a.Analyze(context.Background(), "EUR/USD")
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionNone)
	assert.Equal(t, f.calls, []models.Timeframe{models.TimeframeM1, models.TimeframeM5})

	// ошибка старшего ТФ — подтверждение проходит
	f.errs[models.TimeframeM5] = errors.New("rate limited")
	res, err = a.Analyze(context.Background(), "EUR/USD")
	assert.NoError(t, err)
	assert.Equal(t, res.Direction, models.DirectionBuy)

	f.errs[models.TimeframeM1] = errors.New("timeout")
	_, err = a.Analyze(context.Background(), "EUR/USD")
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

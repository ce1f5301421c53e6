package service

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

var ErrInsufficientData = errors.New("insufficient data")

const (
	ReasonEMABull  = "EMA fast>slow"
	ReasonMACDBull = "MACD hist rising"
	ReasonRSIBull  = "RSI rising from low"
	ReasonPSARBull = "PSAR below price"
	ReasonLowATR   = "Low ATR"
	ReasonEMABear  = "EMA fast<slow"
	ReasonMACDBear = "MACD hist falling"
	ReasonRSIBear  = "RSI dropping"
	ReasonPSARBear = "PSAR above price"
)

type Config struct {
	Timeframe        models.Timeframe
	SecondaryConfirm bool

	EMAFast, EMASlow               int
	MACDFast, MACDSlow, MACDSignal int
	RSIPeriod                      int
	RSIBuyBelow, RSISellAbove      float64
	ATRPeriod                      int
	MinATRRatio                    float64
	PSARStep, PSARMax              float64

	RequiredVotes int
	MaxConfidence int
	JitterMax     int
}

func DefaultConfig() Config {
	return Config{
		Timeframe:        models.TimeframeM1,
		SecondaryConfirm: true,
		EMAFast:          9,
		EMASlow:          21,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		RSIPeriod:        14,
		RSIBuyBelow:      40,
		RSISellAbove:     60,
		ATRPeriod:        14,
		MinATRRatio:      0.0003,
		PSARStep:         0.02,
		PSARMax:          0.2,
		RequiredVotes:    3,
		MaxConfidence:    98,
		JitterMax:        4,
	}
}

// MinBars — самый длинный прогрев плюс один бар для предыдущего значения.
func (c Config) MinBars() int {
	return max(c.EMASlow, c.EMAFast, c.RSIPeriod+1, c.MACDSlow+c.MACDSignal-1, c.ATRPeriod+1) + 1
}

// Result — итог одной оценки, после возврата не меняется.
type Result struct {
	Direction     models.Direction
	Confidence    int
	Confirmations int
	BullVotes     int
	BearVotes     int
	Reasons       []string
	Price         float64
	SecondaryOK   bool
	Snapshot      Snapshot
}

// Confluence — детерминированное голосование индикаторов.
// Случайна только добавка к confidence, и она считается после решения.
type Confluence struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

func NewConfluence(cfg Config, rng *rand.Rand) *Confluence {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	return &Confluence{cfg: cfg, rng: rng}
}

func (c *Confluence) Config() Config { return c.cfg }

// Evaluate оценивает основной ряд; secondary может быть nil.
func (c *Confluence) Evaluate(primary models.Series, secondary *models.Series) (Result, error) {
	if primary.Len() < c.cfg.MinBars() {
		return Result{}, fmt.Errorf("%s: %d bars, need %d: %w", primary.Symbol, primary.Len(), c.cfg.MinBars(), ErrInsufficientData)
	}

	snap := c.snapshot(primary)
	res := Result{
		Price:       snap.Close,
		SecondaryOK: true,
	}

	emaBull := snap.EMAFast.OK && snap.EMASlow.OK && snap.EMAFast.V > snap.EMASlow.V
	emaBear := snap.EMAFast.OK && snap.EMASlow.OK && snap.EMAFast.V < snap.EMASlow.V

	histOK := snap.MACDHist.OK && snap.MACDHistPrv.OK
	macdBull := histOK && snap.MACDHist.V > 0 && snap.MACDHist.V > snap.MACDHistPrv.V
	macdBear := histOK && snap.MACDHist.V < 0 && snap.MACDHist.V < snap.MACDHistPrv.V

	rsiOK := snap.RSI.OK && snap.RSIPrev.OK
	rsiBull := rsiOK && snap.RSI.V < c.cfg.RSIBuyBelow && snap.RSI.V > snap.RSIPrev.V
	rsiBear := rsiOK && snap.RSI.V > c.cfg.RSISellAbove && snap.RSI.V < snap.RSIPrev.V

	psarBull := snap.PSAR.OK && snap.PSAR.V < snap.Close
	psarBear := snap.PSAR.OK && snap.PSAR.V > snap.Close

	// низкая волатильность не блокирует, но снимает по голосу с обеих сторон
	volatile := true
	if snap.ATR.OK && snap.Close > 0 && snap.ATR.V/snap.Close < c.cfg.MinATRRatio {
		volatile = false
	}

	res.BullVotes = count(emaBull, macdBull, rsiBull, psarBull, volatile)
	res.BearVotes = count(emaBear, macdBear, rsiBear, psarBear, volatile)
	res.Confirmations = max(res.BullVotes, res.BearVotes)

	res.Reasons = reasons([]rule{
		{emaBull, ReasonEMABull},
		{macdBull, ReasonMACDBull},
		{rsiBull, ReasonRSIBull},
		{psarBull, ReasonPSARBull},
		{!volatile, ReasonLowATR},
		{emaBear, ReasonEMABear},
		{macdBear, ReasonMACDBear},
		{rsiBear, ReasonRSIBear},
		{psarBear, ReasonPSARBear},
	})

	lean := models.DirectionNone
	switch {
	case res.BullVotes > res.BearVotes:
		lean = models.DirectionBuy
	case res.BearVotes > res.BullVotes:
		lean = models.DirectionSell
	}

	if c.cfg.SecondaryConfirm && secondary != nil {
		fast, _ := indicator.Last(indicator.EMA(secondary.Closes(), c.cfg.EMAFast))
		slow, _ := indicator.Last(indicator.EMA(secondary.Closes(), c.cfg.EMASlow))
		snap.SecondaryEMAFast, snap.SecondaryEMASlow = fast, slow
		// нет данных старшего ТФ — подтверждение считаем пройденным
		if fast.OK && slow.OK {
			switch lean {
			case models.DirectionBuy:
				res.SecondaryOK = fast.V > slow.V
			case models.DirectionSell:
				res.SecondaryOK = fast.V < slow.V
			}
		}
	}
	res.Snapshot = snap

	res.Direction = models.DirectionNone
	switch {
	case lean == models.DirectionBuy && res.BullVotes >= c.cfg.RequiredVotes && res.SecondaryOK:
		res.Direction = models.DirectionBuy
	case lean == models.DirectionSell && res.BearVotes >= c.cfg.RequiredVotes && res.SecondaryOK:
		res.Direction = models.DirectionSell
	}

	if res.Direction != models.DirectionNone {
		res.Confidence = c.confidence(res.Confirmations)
	}
	return res, nil
}

func (c *Confluence) snapshot(s models.Series) Snapshot {
	closes, highs, lows := s.Closes(), s.Highs(), s.Lows()
	last, _ := s.Last()

	var snap Snapshot
	snap.Close = last.Close
	snap.EMAFast, _ = indicator.Last(indicator.EMA(closes, c.cfg.EMAFast))
	snap.EMASlow, _ = indicator.Last(indicator.EMA(closes, c.cfg.EMASlow))

	m := indicator.MACD(closes, c.cfg.MACDFast, c.cfg.MACDSlow, c.cfg.MACDSignal)
	snap.MACD, _ = indicator.Last(m.Line)
	snap.MACDSignal, _ = indicator.Last(m.Signal)
	snap.MACDHist, snap.MACDHistPrv = indicator.Last(m.Histogram)

	snap.RSI, snap.RSIPrev = indicator.Last(indicator.RSI(closes, c.cfg.RSIPeriod))
	snap.ATR, _ = indicator.Last(indicator.ATR(highs, lows, closes, c.cfg.ATRPeriod))
	snap.PSAR, _ = indicator.Last(indicator.PSAR(highs, lows, c.cfg.PSARStep, c.cfg.PSARMax))
	return snap
}

// confidence = min(max, 50 + 10*votes + jitter).
func (c *Confluence) confidence(votes int) int {
	jitter := 0
	if c.cfg.JitterMax > 0 {
		c.mu.Lock()
		jitter = c.rng.IntN(c.cfg.JitterMax + 1)
		c.mu.Unlock()
	}
	return min(c.cfg.MaxConfidence, BaseConfidence+votes*VoteWeight+jitter)
}

const (
	BaseConfidence = 50
	VoteWeight     = 10
)

// FloorConfidence — confidence сигнала с минимально достаточным числом голосов
// без джиттера. Порог отбора не выше этого значения, иначе судьбу сигнала решает джиттер.
func FloorConfidence(requiredVotes, maxConfidence int) int {
	return min(maxConfidence, BaseConfidence+requiredVotes*VoteWeight)
}

func count(votes ...bool) int {
	n := 0
	for _, v := range votes {
		if v {
			n++
		}
	}
	return n
}

type rule struct {
	hit    bool
	reason string
}

func reasons(rules []rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.hit {
			out = append(out, r.reason)
		}
	}
	return out
}

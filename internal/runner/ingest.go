package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

var ErrInvalidSignal = errors.New("invalid webhook signal")

// Inbound — внешний сигнал (TradingView и т.п.), минует Confluence.
type Inbound struct {
	SignalID   string
	Symbol     string
	Direction  string
	Confidence int
	Analysis   string
	Timeframe  string
	Price      float64
}

// Ingestor превращает внешний сигнал в models.Signal и ставит его в планировщик.
type Ingestor struct {
	sched   Scheduler
	journal Journal
	now     func() time.Time
	newID   func() string
}

func NewIngestor(sched Scheduler, journal Journal) *Ingestor {
	return &Ingestor{
		sched:   sched,
		journal: journal,
		now:     time.Now,
		newID:   NewSignalID,
	}
}

func (i *Ingestor) Ingest(ctx context.Context, in Inbound) (sig models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("runner.Ingest: %w", err)
		}
	}()

	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		return sig, fmt.Errorf("%w: empty symbol", ErrInvalidSignal)
	}
	dir := models.ParseDirection(in.Direction)
	if dir == models.DirectionNone {
		return sig, fmt.Errorf("%w: direction %q", ErrInvalidSignal, in.Direction)
	}
	tf := models.TimeframeM1
	if in.Timeframe != "" {
		if tf, err = helper.ParseTimeframe(in.Timeframe); err != nil {
			return sig, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
		}
	}

	id := strings.TrimSpace(in.SignalID)
	if id == "" {
		id = i.newID()
	}
	sig = models.Signal{
		ID:         id,
		Symbol:     symbol,
		Direction:  dir,
		Confidence: clamp(in.Confidence, 0, 100),
		Analysis:   strings.TrimSpace(in.Analysis),
		Timeframe:  tf,
		Price:      in.Price,
		Origin:     models.OriginWebhook,
		CreatedAt:  i.now(),
	}

	if _, err = i.sched.Schedule(sig); err != nil {
		return sig, err
	}
	if jerr := i.journal.Record(ctx, sig); jerr != nil {
		logger.Error("runner: journal webhook %s: %v", sig.ID, jerr)
	}
	logger.Info("runner: webhook signal %s %s %s accepted", sig.ID, sig.Symbol, sig.Direction)
	return sig, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

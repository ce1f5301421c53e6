package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"signal_bot/internal/models"
	alerts "signal_bot/internal/modules/alerts/service"

	"github.com/peterldowns/testy/assert"
)

func TestIngestBuildsWebhookSignal(t *testing.T) {
	sched := &fakeScheduler{}
	journal := &fakeJournal{}
	in := NewIngestor(sched, journal)

	sig, err := in.Ingest(context.Background(), Inbound{
		SignalID:   "TV-1",
		Symbol:     " EUR/USD ",
		Direction:  "buy",
		Confidence: 140,
		Analysis:   "breakout",
	})
	assert.NoError(t, err)
	assert.Equal(t, sig.ID, "TV-1")
	assert.Equal(t, sig.Symbol, "EUR/USD")
	assert.Equal(t, sig.Direction, models.DirectionBuy)
	assert.Equal(t, sig.Confidence, 100)
	assert.Equal(t, sig.Origin, models.OriginWebhook)
	assert.Equal(t, sig.Timeframe, models.TimeframeM1)
	assert.Equal(t, sig.Text(), "breakout")
	assert.Equal(t, len(sched.sigs), 1)
	assert.Equal(t, journal.ids, []string{"TV-1"})
}

func TestIngestGeneratesID(t *testing.T) {
	in := NewIngestor(&fakeScheduler{}, &fakeJournal{})
	sig, err := in.Ingest(context.Background(), Inbound{Symbol: "BTC-USDT", Direction: "SELL", Timeframe: "5m"})
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig.ID, "LX-"))
	assert.Equal(t, sig.Timeframe, models.TimeframeM5)
	assert.Equal(t, sig.Text(), "No confluence")
}

func TestIngestRejects(t *testing.T) {
	in := NewIngestor(&fakeScheduler{}, &fakeJournal{})
	ctx := context.Background()

	for _, bad := range []Inbound{
		{Direction: "BUY"},
		{Symbol: "EUR/USD", Direction: "hold"},
		{Symbol: "EUR/USD", Direction: "BUY", Timeframe: "7m"},
	} {
		_, err := in.Ingest(ctx, bad)
		assert.True(t, errors.Is(err, ErrInvalidSignal))
	}

	sched := &fakeScheduler{err: alerts.ErrDuplicate}
	journal := &fakeJournal{}
	in = NewIngestor(sched, journal)
	_, err := in.Ingest(ctx, Inbound{SignalID: "X", Symbol: "EUR/USD", Direction: "BUY"})
	assert.True(t, errors.Is(err, alerts.ErrDuplicate))
	assert.Equal(t, len(journal.ids), 0)
}

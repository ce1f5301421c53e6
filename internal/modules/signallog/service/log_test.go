package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"signal_bot/internal/models"

	"github.com/peterldowns/testy/assert"
)

var created = time.Date(2024, 5, 6, 9, 0, 10, 0, time.UTC)

func signal(id string) models.Signal {
	return models.Signal{
		ID:            id,
		Symbol:        "EUR/USD",
		Direction:     models.DirectionBuy,
		Confidence:    84,
		Confirmations: 4,
		Reasons:       []string{"EMA9>EMA21", "PSAR below"},
		Price:         1.0763,
		Origin:        models.OriginEvaluator,
		CreatedAt:     created,
		Snapshot:      []byte(`{"rsi":55.1,"secondary_ema_fast":null}`),
	}
}

type memSink struct {
	mu       sync.Mutex
	appended []models.LogEntry
	outcomes []models.LogEntry
}

func (m *memSink) Append(_ context.Context, e models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, e)
	return nil
}

func (m *memSink) Outcome(_ context.Context, e models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, e)
	return nil
}

func (m *memSink) Close() error { return nil }

func TestLogRecordAndOutcomeOnce(t *testing.T) {
	sink := &memSink{}
	l := NewLog(nil, sink)
	ctx := context.Background()

	assert.NoError(t, l.Record(ctx, signal("LX-00000001")))
	assert.Error(t, l.Record(ctx, signal("LX-00000001")))
	assert.Equal(t, l.Pending(), 1)

	at := created.Add(3 * time.Minute)
	assert.NoError(t, l.RecordOutcome(ctx, "LX-00000001", models.OutcomeWin, at))
	err := l.RecordOutcome(ctx, "LX-00000001", models.OutcomeLoss, at)
	assert.True(t, errors.Is(err, ErrUnknownSignal))

	assert.Equal(t, len(sink.appended), 1)
	assert.Equal(t, len(sink.outcomes), 1)
	assert.Equal(t, sink.outcomes[0].Result, models.OutcomeWin)
	assert.Equal(t, sink.outcomes[0].Reasons, "EMA9>EMA21; PSAR below")
	assert.Equal(t, l.Pending(), 0)
}

func TestLogConcurrentWriters(t *testing.T) {
	sink := &memSink{}
	l := NewLog(nil, sink)
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("LX-%08d", i)
		assert.NoError(t, l.Record(ctx, signal(id)))
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Record(ctx, signal(id+"-next"))
		}()
		go func() {
			defer wg.Done()
			_ = l.RecordOutcome(ctx, id, models.OutcomeLoss, created)
		}()
	}
	wg.Wait()

	assert.Equal(t, len(sink.appended), 2*n)
	assert.Equal(t, len(sink.outcomes), n)
	assert.Equal(t, l.Pending(), n)
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "signals.csv")
	wat := time.FixedZone("WAT", 3600)

	sink, err := NewCSV(path, wat)
	assert.NoError(t, err)
	l := NewLog(nil, sink)
	ctx := context.Background()

	assert.NoError(t, l.Record(ctx, signal("LX-CSV00001")))
	assert.NoError(t, l.RecordOutcome(ctx, "LX-CSV00001", models.OutcomeWin, created.Add(3*time.Minute)))
	assert.NoError(t, l.Close())

	// повторное открытие не дублирует заголовок
	sink, err = NewCSV(path, wat)
	assert.NoError(t, err)
	assert.NoError(t, sink.Close())

	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	assert.NoError(t, err)

	assert.Equal(t, len(rows), 3)
	assert.Equal(t, rows[0], csvHeader)
	assert.Equal(t, rows[1][0], "LX-CSV00001")
	assert.Equal(t, rows[1][1], "2024-05-06 10:00:10")
	assert.Equal(t, rows[1][4], "BUY")
	assert.Equal(t, rows[1][9], `{"rsi":55.1,"secondary_ema_fast":null}`)
	assert.Equal(t, rows[1][10], "")
	assert.Equal(t, rows[2][10], "WIN")
	assert.Equal(t, rows[2][11], "2024-05-06 10:03:10")
}

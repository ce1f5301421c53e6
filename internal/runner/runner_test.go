package runner

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"signal_bot/internal/models"
	alerts "signal_bot/internal/modules/alerts/service"
	strategy "signal_bot/internal/modules/strategy/service"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

type fakeAnalyzer struct {
	res     strategy.Result
	err     error
	symbols []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symbol string) (strategy.Result, error) {
	f.symbols = append(f.symbols, symbol)
	return f.res, f.err
}

type fakeScheduler struct {
	sigs []models.Signal
	err  error
}

func (f *fakeScheduler) Schedule(sig models.Signal) (*alerts.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sigs = append(f.sigs, sig)
	return nil, nil
}

type fakeJournal struct{ ids []string }

func (f *fakeJournal) Record(_ context.Context, sig models.Signal) error {
	f.ids = append(f.ids, sig.ID)
	return nil
}

type fakeSubs struct {
	ids []int64
	err error
}

func (f fakeSubs) Approved(context.Context) ([]int64, error) { return f.ids, f.err }

var testCfg = Config{
	Symbols:       []string{"EUR/USD", "GBP/USD", "BTC/USD"},
	MinConfidence: 60,
	RecentSize:    6,
	PickTries:     12,
	IdleWait:      60 * time.Second,
	ErrorBackoff:  5 * time.Second,
	NoSignalWait:  6 * time.Second,
	GapMin:        120 * time.Second,
	GapMax:        180 * time.Second,
}

func newTestRunner(an *fakeAnalyzer, subs fakeSubs) (*Runner, *fakeScheduler, *fakeJournal) {
	sched := &fakeScheduler{}
	journal := &fakeJournal{}
	r := New(testCfg, Deps{
		Analyzer:    an,
		Scheduler:   sched,
		Journal:     journal,
		Subscribers: subs,
		Rand:        rand.New(rand.NewPCG(1, 2)),
		Now:         func() time.Time { return time.Date(2025, 1, 1, 12, 0, 20, 0, time.UTC) },
	})
	return r, sched, journal
}

func TestStepIdleWithoutSubscribers(t *testing.T) {
	an := &fakeAnalyzer{}
	r, sched, _ := newTestRunner(an, fakeSubs{})

	wait, sig := r.Step(context.Background())
	assert.Equal(t, wait, 60*time.Second)
	assert.True(t, sig == nil)
	assert.Equal(t, len(an.symbols), 0)
	assert.Equal(t, len(sched.sigs), 0)
}

func TestStepAnalyzeErrorBacksOff(t *testing.T) {
	an := &fakeAnalyzer{err: strategy.ErrInsufficientData}
	r, _, _ := newTestRunner(an, fakeSubs{ids: []int64{1}})

	wait, sig := r.Step(context.Background())
	assert.Equal(t, wait, 5*time.Second)
	assert.True(t, sig == nil)
	assert.Equal(t, len(an.symbols), 1)
}

func TestStepNoSignalAndLowConfidence(t *testing.T) {
	an := &fakeAnalyzer{res: strategy.Result{Direction: models.DirectionNone}}
	r, sched, _ := newTestRunner(an, fakeSubs{ids: []int64{1}})

	wait, _ := r.Step(context.Background())
	assert.Equal(t, wait, 6*time.Second)

	an.res = strategy.Result{Direction: models.DirectionBuy, Confidence: 59}
	wait, sig := r.Step(context.Background())
	assert.Equal(t, wait, 6*time.Second)
	assert.True(t, sig == nil)
	assert.Equal(t, len(sched.sigs), 0)
	assert.Equal(t, len(r.Recent()), 0)
}

func TestStepEmitsSignal(t *testing.T) {
	an := &fakeAnalyzer{res: strategy.Result{
		Direction:     models.DirectionSell,
		Confidence:    72,
		Confirmations: 4,
		Reasons:       []string{"EMA bear", "MACD bear"},
		Price:         1.0842,
	}}
	r, sched, journal := newTestRunner(an, fakeSubs{ids: []int64{1, 2}})

	wait, sig := r.Step(context.Background())
	assert.True(t, sig != nil)
	assert.True(t, wait >= 120*time.Second && wait <= 180*time.Second)

	assert.True(t, strings.HasPrefix(sig.ID, "LX-"))
	assert.Equal(t, len(sig.ID), 11)
	assert.Equal(t, sig.Origin, models.OriginEvaluator)
	assert.Equal(t, sig.Timeframe, models.TimeframeM1)
	assert.Equal(t, sig.Confidence, 72)
	assert.Equal(t, "", cmp.Diff([]string{"EMA bear", "MACD bear"}, sig.Reasons))
	assert.True(t, len(sig.Snapshot) > 0)

	assert.Equal(t, len(sched.sigs), 1)
	assert.Equal(t, journal.ids, []string{sig.ID})
	assert.Equal(t, r.Recent(), []string{an.symbols[0]})
}

func TestStepScheduleFailureIsNotJournaled(t *testing.T) {
	an := &fakeAnalyzer{res: strategy.Result{Direction: models.DirectionBuy, Confidence: 80}}
	r, sched, journal := newTestRunner(an, fakeSubs{ids: []int64{1}})
	sched.err = alerts.ErrDuplicate

	wait, sig := r.Step(context.Background())
	assert.Equal(t, wait, 5*time.Second)
	assert.True(t, sig == nil)
	assert.Equal(t, len(journal.ids), 0)
}

func TestStepSubscriberStoreError(t *testing.T) {
	r, _, _ := newTestRunner(&fakeAnalyzer{}, fakeSubs{err: errors.New("db down")})
	wait, _ := r.Step(context.Background())
	assert.Equal(t, wait, 5*time.Second)
}

func TestStartStop(t *testing.T) {
	an := &fakeAnalyzer{res: strategy.Result{Direction: models.DirectionNone}}
	r, _, _ := newTestRunner(an, fakeSubs{})
	r.Start(context.Background())
	r.Stop()
	r.Stop()
}

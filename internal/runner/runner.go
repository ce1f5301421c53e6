package runner

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	alerts "signal_bot/internal/modules/alerts/service"
	strategy "signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (strategy.Result, error)
}

type Scheduler interface {
	Schedule(sig models.Signal) (*alerts.Alert, error)
}

type Journal interface {
	Record(ctx context.Context, sig models.Signal) error
}

type Subscribers interface {
	Approved(ctx context.Context) ([]int64, error)
}

type Config struct {
	Symbols       []string
	Timeframe     models.Timeframe
	MinConfidence int
	RecentSize    int
	PickTries     int
	IdleWait      time.Duration
	ErrorBackoff  time.Duration
	NoSignalWait  time.Duration
	GapMin        time.Duration
	GapMax        time.Duration
}

type Deps struct {
	Analyzer    Analyzer
	Scheduler   Scheduler
	Journal     Journal
	Subscribers Subscribers
	Metrics     *metrics.Recorder
	Rand        *rand.Rand
	Now         func() time.Time
}

// Runner — цикл сканирования: символ -> анализ -> сигнал в планировщик.
type Runner struct {
	cfg  Config
	deps Deps

	mu     sync.Mutex
	rng    *rand.Rand
	recent *Recent

	newID func() string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, deps Deps) *Runner {
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = models.TimeframeM1
	}
	return &Runner{
		cfg:    cfg,
		deps:   deps,
		rng:    rng,
		recent: NewRecent(cfg.RecentSize),
		newID:  NewSignalID,
	}
}

// Recent — копия кольца последних символов.
func (r *Runner) Recent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recent.Items()
}

// Step — одна итерация сканирования. Возвращает паузу до следующей
// и сигнал, если он был отправлен в планировщик.
func (r *Runner) Step(ctx context.Context) (time.Duration, *models.Signal) {
	ids, err := r.deps.Subscribers.Approved(ctx)
	if err != nil {
		logger.Error("runner: approved subscribers: %v", err)
		r.deps.Metrics.Scan("error")
		return r.cfg.ErrorBackoff, nil
	}
	if len(ids) == 0 {
		logger.Debug("runner: no approved subscribers, idle")
		r.deps.Metrics.Scan("idle")
		return r.cfg.IdleWait, nil
	}

	r.mu.Lock()
	symbol := PickSymbol(r.rng, r.cfg.Symbols, r.recent, r.cfg.PickTries)
	r.mu.Unlock()

	res, err := r.deps.Analyzer.Analyze(ctx, symbol)
	if err != nil {
		logger.Warn("runner: analyze %s: %v", symbol, err)
		r.deps.Metrics.Scan("error")
		return r.cfg.ErrorBackoff, nil
	}
	if res.Direction == models.DirectionNone {
		r.deps.Metrics.Scan("no_signal")
		return r.cfg.NoSignalWait, nil
	}
	if res.Confidence < r.cfg.MinConfidence {
		logger.Debug("runner: %s %s confidence %d < %d", symbol, res.Direction, res.Confidence, r.cfg.MinConfidence)
		r.deps.Metrics.Scan("low_confidence")
		return r.cfg.NoSignalWait, nil
	}

	sig := models.Signal{
		ID:            r.newID(),
		Symbol:        symbol,
		Direction:     res.Direction,
		Confidence:    res.Confidence,
		Confirmations: res.Confirmations,
		Reasons:       res.Reasons,
		Timeframe:     r.cfg.Timeframe,
		Price:         res.Price,
		Origin:        models.OriginEvaluator,
		CreatedAt:     r.deps.Now(),
		Snapshot:      res.Snapshot.Marshal(),
	}
	if _, err := r.deps.Scheduler.Schedule(sig); err != nil {
		logger.Error("runner: schedule %s: %v", sig.ID, err)
		r.deps.Metrics.Scan("error")
		return r.cfg.ErrorBackoff, nil
	}
	if err := r.deps.Journal.Record(ctx, sig); err != nil {
		logger.Error("runner: journal %s: %v", sig.ID, err)
	}

	r.mu.Lock()
	r.recent.Push(symbol)
	gap := r.gap()
	r.mu.Unlock()

	r.deps.Metrics.Scan("signal")
	logger.Info("runner: signal %s %s %s conf=%d, next scan in %s", sig.ID, sig.Symbol, sig.Direction, sig.Confidence, gap)
	return gap, &sig
}

// gap — случайная пауза в [GapMin, GapMax]. Вызывать под mu.
func (r *Runner) gap() time.Duration {
	span := r.cfg.GapMax - r.cfg.GapMin
	if span <= 0 {
		return r.cfg.GapMin
	}
	return r.cfg.GapMin + time.Duration(r.rng.Int64N(int64(span)+1))
}

// Start запускает цикл в отдельной горутине.
func (r *Runner) Start(parent context.Context) {
	r.ctx, r.cancel = context.WithCancel(parent)
	r.done = make(chan struct{})
	go r.loop()
}

func (r *Runner) loop() {
	defer close(r.done)
	logger.Info("runner: scan loop started (%d symbols)", len(r.cfg.Symbols))
	for {
		wait, _ := r.Step(r.ctx)
		timer := time.NewTimer(wait)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			logger.Info("runner: scan loop stopped")
			return
		case <-timer.C:
		}
	}
}

// Stop останавливает цикл и ждёт выхода.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

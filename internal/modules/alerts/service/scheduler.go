package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

var ErrDuplicate = errors.New("signal already scheduled")

// Broadcaster рассылает готовое сообщение всем подписчикам.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg models.Message) models.DeliveryReport
}

// Journal дописывает исход в журнал сигналов.
type Journal interface {
	RecordOutcome(ctx context.Context, signalID string, outcome models.Outcome, at time.Time) error
}

type Config struct {
	PreAlertLead     time.Duration
	ConfirmationLead time.Duration
	ResultDelay      time.Duration
}

func (c Config) leads() Leads {
	return Leads{PreAlert: c.PreAlertLead, Confirmation: c.ConfirmationLead, Result: c.ResultDelay}
}

type Deps struct {
	Clock    Clock
	Out      Broadcaster
	Journal  Journal
	Settler  Settler
	Renderer *Renderer
	Metrics  *metrics.Recorder
}

// Alert — запланированный сигнал. Принадлежит планировщику, наружу — только чтение.
type Alert struct {
	Signal   models.Signal
	Timeline Timeline

	mu      sync.Mutex
	state   models.AlertState
	outcome models.Outcome
	done    [len(models.Stages)]chan struct{}
}

func newAlert(sig models.Signal, tl Timeline) *Alert {
	a := &Alert{Signal: sig, Timeline: tl, state: models.AlertCreated}
	for i := range a.done {
		a.done[i] = make(chan struct{})
	}
	return a
}

func (a *Alert) State() models.AlertState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Alert) Outcome() models.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outcome
}

func (a *Alert) setState(s models.AlertState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == models.AlertCancelled || a.state == models.AlertClosed {
		return false
	}
	a.state = s
	return true
}

func (a *Alert) cancelled() bool {
	return a.State() == models.AlertCancelled
}

// stateAfter — состояние после отправки стадии.
func stateAfter(stage models.Stage) models.AlertState {
	switch stage {
	case models.StagePreAlert:
		return models.AlertPreAlert
	case models.StageConfirmation:
		return models.AlertConfirmation
	case models.StageEntry:
		return models.AlertAwaitingResult
	default:
		return models.AlertClosed
	}
}

// Scheduler ведёт сигналы по стадиям pre_alert → confirmation → entry → result.
// Сигналы из анализатора и из webhook обрабатываются одинаково.
type Scheduler struct {
	cfg   Config
	deps  Deps
	queue *Queue

	mu     sync.Mutex
	alerts map[string]*Alert
	closed bool
}

func NewScheduler(cfg Config, deps Deps) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Renderer == nil {
		deps.Renderer = NewRenderer("", "", nil)
	}
	if deps.Settler == nil {
		deps.Settler = NewSimulated(nil)
	}
	return &Scheduler{
		cfg:    cfg,
		deps:   deps,
		queue:  NewQueue(deps.Clock),
		alerts: make(map[string]*Alert),
	}
}

// Queue отдаёт очередь таймеров (для Run и для тестов на виртуальных часах).
func (s *Scheduler) Queue() *Queue { return s.queue }

// Schedule не блокируется: ставит четыре стадии в очередь и возвращается.
func (s *Scheduler) Schedule(sig models.Signal) (a *Alert, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("alerts.Schedule: %w", err)
		}
	}()

	if sig.ID == "" || sig.Symbol == "" {
		return nil, errors.New("signal id and symbol are required")
	}
	if sig.Direction != models.DirectionBuy && sig.Direction != models.DirectionSell {
		return nil, fmt.Errorf("direction %q is not schedulable", sig.Direction)
	}
	if !sig.Timeframe.Valid() {
		sig.Timeframe = models.TimeframeM1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.alerts[sig.ID]; ok {
		return nil, ErrDuplicate
	}

	now := s.deps.Clock.Now()
	a = newAlert(sig, Plan(now, sig.Timeframe.Duration(), s.cfg.leads()))

	for i := range models.Stages {
		if err := s.queue.At(a.Timeline.At(i), sig.ID, s.stage(a, i)); err != nil {
			s.queue.Cancel(sig.ID)
			return nil, err
		}
	}
	s.alerts[sig.ID] = a

	s.deps.Metrics.Signal(string(sig.Direction), string(sig.Origin))
	s.deps.Metrics.SetPendingAlerts(len(s.alerts))
	logger.Info("[ALERT] %s %s %s (%s) pre=%s entry=%s result=%s",
		sig.ID, sig.Symbol, sig.Direction, sig.Origin,
		a.Timeline.PreAlert.Format(time.TimeOnly), a.Timeline.Entry.Format(time.TimeOnly), a.Timeline.Result.Format(time.TimeOnly))
	return a, nil
}

// stage возвращает колбэк i-й стадии. Стадия ждёт завершения предыдущей,
// поэтому каждый подписчик получает их строго по порядку.
func (s *Scheduler) stage(a *Alert, i int) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer close(a.done[i])

		if i > 0 {
			select {
			case <-a.done[i-1]:
			case <-ctx.Done():
				return
			}
		}
		if a.cancelled() {
			return
		}

		stage := models.Stages[i]
		span, ctx := tracing.StartSpan(ctx, "alerts.stage", map[string]any{
			"signal_id": a.Signal.ID,
			"stage":     string(stage),
		})
		defer tracing.Finish(span, nil)

		var outcome models.Outcome
		if stage == models.StageResult {
			outcome = s.deps.Settler.Settle(ctx, a.Signal, a.Timeline)
			a.mu.Lock()
			a.outcome = outcome
			a.mu.Unlock()
		}

		msg := models.Message{
			SignalID: a.Signal.ID,
			Stage:    stage,
			Symbol:   a.Signal.Symbol,
			Text:     s.deps.Renderer.Render(stage, a.Signal, a.Timeline, outcome),
			At:       s.deps.Clock.Now(),
		}

		var report models.DeliveryReport
		if s.deps.Out != nil {
			report = s.deps.Out.Broadcast(ctx, msg)
		}
		s.deps.Metrics.Stage(string(stage))
		logger.Info("[ALERT] %s %s delivered %d/%d removed %d",
			a.Signal.ID, stage, report.Delivered, report.Attempted, len(report.Removed))

		if stage != models.StageResult {
			a.setState(stateAfter(stage))
			return
		}

		if s.deps.Journal != nil {
			if err := s.deps.Journal.RecordOutcome(ctx, a.Signal.ID, outcome, msg.At); err != nil {
				logger.Error("[ALERT] %s record outcome: %v", a.Signal.ID, err)
			}
		}
		a.setState(models.AlertClosed)
		s.forget(a.Signal.ID)
	}
}

func (s *Scheduler) forget(id string) {
	s.mu.Lock()
	delete(s.alerts, id)
	n := len(s.alerts)
	s.mu.Unlock()
	s.deps.Metrics.SetPendingAlerts(n)
}

// Cancel снимает оставшиеся стадии сигнала.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	a, ok := s.alerts[id]
	s.mu.Unlock()
	if !ok {
		return false
	}

	a.setState(models.AlertCancelled)
	s.queue.Cancel(id)
	s.forget(id)
	logger.Info("[ALERT] %s cancelled", id)
	return true
}

// Get — запланированный сигнал по id.
func (s *Scheduler) Get(id string) (*Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	return a, ok
}

// Pending — число сигналов, не дошедших до результата.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.queue.Run(ctx)
}

// Stop — хук завершения: новые сигналы не принимаются, ожидающие стадии
// отбрасываются, выполняющиеся дожидаются до ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	abandoned, err := s.queue.Close(ctx)
	logger.Info("[ALERT] scheduler stopped: %d pending stages abandoned", abandoned)
	if err != nil {
		return fmt.Errorf("alerts.Stop: %w", err)
	}
	return nil
}

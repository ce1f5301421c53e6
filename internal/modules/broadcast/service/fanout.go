package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

// ErrPermanent — подписчик недоступен навсегда (заблокировал бота, чат удалён).
var ErrPermanent = errors.New("permanent delivery failure")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent помечает ошибку доставки как постоянную.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Store — источник одобренных подписчиков.
type Store interface {
	Approved(ctx context.Context) ([]int64, error)
	Remove(ctx context.Context, chatID int64) error
}

// Sender доставляет текст одному подписчику.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Tap получает копию каждого разосланного сообщения (живая лента).
type Tap interface {
	Publish(msg models.Message)
}

const defaultWorkers = 8

type Fanout struct {
	store   Store
	sender  Sender
	workers int
	rec     *metrics.Recorder

	mu   sync.RWMutex
	taps []Tap
}

func NewFanout(store Store, sender Sender, workers int, rec *metrics.Recorder) *Fanout {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Fanout{store: store, sender: sender, workers: workers, rec: rec}
}

func (f *Fanout) AddTap(t Tap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taps = append(f.taps, t)
}

// Broadcast берёт снимок одобренных подписчиков и рассылает msg всем.
func (f *Fanout) Broadcast(ctx context.Context, msg models.Message) models.DeliveryReport {
	f.publish(msg)

	ids, err := f.store.Approved(ctx)
	if err != nil {
		logger.Error("[BROADCAST] %s %s: approved subscribers: %v", msg.SignalID, msg.Stage, err)
		return models.DeliveryReport{}
	}
	return f.Deliver(ctx, msg, ids)
}

// Deliver отправляет msg каждому из ids независимо. Ошибка одного
// подписчика не прерывает рассылку; постоянные ошибки уходят в Store.Remove
// по одному разу на подписчика.
func (f *Fanout) Deliver(ctx context.Context, msg models.Message, ids []int64) (report models.DeliveryReport) {
	span, ctx := tracing.StartSpan(ctx, "broadcast.Deliver", map[string]any{
		"signal_id": msg.SignalID,
		"stage":     string(msg.Stage),
	})
	defer func() {
		span.SetTag("delivered", report.Delivered)
		tracing.Finish(span, nil)
	}()

	ids = unique(ids)
	report.Attempted = len(ids)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		permanent []int64
		sem       = make(chan struct{}, f.workers)
	)

	for _, id := range ids {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			logger.Warn("[BROADCAST] %s %s interrupted: %v", msg.SignalID, msg.Stage, ctx.Err())
			wg.Wait()
			return f.finish(ctx, report, permanent)
		}

		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer func() { <-sem }()

			err := f.sender.Send(ctx, id, msg.Text)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Delivered++
				f.rec.Delivery("ok")
			case IsPermanent(err):
				permanent = append(permanent, id)
				f.rec.Delivery("permanent")
				logger.Warn("[BROADCAST] %d unreachable, removing: %v", id, err)
			default:
				report.Transient++
				f.rec.Delivery("transient")
				logger.Warn("[BROADCAST] %d transient failure: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	return f.finish(ctx, report, permanent)
}

func (f *Fanout) finish(ctx context.Context, report models.DeliveryReport, permanent []int64) models.DeliveryReport {
	sort.Slice(permanent, func(i, j int) bool { return permanent[i] < permanent[j] })
	for _, id := range permanent {
		// удаление не должно зависеть от отменённого контекста рассылки
		if err := f.store.Remove(context.WithoutCancel(ctx), id); err != nil {
			logger.Error("[BROADCAST] remove %d: %v", id, err)
			continue
		}
		f.rec.SubscriberRemoved()
		report.Removed = append(report.Removed, id)
	}
	return report
}

func (f *Fanout) publish(msg models.Message) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.taps {
		t.Publish(msg)
	}
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

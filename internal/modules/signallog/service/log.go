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
)

var ErrUnknownSignal = errors.New("signal is not pending in the log")

// Sink — куда пишется журнал. Append — строка создания, Outcome — исход.
type Sink interface {
	Append(ctx context.Context, e models.LogEntry) error
	Outcome(ctx context.Context, e models.LogEntry) error
	Close() error
}

// Log — журнал сигналов только на дозапись. Безопасен для сканера и
// колбэков результата одновременно.
type Log struct {
	rec *metrics.Recorder

	mu      sync.Mutex
	sinks   []Sink
	pending map[string]models.LogEntry
}

func NewLog(rec *metrics.Recorder, sinks ...Sink) *Log {
	return &Log{
		rec:     rec,
		sinks:   sinks,
		pending: make(map[string]models.LogEntry),
	}
}

// Record пишет строку создания сигнала во все приёмники.
func (l *Log) Record(ctx context.Context, sig models.Signal) (err error) {
	defer func() {
		if err != nil {
			l.rec.LogFailure()
			err = fmt.Errorf("signallog.Record: %w", err)
		}
	}()

	e := models.NewLogEntry(sig)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[e.SignalID]; ok {
		return fmt.Errorf("%s already recorded", e.SignalID)
	}
	l.pending[e.SignalID] = e

	var errs []error
	for _, s := range l.sinks {
		if err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordOutcome дописывает исход один раз; повторный вызов — ErrUnknownSignal.
func (l *Log) RecordOutcome(ctx context.Context, signalID string, outcome models.Outcome, at time.Time) (err error) {
	defer func() {
		if err != nil {
			l.rec.LogFailure()
			err = fmt.Errorf("signallog.RecordOutcome: %w", err)
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.pending[signalID]
	if !ok {
		return fmt.Errorf("%s: %w", signalID, ErrUnknownSignal)
	}
	delete(l.pending, signalID)

	e.Result = outcome
	e.ResultAt = at

	var errs []error
	for _, s := range l.sinks {
		if err := s.Outcome(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending — сигналы без исхода.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(l.pending) > 0 {
		logger.Warn("signallog: %d signals closed without outcome", len(l.pending))
	}
	return errors.Join(errs...)
}

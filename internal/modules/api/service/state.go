package service

import (
	"sync/atomic"
	"time"

	"signal_bot/internal/models"
)

// State — готовность процесса и время последней рассылки.
// Подключается к Fanout как Tap.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastMessageUnix atomic.Int64 // unix seconds
	lastStage       atomic.Value // models.Stage
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Publish(msg models.Message) {
	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}
	s.lastMessageUnix.Store(at.Unix())
	s.lastStage.Store(msg.Stage)
}

func (s *State) LastMessage() (time.Time, models.Stage) {
	u := s.lastMessageUnix.Load()
	if u == 0 {
		return time.Time{}, ""
	}
	stage, _ := s.lastStage.Load().(models.Stage)
	return time.Unix(u, 0), stage
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

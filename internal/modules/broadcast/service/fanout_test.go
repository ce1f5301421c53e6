package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"signal_bot/internal/models"

	"github.com/peterldowns/testy/assert"
)

type memStore struct {
	mu       sync.Mutex
	approved []int64
	removed  []int64
}

func (s *memStore) Approved(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.approved...), nil
}

func (s *memStore) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
	return nil
}

type scriptedSender struct {
	mu   sync.Mutex
	errs map[int64]error
	got  map[int64][]string
}

func (s *scriptedSender) Send(_ context.Context, id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[id]; err != nil {
		return err
	}
	if s.got == nil {
		s.got = map[int64][]string{}
	}
	s.got[id] = append(s.got[id], text)
	return nil
}

type tap struct {
	msgs []models.Message
}

func (t *tap) Publish(msg models.Message) { t.msgs = append(t.msgs, msg) }

var testMsg = models.Message{SignalID: "LX-TEST0001", Stage: models.StageEntry, Symbol: "EUR/USD", Text: "ENTRY"}

func TestBroadcastBlockedSecondSubscriber(t *testing.T) {
	store := &memStore{approved: []int64{101, 102, 103}}
	sender := &scriptedSender{errs: map[int64]error{
		102: Permanent(errors.New("Forbidden: bot was blocked by the user")),
	}}
	f := NewFanout(store, sender, 2, nil)

	report := f.Broadcast(context.Background(), testMsg)

	assert.Equal(t, report.Attempted, 3)
	assert.Equal(t, report.Delivered, 2)
	assert.Equal(t, report.Transient, 0)
	assert.Equal(t, report.Removed, []int64{102})
	assert.Equal(t, store.removed, []int64{102})
	assert.Equal(t, sender.got[101], []string{"ENTRY"})
	assert.Equal(t, sender.got[103], []string{"ENTRY"})
	assert.Equal(t, len(sender.got[102]), 0)
}

func TestBroadcastTransientKeepsSubscriber(t *testing.T) {
	store := &memStore{approved: []int64{1, 2}}
	sender := &scriptedSender{errs: map[int64]error{1: errors.New("i/o timeout")}}
	f := NewFanout(store, sender, 4, nil)

	report := f.Broadcast(context.Background(), testMsg)
	assert.Equal(t, report.Delivered, 1)
	assert.Equal(t, report.Transient, 1)
	assert.Equal(t, len(report.Removed), 0)
	assert.Equal(t, len(store.removed), 0)
}

func TestDeliverDedupesRemoval(t *testing.T) {
	store := &memStore{}
	sender := &scriptedSender{errs: map[int64]error{7: Permanent(errors.New("chat not found"))}}
	f := NewFanout(store, sender, 1, nil)

	report := f.Deliver(context.Background(), testMsg, []int64{7, 8, 7, 7})
	assert.Equal(t, report.Attempted, 2)
	assert.Equal(t, report.Removed, []int64{7})
	assert.Equal(t, store.removed, []int64{7})
}

func TestBroadcastManySubscribers(t *testing.T) {
	ids := make([]int64, 0, 50)
	errs := map[int64]error{}
	for i := int64(1); i <= 50; i++ {
		ids = append(ids, i)
		if i%10 == 0 {
			errs[i] = Permanent(errors.New("user is deactivated"))
		}
	}
	store := &memStore{approved: ids}
	f := NewFanout(store, &scriptedSender{errs: errs}, 8, nil)

	report := f.Broadcast(context.Background(), testMsg)
	assert.Equal(t, report.Delivered, 45)
	assert.Equal(t, report.Removed, []int64{10, 20, 30, 40, 50})

	removed := append([]int64(nil), store.removed...)
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	assert.Equal(t, removed, []int64{10, 20, 30, 40, 50})
}

func TestBroadcastPublishesToTaps(t *testing.T) {
	tp := &tap{}
	f := NewFanout(&memStore{}, &scriptedSender{}, 1, nil)
	f.AddTap(tp)

	report := f.Broadcast(context.Background(), testMsg)
	assert.Equal(t, report.Attempted, 0)
	assert.Equal(t, len(tp.msgs), 1)
	assert.Equal(t, tp.msgs[0].SignalID, "LX-TEST0001")
}

func TestPermanentClassification(t *testing.T) {
	base := errors.New("blocked")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.True(t, errors.Is(err, base))
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}

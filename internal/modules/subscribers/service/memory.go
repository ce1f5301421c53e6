package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"signal_bot/internal/models"
)

type Memory struct {
	mu   sync.RWMutex
	data map[int64]models.Subscriber
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[int64]models.Subscriber)}
}

// Add не трогает уже существующего подписчика.
func (m *Memory) Add(_ context.Context, sub models.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[sub.ChatID]; ok {
		return nil
	}
	if sub.JoinedAt.IsZero() {
		sub.JoinedAt = time.Now().UTC()
	}
	m.data[sub.ChatID] = sub
	return nil
}

func (m *Memory) Approve(_ context.Context, chatID int64) error {
	return m.setApproved(chatID, true)
}

func (m *Memory) Remove(_ context.Context, chatID int64) error {
	return m.setApproved(chatID, false)
}

func (m *Memory) setApproved(chatID int64, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.data[chatID]
	if !ok {
		return ErrNotFound
	}
	sub.Approved = v
	m.data[chatID] = sub
	return nil
}

func (m *Memory) Get(_ context.Context, chatID int64) (models.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.data[chatID]
	if !ok {
		return models.Subscriber{}, ErrNotFound
	}
	return sub, nil
}

func (m *Memory) List(_ context.Context) ([]models.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Subscriber, 0, len(m.data))
	for _, s := range m.data {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (m *Memory) Approved(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.data))
	for id, s := range m.data {
		if s.Approved {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

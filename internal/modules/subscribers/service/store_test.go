package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"signal_bot/internal/models"

	"github.com/peterldowns/testy/assert"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	joined := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, s.Add(ctx, models.Subscriber{ChatID: 3, Username: "carol", JoinedAt: joined}))
	assert.NoError(t, s.Add(ctx, models.Subscriber{ChatID: 1, Username: "alice", Approved: true, JoinedAt: joined}))
	assert.NoError(t, s.Add(ctx, models.Subscriber{ChatID: 2, Username: "bob", JoinedAt: joined}))
	// повторный /start не сбрасывает одобрение
	assert.NoError(t, s.Add(ctx, models.Subscriber{ChatID: 1, Username: "alice"}))

	ids, err := s.Approved(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ids, []int64{1})

	assert.NoError(t, s.Approve(ctx, 2))
	assert.NoError(t, s.Approve(ctx, 3))
	ids, err = s.Approved(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ids, []int64{1, 2, 3})

	assert.NoError(t, s.Remove(ctx, 2))
	ids, err = s.Approved(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ids, []int64{1, 3})

	sub, err := s.Get(ctx, 2)
	assert.NoError(t, err)
	assert.Equal(t, sub.Username, "bob")
	assert.False(t, sub.Approved)
	assert.Equal(t, sub.JoinedAt.Unix(), joined.Unix())

	_, err = s.Get(ctx, 42)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Remove(ctx, 42), ErrNotFound))

	all, err := s.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(all), 3)
	assert.Equal(t, all[0].ChatID, int64(1))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "subs.db"))
	assert.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSeedAdmins(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	assert.NoError(t, s.Add(ctx, models.Subscriber{ChatID: 5, Username: "pending"}))

	assert.NoError(t, SeedAdmins(ctx, s, []int64{5, 9}))
	ids, err := s.Approved(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ids, []int64{5, 9})
}

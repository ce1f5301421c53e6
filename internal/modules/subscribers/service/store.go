package service

import (
	"context"
	"errors"

	"signal_bot/internal/models"
)

var ErrNotFound = errors.New("subscriber not found")

// Store — множество подписчиков. Remove снимает одобрение, запись остаётся.
type Store interface {
	Add(ctx context.Context, sub models.Subscriber) error
	Approve(ctx context.Context, chatID int64) error
	Get(ctx context.Context, chatID int64) (models.Subscriber, error)
	List(ctx context.Context) ([]models.Subscriber, error)
	Approved(ctx context.Context) ([]int64, error)
	Remove(ctx context.Context, chatID int64) error
}

// SeedAdmins добавляет администраторов сразу одобренными.
func SeedAdmins(ctx context.Context, s Store, ids []int64) error {
	for _, id := range ids {
		if err := s.Add(ctx, models.Subscriber{ChatID: id, Username: "admin", Approved: true}); err != nil {
			return err
		}
		if err := s.Approve(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

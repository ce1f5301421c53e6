package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS subscribers (
	chat_id   BIGINT PRIMARY KEY,
	username  TEXT NOT NULL DEFAULT '',
	approved  BOOLEAN NOT NULL DEFAULT FALSE,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Postgres struct {
	db db.TxManager
}

var _ Store = (*Postgres)(nil)

func NewPostgres(ctx context.Context, tx db.TxManager) (*Postgres, error) {
	if _, err := tx.Conn().Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("pg.NewPostgres: schema: %w", err)
	}
	return &Postgres{db: tx}, nil
}

// Add in db
func (p *Postgres) Add(ctx context.Context, sub models.Subscriber) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Add: %w", err)
		}
	}()
	if sub.JoinedAt.IsZero() {
		sub.JoinedAt = time.Now().UTC()
	}
	_, err = p.db.Conn().Exec(ctx,
		`INSERT INTO subscribers (chat_id, username, approved, joined_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (chat_id) DO NOTHING`,
		sub.ChatID, sub.Username, sub.Approved, sub.JoinedAt)
	return err
}

func (p *Postgres) Approve(ctx context.Context, chatID int64) error {
	return p.setApproved(ctx, chatID, true)
}

func (p *Postgres) Remove(ctx context.Context, chatID int64) error {
	return p.setApproved(ctx, chatID, false)
}

func (p *Postgres) setApproved(ctx context.Context, chatID int64, v bool) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.setApproved: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx, `UPDATE subscribers SET approved = $2 WHERE chat_id = $1`, chatID, v)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Get in db
func (p *Postgres) Get(ctx context.Context, chatID int64) (sub models.Subscriber, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Get: %w", err)
		}
	}()
	err = p.db.Conn().QueryRow(ctx,
		`SELECT chat_id, username, approved, joined_at FROM subscribers WHERE chat_id = $1`, chatID,
	).Scan(&sub.ChatID, &sub.Username, &sub.Approved, &sub.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Subscriber{}, ErrNotFound
	}
	return sub, err
}

func (p *Postgres) List(ctx context.Context) (out []models.Subscriber, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.List: %w", err)
		}
	}()
	rows, err := p.db.Conn().Query(ctx,
		`SELECT chat_id, username, approved, joined_at FROM subscribers ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.ChatID, &s.Username, &s.Approved, &s.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) Approved(ctx context.Context) (out []int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Approved: %w", err)
		}
	}()
	rows, err := p.db.Conn().Query(ctx, `SELECT chat_id FROM subscribers WHERE approved ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

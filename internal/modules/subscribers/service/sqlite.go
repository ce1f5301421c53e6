package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS subscribers (
	chat_id   INTEGER PRIMARY KEY,
	username  TEXT    NOT NULL DEFAULT '',
	approved  INTEGER NOT NULL DEFAULT 0,
	joined_at INTEGER NOT NULL
)`

// SQLite — локальное хранилище подписчиков, когда Postgres не настроен.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.NewSQLite: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	logger.Info("[sqlite] subscribers at %s", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Add(ctx context.Context, sub models.Subscriber) error {
	if sub.JoinedAt.IsZero() {
		sub.JoinedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscribers (chat_id, username, approved, joined_at) VALUES (?, ?, ?, ?)`,
		sub.ChatID, sub.Username, sub.Approved, sub.JoinedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite.Add: %w", err)
	}
	return nil
}

func (s *SQLite) Approve(ctx context.Context, chatID int64) error {
	return s.setApproved(ctx, chatID, true)
}

func (s *SQLite) Remove(ctx context.Context, chatID int64) error {
	return s.setApproved(ctx, chatID, false)
}

func (s *SQLite) setApproved(ctx context.Context, chatID int64, v bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE subscribers SET approved = ? WHERE chat_id = ?`, v, chatID)
	if err != nil {
		return fmt.Errorf("sqlite.setApproved: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, chatID int64) (models.Subscriber, error) {
	var (
		sub    models.Subscriber
		joined int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, username, approved, joined_at FROM subscribers WHERE chat_id = ?`, chatID,
	).Scan(&sub.ChatID, &sub.Username, &sub.Approved, &joined)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, ErrNotFound
	}
	if err != nil {
		return models.Subscriber{}, fmt.Errorf("sqlite.Get: %w", err)
	}
	sub.JoinedAt = time.Unix(joined, 0).UTC()
	return sub, nil
}

func (s *SQLite) List(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, username, approved, joined_at FROM subscribers ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.List: %w", err)
	}
	defer rows.Close()

	var out []models.Subscriber
	for rows.Next() {
		var (
			sub    models.Subscriber
			joined int64
		)
		if err := rows.Scan(&sub.ChatID, &sub.Username, &sub.Approved, &joined); err != nil {
			return nil, fmt.Errorf("sqlite.List: %w", err)
		}
		sub.JoinedAt = time.Unix(joined, 0).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLite) Approved(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM subscribers WHERE approved = 1 ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Approved: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite.Approved: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

package service

import (
	"context"
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS signal_log (
	signal_id     TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	symbol        TEXT NOT NULL,
	direction     TEXT NOT NULL,
	confidence    INT NOT NULL,
	price         DOUBLE PRECISION,
	reasons       TEXT NOT NULL DEFAULT '',
	confirmations INT NOT NULL DEFAULT 0,
	origin        TEXT NOT NULL,
	snapshot      JSONB,
	result        TEXT,
	result_at     TIMESTAMPTZ
)`

// Postgres — таблица signal_log: INSERT при создании, исход один раз через UPDATE.
type Postgres struct {
	db db.TxManager
}

var _ Sink = (*Postgres)(nil)

func NewPostgres(ctx context.Context, tx db.TxManager) (*Postgres, error) {
	if _, err := tx.Conn().Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("pg.NewPostgres: schema: %w", err)
	}
	return &Postgres{db: tx}, nil
}

func (p *Postgres) Append(ctx context.Context, e models.LogEntry) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Append: %w", err)
		}
	}()

	var snapshot any
	if len(e.Snapshot) > 0 {
		snapshot = string(e.Snapshot)
	}
	_, err = p.db.Conn().Exec(ctx,
		`INSERT INTO signal_log
			(signal_id, created_at, symbol, direction, confidence, price, reasons, confirmations, origin, snapshot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (signal_id) DO NOTHING`,
		e.SignalID, e.CreatedAt, e.Symbol, string(e.Direction), e.Confidence, e.Price,
		e.Reasons, e.Confirmations, string(e.Origin), snapshot)
	return err
}

func (p *Postgres) Outcome(ctx context.Context, e models.LogEntry) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Outcome: %w", err)
		}
	}()

	tag, err := p.db.Conn().Exec(ctx,
		`UPDATE signal_log SET result = $2, result_at = $3 WHERE signal_id = $1 AND result IS NULL`,
		e.SignalID, string(e.Result), e.ResultAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", e.SignalID, ErrUnknownSignal)
	}
	return nil
}

// Close: пулом владеет postgres-модуль.
func (p *Postgres) Close() error { return nil }

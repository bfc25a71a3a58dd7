package journal

import (
	"context"
	"time"

	"lv-papertrade/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres appends position events and balance deltas to insert-only tables.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	j := &Postgres{pool: pool}
	if err := j.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

func (j *Postgres) ensureSchema(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS position_events (
			id BIGSERIAL PRIMARY KEY,
			event TEXT NOT NULL,
			position_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			qty NUMERIC NOT NULL,
			entry_price NUMERIC NOT NULL,
			close_price NUMERIC,
			pnl NUMERIC,
			recorded_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS balance_events (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			delta NUMERIC NOT NULL,
			reason TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (j *Postgres) RecordPosition(ctx context.Context, event string, p model.Position) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO position_events
			(event, position_id, account_id, symbol, side, kind, status, qty, entry_price, close_price, pnl, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, event, p.ID, p.AccountID, p.Symbol, string(p.Side), string(p.Kind), string(p.Status),
		p.Qty, p.EntryPrice, p.ClosePrice, p.RealizedPnL, time.Now().UTC())
	return err
}

func (j *Postgres) RecordBalance(ctx context.Context, accountID string, delta decimal.Decimal, reason string) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO balance_events (account_id, delta, reason, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, accountID, delta, reason, time.Now().UTC())
	return err
}

func (j *Postgres) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}

func (j *Postgres) Close() {
	j.pool.Close()
}

// Package journal is the write-through persistence binding for the ledger.
// The ledger owns all state in memory; the journal records what happened.
// Journal failures are soft: they are logged by the caller and never fail a
// trading operation, and nothing is replayed back at startup.
package journal

import (
	"context"

	"lv-papertrade/internal/model"

	"github.com/shopspring/decimal"
)

type Journal interface {
	RecordPosition(ctx context.Context, event string, p model.Position) error
	RecordBalance(ctx context.Context, accountID string, delta decimal.Decimal, reason string) error
}

// Noop is the default journal when no database is configured.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) RecordPosition(context.Context, string, model.Position) error { return nil }

func (Noop) RecordBalance(context.Context, string, decimal.Decimal, string) error { return nil }

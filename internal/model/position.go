package model

import (
	"time"

	"lv-papertrade/internal/types"

	"github.com/shopspring/decimal"
)

// Position is a single paper trade. Pending positions are unfilled limit/stop
// orders; EntryPrice and OpenedAt are set when the order fills. RealizedPnL,
// ClosePrice and ClosedAt stay nil until the position closes and are never
// changed afterwards.
type Position struct {
	ID          string               `json:"id"`
	AccountID   string               `json:"account_id"`
	Symbol      string               `json:"symbol"`
	Side        types.Side           `json:"side"`
	Kind        types.OrderKind      `json:"kind"`
	Status      types.PositionStatus `json:"status"`
	Qty         decimal.Decimal      `json:"qty"`
	EntryPrice  decimal.Decimal      `json:"entry_price"`
	LimitPrice  *decimal.Decimal     `json:"limit_price,omitempty"`
	StopPrice   *decimal.Decimal     `json:"stop_price,omitempty"`
	StopLoss    *decimal.Decimal     `json:"stop_loss,omitempty"`
	TakeProfit  *decimal.Decimal     `json:"take_profit,omitempty"`
	RealizedPnL *decimal.Decimal     `json:"pnl,omitempty"`
	ClosePrice  *decimal.Decimal     `json:"close_price,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	OpenedAt    *time.Time           `json:"opened_at,omitempty"`
	ClosedAt    *time.Time           `json:"closed_at,omitempty"`
}

// EntryNotional is the cash value of the position at its entry price.
func (p *Position) EntryNotional() decimal.Decimal {
	return p.EntryPrice.Mul(p.Qty)
}

// Package report computes trading statistics and portfolio valuation on top
// of the ledger. Everything here is read-only and derived on demand.
package report

import (
	"lv-papertrade/internal/ledger"
	"lv-papertrade/internal/model"
	"lv-papertrade/internal/quote"
	"lv-papertrade/internal/types"

	"github.com/shopspring/decimal"
)

type Service struct {
	ledger *ledger.Ledger
	feed   quote.Feed
}

func NewService(l *ledger.Ledger, feed quote.Feed) *Service {
	return &Service{ledger: l, feed: feed}
}

// Stats summarizes an account's closed trades. A trade with zero realized
// P&L counts as neither a win nor a loss.
type Stats struct {
	TotalTrades int             `json:"total_trades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	WinRate     decimal.Decimal `json:"win_rate"`
	TotalPnL    decimal.Decimal `json:"total_pnl"`
	AvgWin      decimal.Decimal `json:"avg_win"`
	AvgLoss     decimal.Decimal `json:"avg_loss"`
	LargestWin  decimal.Decimal `json:"largest_win"`
	LargestLoss decimal.Decimal `json:"largest_loss"`
}

func (s *Service) Stats(accountID string) (Stats, error) {
	closed := types.PositionStatusClosed
	positions, err := s.ledger.ListPositions(accountID, &closed)
	if err != nil {
		return Stats{}, err
	}

	var out Stats
	var winSum, lossSum decimal.Decimal
	for _, pos := range positions {
		if pos.RealizedPnL == nil {
			continue
		}
		pnl := *pos.RealizedPnL
		out.TotalTrades++
		out.TotalPnL = out.TotalPnL.Add(pnl)
		switch {
		case pnl.IsPositive():
			out.Wins++
			winSum = winSum.Add(pnl)
			if pnl.GreaterThan(out.LargestWin) {
				out.LargestWin = pnl
			}
		case pnl.IsNegative():
			out.Losses++
			lossSum = lossSum.Add(pnl)
			if pnl.LessThan(out.LargestLoss) {
				out.LargestLoss = pnl
			}
		}
	}

	// Win rate over zero trades is zero, not a division error.
	if out.TotalTrades > 0 {
		out.WinRate = decimal.NewFromInt(int64(out.Wins)).
			Div(decimal.NewFromInt(int64(out.TotalTrades))).
			Mul(decimal.NewFromInt(100)).Round(2)
	}
	if out.Wins > 0 {
		out.AvgWin = winSum.Div(decimal.NewFromInt(int64(out.Wins))).Round(2)
	}
	if out.Losses > 0 {
		out.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(out.Losses))).Round(2)
	}
	return out, nil
}

// Portfolio is the account's total equity: cash plus the mark-to-market
// value of open long positions minus the buy-back cost of open shorts.
type Portfolio struct {
	Balance       decimal.Decimal `json:"balance"`
	PositionValue decimal.Decimal `json:"position_value"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Holdings      []Holding       `json:"holdings"`
}

type Holding struct {
	PositionID string          `json:"position_id"`
	Symbol     string          `json:"symbol"`
	Side       types.Side      `json:"side"`
	Qty        decimal.Decimal `json:"qty"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	MarkPrice  decimal.Decimal `json:"mark_price"`
	Value      decimal.Decimal `json:"value"`
	PnL        decimal.Decimal `json:"pnl"`
}

func (s *Service) Portfolio(accountID string) (Portfolio, error) {
	open := types.PositionStatusOpen
	positions, err := s.ledger.ListPositions(accountID, &open)
	if err != nil {
		return Portfolio{}, err
	}
	summary, err := s.ledger.AccountSummary(accountID)
	if err != nil {
		return Portfolio{}, err
	}

	p := Portfolio{Balance: summary.Balance, Holdings: make([]Holding, 0, len(positions))}
	for _, pos := range positions {
		q, qerr := s.feed.Latest(pos.Symbol)
		if qerr != nil {
			// Symbol never quoted this session: carry it at entry price.
			q.Price = pos.EntryPrice
		}
		value := q.Price.Mul(pos.Qty)
		if pos.Side == types.SideSell {
			value = value.Neg()
		}
		p.PositionValue = p.PositionValue.Add(value)
		p.Holdings = append(p.Holdings, Holding{
			PositionID: pos.ID,
			Symbol:     pos.Symbol,
			Side:       pos.Side,
			Qty:        pos.Qty,
			EntryPrice: pos.EntryPrice,
			MarkPrice:  q.Price,
			Value:      value,
			PnL:        positionPnL(pos, q.Price),
		})
	}
	p.TotalValue = p.Balance.Add(p.PositionValue)
	return p, nil
}

func positionPnL(pos model.Position, mark decimal.Decimal) decimal.Decimal {
	if pos.Side == types.SideBuy {
		return mark.Sub(pos.EntryPrice).Mul(pos.Qty)
	}
	return pos.EntryPrice.Sub(mark).Mul(pos.Qty)
}

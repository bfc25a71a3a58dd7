package ledger

import (
	"context"

	"lv-papertrade/internal/model"
	"lv-papertrade/internal/quote"
	"lv-papertrade/internal/types"

	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

// Run consumes quotes and applies them to every account: pending orders
// whose trigger the quote crosses are filled, and open positions whose
// stop-loss or take-profit the quote crosses are closed. Returns when the
// context is cancelled or the channel closes.
func (l *Ledger) Run(ctx context.Context, quotes <-chan quote.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-quotes:
			if !ok {
				return
			}
			l.ApplyQuote(ctx, q)
		}
	}
}

// ApplyQuote walks every account once under its own lock. Journal writes
// happen after the lock is released.
func (l *Ledger) ApplyQuote(ctx context.Context, q quote.Quote) {
	l.mu.Lock()
	accts := make(map[string]*accountState, len(l.accounts))
	for id, acct := range l.accounts {
		accts[id] = acct
	}
	l.mu.Unlock()

	for accountID, acct := range accts {
		l.applyQuoteAccount(ctx, accountID, acct, q)
	}
}

type journalEntry struct {
	event string
	pos   model.Position
	delta decimal.Decimal
	why   string
}

func (l *Ledger) applyQuoteAccount(ctx context.Context, accountID string, acct *accountState, q quote.Quote) {
	var entries []journalEntry

	acct.mu.Lock()
	for _, pos := range acct.positions {
		if pos.Symbol != q.Symbol {
			continue
		}
		switch pos.Status {
		case types.PositionStatusPending:
			if !triggered(pos, q.Price) {
				continue
			}
			delta, err := l.fillLocked(pos, fillPrice(pos, q.Price), q.Timestamp)
			if err != nil {
				// The account cannot fund the fill. The order is dead, not
				// retried on every later tick.
				pos.Status = types.PositionStatusCancelled
				entries = append(entries, journalEntry{event: "cancel", pos: *pos})
				log.WithFields(log.Fields{"position": pos.ID, "account": accountID}).
					Info("pending order cancelled: fill not funded")
				continue
			}
			entries = append(entries, journalEntry{event: "open", pos: *pos, delta: delta, why: "position_fill"})
		case types.PositionStatusOpen:
			if !exitHit(pos, q.Price) {
				continue
			}
			delta := l.closeLocked(pos, q.Price, q.Timestamp)
			entries = append(entries, journalEntry{event: "close", pos: *pos, delta: delta, why: "position_close"})
		}
	}
	acct.mu.Unlock()

	for _, e := range entries {
		l.recordPosition(ctx, e.event, e.pos)
		if !e.delta.IsZero() {
			l.recordBalance(ctx, accountID, e.delta, e.why)
		}
	}
}

// triggered reports whether the quote crosses the pending order's trigger.
// Limit buys fill at or below the limit, limit sells at or above it. Stops
// are the mirror image: a stop buy arms at or above the stop price, a stop
// sell at or below. Stop-limit requires both conditions on the same quote.
func triggered(pos *model.Position, price decimal.Decimal) bool {
	switch pos.Kind {
	case types.OrderKindLimit:
		return limitCrossed(pos.Side, *pos.LimitPrice, price)
	case types.OrderKindStop:
		return stopCrossed(pos.Side, *pos.StopPrice, price)
	case types.OrderKindStopLimit:
		return stopCrossed(pos.Side, *pos.StopPrice, price) &&
			limitCrossed(pos.Side, *pos.LimitPrice, price)
	}
	return false
}

func limitCrossed(side types.Side, limit, price decimal.Decimal) bool {
	if side == types.SideBuy {
		return price.LessThanOrEqual(limit)
	}
	return price.GreaterThanOrEqual(limit)
}

func stopCrossed(side types.Side, stop, price decimal.Decimal) bool {
	if side == types.SideBuy {
		return price.GreaterThanOrEqual(stop)
	}
	return price.LessThanOrEqual(stop)
}

// fillPrice is the execution price for a triggered pending order. Limit and
// stop-limit orders fill at their limit price, plain stops at the quote.
func fillPrice(pos *model.Position, price decimal.Decimal) decimal.Decimal {
	if pos.Kind == types.OrderKindLimit || pos.Kind == types.OrderKindStopLimit {
		return *pos.LimitPrice
	}
	return price
}

// exitHit decides whether an open position's protective exits fire on this
// quote. The close settles at the triggering quote. When a single quote
// crosses both thresholds, the take-profit is evaluated first.
func exitHit(pos *model.Position, price decimal.Decimal) bool {
	if pos.TakeProfit != nil && takeProfitHit(pos.Side, *pos.TakeProfit, price) {
		return true
	}
	return pos.StopLoss != nil && stopLossHit(pos.Side, *pos.StopLoss, price)
}

func takeProfitHit(side types.Side, tp, price decimal.Decimal) bool {
	if side == types.SideBuy {
		return price.GreaterThanOrEqual(tp)
	}
	return price.LessThanOrEqual(tp)
}

func stopLossHit(side types.Side, sl, price decimal.Decimal) bool {
	if side == types.SideBuy {
		return price.LessThanOrEqual(sl)
	}
	return price.GreaterThanOrEqual(sl)
}

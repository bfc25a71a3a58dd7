package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"lv-papertrade/internal/balance"
	"lv-papertrade/internal/id"
	"lv-papertrade/internal/instrument"
	"lv-papertrade/internal/journal"
	"lv-papertrade/internal/model"
	"lv-papertrade/internal/quote"
	"lv-papertrade/internal/types"

	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

// Ledger owns every position and is the only writer of account balances.
// Mutations on one account run under that account's mutex, so a balance
// update and its position transition are observed together or not at all.
// Different accounts proceed fully in parallel.
//
// Accounting convention: a long open debits the entry notional and its close
// credits the close notional, so the balance change over a round trip equals
// the realized P&L. A short open credits the entry notional with no margin
// requirement (paper-trading simplification) and its close debits the
// buy-back cost, clamped at the available balance so the balance never goes
// negative.
type Ledger struct {
	registry *instrument.Registry
	feed     quote.Feed
	balances *balance.Store
	jour     journal.Journal

	mu       sync.Mutex
	accounts map[string]*accountState
	owners   map[string]string // position id -> account id
}

type accountState struct {
	mu        sync.Mutex
	positions map[string]*model.Position
}

func New(registry *instrument.Registry, feed quote.Feed, balances *balance.Store, jour journal.Journal) *Ledger {
	if jour == nil {
		jour = journal.NewNoop()
	}
	return &Ledger{
		registry: registry,
		feed:     feed,
		balances: balances,
		jour:     jour,
		accounts: make(map[string]*accountState),
		owners:   make(map[string]string),
	}
}

// EnsureAccount creates the account with the given starting balance if it
// does not exist yet. Existing accounts are left untouched.
func (l *Ledger) EnsureAccount(ctx context.Context, accountID string, startingBalance decimal.Decimal) {
	l.mu.Lock()
	if _, ok := l.accounts[accountID]; ok {
		l.mu.Unlock()
		return
	}
	l.accounts[accountID] = &accountState{positions: make(map[string]*model.Position)}
	l.mu.Unlock()
	l.balances.Set(accountID, startingBalance)
	l.recordBalance(ctx, accountID, startingBalance, "account_seed")
}

// ResetBalance overwrites the account's cash balance (admin operation).
func (l *Ledger) ResetBalance(ctx context.Context, accountID string, amount decimal.Decimal) error {
	acct, err := l.account(accountID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	previous := l.balances.Get(accountID)
	l.balances.Set(accountID, amount)
	acct.mu.Unlock()
	l.recordBalance(ctx, accountID, amount.Sub(previous), "balance_reset")
	return nil
}

// RemoveAccount drops the account, its balance and all its positions.
func (l *Ledger) RemoveAccount(accountID string) {
	l.mu.Lock()
	_, ok := l.accounts[accountID]
	if ok {
		delete(l.accounts, accountID)
		for pid, owner := range l.owners {
			if owner == accountID {
				delete(l.owners, pid)
			}
		}
	}
	l.mu.Unlock()
	if ok {
		l.balances.Remove(accountID)
	}
}

func (l *Ledger) account(accountID string) (*accountState, error) {
	l.mu.Lock()
	acct, ok := l.accounts[accountID]
	l.mu.Unlock()
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

type OpenRequest struct {
	AccountID  string
	Symbol     string
	Side       types.Side
	Kind       types.OrderKind
	Qty        decimal.Decimal
	LimitPrice *decimal.Decimal
	StopPrice  *decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

func (r OpenRequest) validatePrices() error {
	switch r.Kind {
	case types.OrderKindMarket:
		if r.LimitPrice != nil || r.StopPrice != nil {
			return errors.New("market orders take no limit or stop price")
		}
	case types.OrderKindLimit:
		if r.LimitPrice == nil || !r.LimitPrice.IsPositive() {
			return errors.New("limit price required for limit order")
		}
		if r.StopPrice != nil {
			return errors.New("stop price not allowed for limit order")
		}
	case types.OrderKindStop:
		if r.StopPrice == nil || !r.StopPrice.IsPositive() {
			return errors.New("stop price required for stop order")
		}
		if r.LimitPrice != nil {
			return errors.New("limit price not allowed for stop order")
		}
	case types.OrderKindStopLimit:
		if r.StopPrice == nil || !r.StopPrice.IsPositive() {
			return errors.New("stop price required for stop-limit order")
		}
		if r.LimitPrice == nil || !r.LimitPrice.IsPositive() {
			return errors.New("limit price required for stop-limit order")
		}
	}
	for _, p := range []*decimal.Decimal{r.StopLoss, r.TakeProfit} {
		if p != nil && !p.IsPositive() {
			return errors.New("stop-loss and take-profit must be positive")
		}
	}
	return nil
}

// OpenPosition validates the order against the registry and the account
// balance, then either fills it at the current quote (market) or parks it as
// Pending until a quote crosses its trigger (limit/stop/stop-limit).
func (l *Ledger) OpenPosition(ctx context.Context, req OpenRequest) (model.Position, error) {
	if !req.Side.Valid() {
		return model.Position{}, errors.New("invalid side")
	}
	if !req.Kind.Valid() {
		return model.Position{}, errors.New("invalid order kind")
	}
	inst, err := l.registry.Lookup(req.Symbol)
	if err != nil {
		return model.Position{}, err
	}
	if err := l.registry.ValidateQuantity(inst, req.Qty); err != nil {
		return model.Position{}, err
	}
	if err := req.validatePrices(); err != nil {
		return model.Position{}, err
	}

	l.mu.Lock()
	acct, ok := l.accounts[req.AccountID]
	l.mu.Unlock()
	if !ok {
		return model.Position{}, ErrAccountNotFound
	}

	now := time.Now().UTC()
	pos := &model.Position{
		ID:         id.New(),
		AccountID:  req.AccountID,
		Symbol:     inst.Symbol,
		Side:       req.Side,
		Kind:       req.Kind,
		Status:     types.PositionStatusPending,
		Qty:        req.Qty,
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		CreatedAt:  now,
	}

	var delta decimal.Decimal
	acct.mu.Lock()
	if req.Kind == types.OrderKindMarket {
		q, err := l.feed.Latest(inst.Symbol)
		if err != nil {
			acct.mu.Unlock()
			return model.Position{}, err
		}
		delta, err = l.fillLocked(pos, q.Price, now)
		if err != nil {
			acct.mu.Unlock()
			return model.Position{}, err
		}
	}
	acct.positions[pos.ID] = pos
	out := *pos
	acct.mu.Unlock()

	l.mu.Lock()
	l.owners[pos.ID] = req.AccountID
	l.mu.Unlock()

	l.recordPosition(ctx, "open", out)
	if !delta.IsZero() {
		l.recordBalance(ctx, req.AccountID, delta, "position_open")
	}
	return out, nil
}

// fillLocked moves a pending position to Open at the given price and applies
// the balance effect. Caller holds the account mutex. Returns the signed
// balance delta.
func (l *Ledger) fillLocked(pos *model.Position, price decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	notional := price.Mul(pos.Qty)
	var delta decimal.Decimal
	if pos.Side == types.SideBuy {
		if err := l.balances.Debit(pos.AccountID, notional); err != nil {
			return decimal.Zero, err
		}
		delta = notional.Neg()
	} else {
		if err := l.balances.Credit(pos.AccountID, notional); err != nil {
			return decimal.Zero, err
		}
		delta = notional
	}
	opened := now
	pos.EntryPrice = price
	pos.Status = types.PositionStatusOpen
	pos.OpenedAt = &opened
	return delta, nil
}

// ClosePosition closes an open position at the explicit price, or at the
// latest quote when none is given. accountID == "" skips the ownership
// check (internal callers only).
func (l *Ledger) ClosePosition(ctx context.Context, accountID, positionID string, closePrice *decimal.Decimal) (model.Position, error) {
	if closePrice != nil && !closePrice.IsPositive() {
		return model.Position{}, errors.New("close price must be positive")
	}
	acct, pos, err := l.lookup(accountID, positionID)
	if err != nil {
		return model.Position{}, err
	}

	now := time.Now().UTC()
	acct.mu.Lock()
	if pos.Status != types.PositionStatusOpen {
		acct.mu.Unlock()
		return model.Position{}, ErrInvalidState
	}
	price := decimal.Zero
	if closePrice != nil {
		price = *closePrice
	} else {
		q, qerr := l.feed.Latest(pos.Symbol)
		if qerr != nil {
			acct.mu.Unlock()
			return model.Position{}, qerr
		}
		price = q.Price
	}
	delta := l.closeLocked(pos, price, now)
	out := *pos
	acct.mu.Unlock()

	l.recordPosition(ctx, "close", out)
	if !delta.IsZero() {
		l.recordBalance(ctx, pos.AccountID, delta, "position_close")
	}
	return out, nil
}

// closeLocked settles an open position at price. Caller holds the account
// mutex. Returns the signed balance delta.
func (l *Ledger) closeLocked(pos *model.Position, price decimal.Decimal, now time.Time) decimal.Decimal {
	var pnl decimal.Decimal
	if pos.Side == types.SideBuy {
		pnl = price.Sub(pos.EntryPrice).Mul(pos.Qty)
	} else {
		pnl = pos.EntryPrice.Sub(price).Mul(pos.Qty)
	}

	closeNotional := price.Mul(pos.Qty)
	var delta decimal.Decimal
	if pos.Side == types.SideBuy {
		_ = l.balances.Credit(pos.AccountID, closeNotional)
		delta = closeNotional
	} else {
		// Buy back the short. The debit is clamped at the available balance:
		// a loss beyond the cash on hand is absorbed, never a negative balance.
		debit := closeNotional
		if available := l.balances.Get(pos.AccountID); debit.GreaterThan(available) {
			debit = available
		}
		if debit.IsPositive() {
			_ = l.balances.Debit(pos.AccountID, debit)
		}
		delta = debit.Neg()
	}

	closed := now
	pos.Status = types.PositionStatusClosed
	pos.RealizedPnL = &pnl
	pos.ClosePrice = &price
	pos.ClosedAt = &closed
	return delta
}

// CancelPosition withdraws a pending order. Open and terminal positions
// cannot be cancelled.
func (l *Ledger) CancelPosition(ctx context.Context, accountID, positionID string) error {
	acct, pos, err := l.lookup(accountID, positionID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	if pos.Status != types.PositionStatusPending {
		acct.mu.Unlock()
		return ErrInvalidState
	}
	pos.Status = types.PositionStatusCancelled
	out := *pos
	acct.mu.Unlock()

	l.recordPosition(ctx, "cancel", out)
	return nil
}

func (l *Ledger) lookup(accountID, positionID string) (*accountState, *model.Position, error) {
	l.mu.Lock()
	owner, ok := l.owners[positionID]
	if ok && accountID != "" && owner != accountID {
		ok = false
	}
	var acct *accountState
	if ok {
		acct = l.accounts[owner]
	}
	l.mu.Unlock()
	if acct == nil {
		return nil, nil, ErrPositionNotFound
	}
	acct.mu.Lock()
	pos := acct.positions[positionID]
	acct.mu.Unlock()
	if pos == nil {
		return nil, nil, ErrPositionNotFound
	}
	return acct, pos, nil
}

// ListPositions returns the account's positions newest-first, optionally
// filtered by status. Closed and cancelled positions are never deleted.
func (l *Ledger) ListPositions(accountID string, status *types.PositionStatus) ([]model.Position, error) {
	acct, err := l.account(accountID)
	if err != nil {
		return nil, err
	}
	acct.mu.Lock()
	out := make([]model.Position, 0, len(acct.positions))
	for _, pos := range acct.positions {
		if status != nil && pos.Status != *status {
			continue
		}
		out = append(out, *pos)
	}
	acct.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := sortTime(out[i]), sortTime(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func sortTime(p model.Position) time.Time {
	if p.OpenedAt != nil {
		return *p.OpenedAt
	}
	return p.CreatedAt
}

type Summary struct {
	Balance       decimal.Decimal `json:"balance"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	OpenCount     int             `json:"open_count"`
}

// AccountSummary marks open positions to the latest quotes. A symbol with no
// quote yet contributes zero unrealized P&L.
func (l *Ledger) AccountSummary(accountID string) (Summary, error) {
	acct, err := l.account(accountID)
	if err != nil {
		return Summary{}, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()

	s := Summary{Balance: l.balances.Get(accountID)}
	for _, pos := range acct.positions {
		switch pos.Status {
		case types.PositionStatusOpen:
			s.OpenCount++
			q, qerr := l.feed.Latest(pos.Symbol)
			if qerr != nil {
				continue
			}
			s.UnrealizedPnL = s.UnrealizedPnL.Add(unrealizedPnL(pos, q.Price))
		case types.PositionStatusClosed:
			if pos.RealizedPnL != nil {
				s.RealizedPnL = s.RealizedPnL.Add(*pos.RealizedPnL)
			}
		}
	}
	return s, nil
}

func unrealizedPnL(pos *model.Position, mark decimal.Decimal) decimal.Decimal {
	if pos.Side == types.SideBuy {
		return mark.Sub(pos.EntryPrice).Mul(pos.Qty)
	}
	return pos.EntryPrice.Sub(mark).Mul(pos.Qty)
}

func (l *Ledger) recordPosition(ctx context.Context, event string, pos model.Position) {
	if err := l.jour.RecordPosition(ctx, event, pos); err != nil {
		log.WithError(err).WithFields(log.Fields{"event": event, "position": pos.ID}).
			Warn("journal write failed")
	}
}

func (l *Ledger) recordBalance(ctx context.Context, accountID string, delta decimal.Decimal, reason string) {
	if err := l.jour.RecordBalance(ctx, accountID, delta, reason); err != nil {
		log.WithError(err).WithFields(log.Fields{"reason": reason, "account": accountID}).
			Warn("journal write failed")
	}
}

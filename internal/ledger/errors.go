package ledger

import (
	"errors"

	"lv-papertrade/internal/balance"
	"lv-papertrade/internal/instrument"
)

// The ledger API error taxonomy. All are synchronous caller failures: a
// rejected operation leaves balances and positions exactly as they were.
var (
	ErrUnknownInstrument = instrument.ErrUnknownInstrument
	ErrInvalidQuantity   = instrument.ErrInvalidQuantity
	ErrInsufficientFunds = balance.ErrInsufficientFunds
	ErrPositionNotFound  = errors.New("position not found")
	ErrInvalidState      = errors.New("invalid position state")
	ErrAccountNotFound   = errors.New("account not found")
)

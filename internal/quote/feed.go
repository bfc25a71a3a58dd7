package quote

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoQuote means the feed has not produced a price for the symbol yet.
// Callers evaluating stop-loss/take-profit skip the tick and retry on the
// next update.
var ErrNoQuote = errors.New("no quote for symbol")

type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Feed supplies the latest known price per symbol. Implementations must be
// non-blocking lookups against cached state, never a network round trip.
type Feed interface {
	Latest(symbol string) (Quote, error)
}

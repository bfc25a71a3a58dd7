package instrument

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// Instrument holds the per-symbol numeric rules every order is validated
// against. Immutable once registered.
type Instrument struct {
	Symbol         string          `json:"symbol"`
	QtyStep        decimal.Decimal `json:"qty_step"`
	PricePrecision int32           `json:"price_precision"`
}

// Registry is the read-mostly symbol table. Registration happens at startup
// or through the admin surface, never on the trading hot path.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Instrument
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Instrument)}
}

// NewDefaultRegistry seeds the registry with the platform's built-in symbols.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	defaults := []Instrument{
		{Symbol: "AAPL", QtyStep: decimal.NewFromInt(1), PricePrecision: 2},
		{Symbol: "GOOGL", QtyStep: decimal.NewFromInt(1), PricePrecision: 2},
		{Symbol: "MSFT", QtyStep: decimal.NewFromInt(1), PricePrecision: 2},
		{Symbol: "TSLA", QtyStep: decimal.NewFromInt(1), PricePrecision: 2},
		{Symbol: "BTC-USD", QtyStep: decimal.RequireFromString("0.0001"), PricePrecision: 2},
		{Symbol: "EUR-USD", QtyStep: decimal.RequireFromString("0.01"), PricePrecision: 4},
		{Symbol: "GBP-USD", QtyStep: decimal.RequireFromString("0.01"), PricePrecision: 4},
	}
	for _, inst := range defaults {
		_ = r.Register(inst)
	}
	return r
}

func (r *Registry) Register(inst Instrument) error {
	symbol := strings.ToUpper(strings.TrimSpace(inst.Symbol))
	if symbol == "" {
		return errors.New("symbol is required")
	}
	if !inst.QtyStep.GreaterThan(decimal.Zero) {
		return errors.New("qty step must be positive")
	}
	inst.Symbol = symbol
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[symbol]; ok {
		return fmt.Errorf("instrument %s already registered", symbol)
	}
	r.items[symbol] = inst
	return nil
}

func (r *Registry) Lookup(symbol string) (Instrument, error) {
	r.mu.RLock()
	inst, ok := r.items[strings.ToUpper(strings.TrimSpace(symbol))]
	r.mu.RUnlock()
	if !ok {
		return Instrument{}, ErrUnknownInstrument
	}
	return inst, nil
}

func (r *Registry) List() []Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instrument, 0, len(r.items))
	for _, inst := range r.items {
		out = append(out, inst)
	}
	return out
}

// ValidateQuantity enforces that qty is positive and a whole multiple of the
// instrument's minimum increment.
func (r *Registry) ValidateQuantity(inst Instrument, qty decimal.Decimal) error {
	if !qty.GreaterThan(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if !qty.Mod(inst.QtyStep).IsZero() {
		return ErrInvalidQuantity
	}
	return nil
}

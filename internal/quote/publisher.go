package quote

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

// Seed prices for the built-in symbols. The publisher random-walks around
// these; any other Feed implementation can replace it without the ledger
// noticing.
var defaultSeedPrices = map[string]string{
	"AAPL":    "182.63",
	"GOOGL":   "138.21",
	"MSFT":    "337.79",
	"TSLA":    "248.42",
	"BTC-USD": "43150.00",
	"EUR-USD": "1.0723",
	"GBP-USD": "1.2547",
}

// Publisher is the mock price oracle: a random walk per symbol pushed into
// the cache and onto the bus on every tick.
type Publisher struct {
	cache      *Cache
	bus        *Bus
	interval   time.Duration
	volatility float64
	precision  map[string]int32

	mu    sync.RWMutex
	last  map[string]decimal.Decimal
	opens map[string]decimal.Decimal
}

func NewPublisher(cache *Cache, bus *Bus, interval time.Duration, volatility float64, precision map[string]int32) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	if volatility <= 0 {
		volatility = 0.001
	}
	p := &Publisher{
		cache:      cache,
		bus:        bus,
		interval:   interval,
		volatility: volatility,
		precision:  precision,
		last:       make(map[string]decimal.Decimal),
		opens:      make(map[string]decimal.Decimal),
	}
	for symbol, raw := range defaultSeedPrices {
		price := decimal.RequireFromString(raw)
		p.last[symbol] = price
		p.opens[symbol] = price
	}
	return p
}

// SessionOpen returns the price the symbol started the session at, for
// change/change-percent reporting.
func (p *Publisher) SessionOpen(symbol string) (decimal.Decimal, bool) {
	p.mu.RLock()
	open, ok := p.opens[symbol]
	p.mu.RUnlock()
	return open, ok
}

// Start publishes one tick for every symbol immediately, then keeps ticking
// until the context is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	p.tick()
	log.WithFields(log.Fields{"symbols": len(p.last), "interval": p.interval}).
		Info("quote publisher started")
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()
}

func (p *Publisher) tick() {
	now := time.Now().UTC()
	p.mu.Lock()
	for symbol, price := range p.last {
		next := perturb(price, p.volatility, p.precisionFor(symbol))
		p.last[symbol] = next
		q := Quote{Symbol: symbol, Price: next, Timestamp: now}
		p.cache.Set(q)
		p.bus.Publish(q)
	}
	p.mu.Unlock()
}

func (p *Publisher) precisionFor(symbol string) int32 {
	if prec, ok := p.precision[symbol]; ok {
		return prec
	}
	return 2
}

func perturb(price decimal.Decimal, volatility float64, precision int32) decimal.Decimal {
	factor := 1 + (rand.Float64()-0.5)*2*volatility
	next := price.Mul(decimal.NewFromFloat(factor)).Round(precision)
	if !next.IsPositive() {
		return price
	}
	return next
}

package quote

import (
	"strings"
	"sync"
)

// Cache holds the latest quote per symbol. The publisher writes it on every
// tick; the ledger and HTTP layer read it.
type Cache struct {
	mu   sync.RWMutex
	data map[string]Quote
}

func NewCache() *Cache {
	return &Cache{data: make(map[string]Quote)}
}

func (c *Cache) Set(q Quote) {
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Symbol == "" || !q.Price.IsPositive() {
		return
	}
	c.mu.Lock()
	c.data[q.Symbol] = q
	c.mu.Unlock()
}

func (c *Cache) Latest(symbol string) (Quote, error) {
	c.mu.RLock()
	q, ok := c.data[strings.ToUpper(strings.TrimSpace(symbol))]
	c.mu.RUnlock()
	if !ok {
		return Quote{}, ErrNoQuote
	}
	return q, nil
}

package quote

import (
	"sync"
)

// Bus fans quotes out to subscribers. Publish never blocks: a subscriber that
// falls behind drops ticks rather than stalling the feed.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Quote]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Quote]struct{})}
}

func (b *Bus) Subscribe() chan Quote {
	ch := make(chan Quote, 100)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Quote) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(q Quote) {
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- q:
		default:
		}
	}
	b.mu.RUnlock()
}

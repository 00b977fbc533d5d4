package usecase

import (
	"sync"

	"TrendPull/internal/domain/models"
)

// SignalHub fans signal events out to in-process subscribers such as websocket clients.
// Slow subscribers drop events instead of blocking a run.
type SignalHub struct {
	mu   sync.RWMutex
	subs map[chan models.SignalEvent]string
}

func NewSignalHub() *SignalHub {
	return &SignalHub{subs: make(map[chan models.SignalEvent]string)}
}

// Subscribe returns a channel of events for symbol (empty for all) and its cancel func.
func (h *SignalHub) Subscribe(symbol string, buffer int) (<-chan models.SignalEvent, func()) {
	ch := make(chan models.SignalEvent, buffer)
	h.mu.Lock()
	h.subs[ch] = symbol
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Broadcast delivers events to every matching subscriber without blocking.
func (h *SignalHub) Broadcast(evs []models.SignalEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, symbol := range h.subs {
		for _, ev := range evs {
			if symbol != "" && symbol != ev.Symbol {
				continue
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *SignalHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

package chat

import (
	"sync"
	"sync/atomic"
)

// Broker is an in-process pub/sub of encoded frames keyed by channel.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}

	dropped atomic.Uint64
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives every frame published on channel.
func (b *Broker) Subscribe(channel string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(channel string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[channel], ch)
	if len(b.subs[channel]) == 0 {
		delete(b.subs, channel)
	}
	b.mu.Unlock()
}

// Publish delivers data to the local subscribers of channel.
func (b *Broker) Publish(channel string, data []byte) error {
	b.mu.RLock()
	for ch := range b.subs[channel] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
			b.dropped.Add(1)
		}
	}
	b.mu.RUnlock()
	return nil
}

// Dropped returns how many frames were discarded because a subscriber's
// buffer was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broker) subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

package stream

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/balhun/ISSTracker/internal/scene"
)

// Hub fans encoded scenes out to subscribers. Each subscriber has a one-slot
// buffer: when it falls behind, the pending scene is replaced by the newer
// one, so a slow client never blocks Publish.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	latest []byte
}

// Subscription receives encoded scenes on C until Close.
type Subscription struct {
	C   <-chan []byte
	ch  chan []byte
	hub *Hub
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Publish encodes s once and delivers it to every subscriber.
func (h *Hub) Publish(s scene.Scene) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = data
	for sub := range h.subs {
		offer(sub.ch, data)
	}
	return nil
}

// Latest returns the most recently published scene.
func (h *Hub) Latest() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.latest != nil
}

// Subscribe registers a subscriber. If a scene has been published it is
// already waiting on C.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan []byte, 1)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.latest != nil {
		ch <- h.latest
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	delete(s.hub.subs, s)
}

// Subscribers returns the number of registered subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// offer replaces any undelivered value in ch with data. Callers hold the hub
// lock, so there is a single sender per channel.
func offer(ch chan []byte, data []byte) {
	select {
	case ch <- data:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- data:
	default:
	}
}

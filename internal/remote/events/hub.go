// Package events fans auth session changes out to subscribers, either inside
// one process or across processes through Redis pub/sub.
package events

import (
	"context"
	"sync"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

// Hub publishes auth events and delivers them to subscribers in publish order.
type Hub interface {
	Publish(ctx context.Context, ev authdomain.AuthEvent) error
	Subscribe(fn func(authdomain.AuthEvent)) remote.Subscription
	Close() error
}

const subscriberBuffer = 32

// LocalHub delivers events to in-process subscribers. Each subscriber gets its
// own goroutine so a slow handler never blocks the others.
type LocalHub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	next   uint64
	closed bool
}

type subscriber struct {
	ch   chan authdomain.AuthEvent
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func NewLocalHub() *LocalHub {
	return &LocalHub{subs: make(map[uint64]*subscriber)}
}

func (h *LocalHub) Publish(ctx context.Context, ev authdomain.AuthEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (h *LocalHub) Subscribe(fn func(authdomain.AuthEvent)) remote.Subscription {
	s := &subscriber{
		ch:   make(chan authdomain.AuthEvent, subscriberBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return remote.SubscriptionFunc(func() {})
	}
	id := h.next
	h.next++
	h.subs[id] = s
	h.mu.Unlock()

	go func() {
		for {
			select {
			case ev := <-s.ch:
				fn(ev)
			case <-s.done:
				return
			}
		}
	}()

	return remote.SubscriptionFunc(func() {
		// stop first so a Publish blocked on this subscriber can move on
		s.stop()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	})
}

func (h *LocalHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		s.stop()
		delete(h.subs, id)
	}
	return nil
}

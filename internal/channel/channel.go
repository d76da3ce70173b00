// Package channel is the client side contract of the sync channel: publish
// and subscribe by event name, plus an observable connection state.
package channel

import (
	"context"
	"errors"
	"sync"
)

// ErrTransportUnavailable is returned by Publish while disconnected.
var ErrTransportUnavailable = errors.New("sync transport unavailable")

// Handler receives a decoded payload. Handlers for one channel run one at a
// time, in delivery order.
type Handler func(payload any)

// Channel is a publish/subscribe connection to the relay.
type Channel interface {
	Publish(ctx context.Context, event string, payload any) error
	Subscribe(event string, h Handler) (unsubscribe func())
	Connected() bool
	// OnConnection registers a watcher that is called immediately with the
	// current state and again on every change.
	OnConnection(func(connected bool)) (unsubscribe func())
}

type subscription struct {
	event string
	h     Handler
}

// Registry keeps subscriptions by event name.
type Registry struct {
	mu   sync.RWMutex
	subs []*subscription
}

// Subscribe adds a handler for event.
func (r *Registry) Subscribe(event string, h Handler) func() {
	s := &subscription{event: event, h: h}
	r.mu.Lock()
	r.subs = append(r.subs, s)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, cur := range r.subs {
				if cur == s {
					r.subs = append(r.subs[:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch calls every handler subscribed to event, in subscription order.
// It reports whether any handler was found.
func (r *Registry) Dispatch(event string, payload any) bool {
	r.mu.RLock()
	var hs []Handler
	for _, s := range r.subs {
		if s.event == event {
			hs = append(hs, s.h)
		}
	}
	r.mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
	return len(hs) > 0
}

// Status is a binary connected/disconnected observable.
type Status struct {
	mu        sync.Mutex
	connected bool
	watchers  map[int]func(bool)
	next      int
}

// Connected returns the current state.
func (s *Status) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Set changes the state and notifies watchers when it actually changed.
func (s *Status) Set(connected bool) {
	s.mu.Lock()
	if s.connected == connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected
	ws := make([]func(bool), 0, len(s.watchers))
	for i := 0; i < s.next; i++ {
		if w, ok := s.watchers[i]; ok {
			ws = append(ws, w)
		}
	}
	s.mu.Unlock()

	for _, w := range ws {
		w(connected)
	}
}

// Watch registers fn and calls it once with the current state.
func (s *Status) Watch(fn func(bool)) func() {
	s.mu.Lock()
	if s.watchers == nil {
		s.watchers = make(map[int]func(bool))
	}
	id := s.next
	s.next++
	s.watchers[id] = fn
	current := s.connected
	s.mu.Unlock()

	fn(current)
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/models"
)

const DefaultBuffer = 64

var (
	ErrBrokerClosed  = errors.New("broker closed")
	ErrInvalidFilter = errors.New("invalid subscription filter")
)

// Filter selects events of one session, optionally narrowed to tables
type Filter struct {
	SessionID string
	Tables    []string // empty means all tables
}

func (f Filter) validate() error {
	if f.SessionID == "" {
		return ErrInvalidFilter
	}
	for _, t := range f.Tables {
		if !models.IsValidTable(t) {
			return ErrInvalidFilter
		}
	}
	return nil
}

// Match reports whether ev passes the filter
func (f Filter) Match(ev models.Event) bool {
	if ev.SessionID != f.SessionID {
		return false
	}
	if len(f.Tables) == 0 {
		return true
	}
	for _, t := range f.Tables {
		if t == ev.Table {
			return true
		}
	}
	return false
}

// Subscription is a cancelable stream of matching events
type Subscription struct {
	filter Filter
	events chan models.Event
	done   chan struct{}
	broker *Broker
	once   sync.Once
}

// Events is closed when the subscription ends
func (s *Subscription) Events() <-chan models.Event { return s.events }

// Done is closed when the subscription ends
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel ends the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.done)
	})
}

// Broker fans committed events out to subscribers in-process. Publish never
// blocks: a subscriber whose buffer is full is dropped.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{} // session id -> subscriptions
	buffer int
	closed bool
	logger *slog.Logger
}

func NewBroker(buffer int, logger *slog.Logger) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: engine.ResolveLogger(logger),
	}
}

// Subscribe registers a subscription that lives until ctx is done or
// Cancel is called
func (b *Broker) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	sub := &Subscription{
		filter: f,
		events: make(chan models.Event, b.buffer),
		done:   make(chan struct{}),
		broker: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	if b.subs[f.SessionID] == nil {
		b.subs[f.SessionID] = make(map[*Subscription]struct{})
	}
	b.subs[f.SessionID][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Publish delivers ev to every matching subscriber
func (b *Broker) Publish(ctx context.Context, ev models.Event) {
	var slow []*Subscription

	b.mu.RLock()
	for sub := range b.subs[ev.SessionID] {
		if !sub.filter.Match(ev) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			slow = append(slow, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range slow {
		b.logger.Warn("dropping slow subscriber",
			"event", "doudou_subscriber_dropped",
			"module", "realtime",
			"session_id", ev.SessionID,
		)
		sub.Cancel()
	}
}

// Subscribers counts live subscriptions for a session
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

// Close ends every subscription and rejects new ones
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*Subscription
	for _, set := range b.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Cancel()
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[sub.filter.SessionID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.filter.SessionID)
	}
	// Publish sends under the read lock, so closing here cannot race a send
	close(sub.events)
}

var _ engine.Publisher = (*Broker)(nil)

package live

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const subscriptionBuffer = 64

// Subscription is a filtered, buffered view of a client's event stream. Its
// channel closes on Close or when the client disconnects; nothing is
// delivered after either.
type Subscription struct {
	id      string
	kinds   map[EventKind]struct{}
	ch      chan Event
	emitter *Emitter
	once    sync.Once
	dropped atomic.Int64
	warned  atomic.Bool
}

// Events is the receive side of the subscription.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Dropped counts events discarded because the subscriber was not draining.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close detaches the subscription and closes its channel. Safe to call more
// than once and concurrently with teardown.
func (s *Subscription) Close() {
	s.emitter.unsubscribe(s.id)
	s.closeChannel()
}

func (s *Subscription) closeChannel() {
	s.once.Do(func() { close(s.ch) })
}

func (s *Subscription) wants(kind EventKind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Emitter fans events out to subscriptions. Publish never blocks: a
// subscriber that does not drain its channel loses events instead of
// stalling the connection read loop.
type Emitter struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger, subs: make(map[string]*Subscription)}
}

// Subscribe registers a buffered feed for the given kinds; no kinds means
// every kind. After CloseAll the returned subscription is already closed.
func (e *Emitter) Subscribe(kinds ...EventKind) *Subscription {
	sub := &Subscription{
		id:      uuid.NewString(),
		ch:      make(chan Event, subscriptionBuffer),
		emitter: e,
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		sub.closeChannel()
		return sub
	}
	e.subs[sub.id] = sub
	e.mu.Unlock()
	return sub
}

// Publish delivers ev to every interested subscription. No-op after CloseAll.
func (e *Emitter) Publish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for _, sub := range e.subs {
		if !sub.wants(ev.Kind) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			if sub.warned.CompareAndSwap(false, true) {
				e.logger.Warn("live_subscriber_slow", "subscription_id", sub.id, "kind", string(ev.Kind))
			}
		}
	}
}

// CloseAll closes every subscription channel and refuses later publishes.
func (e *Emitter) CloseAll() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	subs := make([]*Subscription, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	e.subs = make(map[string]*Subscription)
	e.mu.Unlock()
	for _, s := range subs {
		s.closeChannel()
	}
}

func (e *Emitter) unsubscribe(id string) {
	e.mu.Lock()
	delete(e.subs, id)
	e.mu.Unlock()
}

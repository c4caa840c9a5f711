// Package fanout delivers a turn's session events to connected clients and
// assembles the conversation history. Each subscriber has its own bounded
// queue so a slow client never delays emission to the others.
package fanout

import (
	"log/slog"
	"sync"

	"tavern/internal/domain/models/game"
)

// DefaultQueueCap bounds a subscriber's pending events before narrative
// chunks start being coalesced away.
const DefaultQueueCap = 64

// Broadcaster fans session events out to subscribers. Subscriptions survive
// turn boundaries; clients stay attached across turns until they disconnect.
type Broadcaster struct {
	mu       sync.Mutex
	subs     map[string]*Subscription
	queueCap int
	closed   bool
	logger   *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:     make(map[string]*Subscription),
		queueCap: DefaultQueueCap,
		logger:   logger,
	}
}

// Subscribe attaches a client. The returned subscription's channel delivers
// events until Unsubscribe or Close.
func (b *Broadcaster) Subscribe(clientID string) *Subscription {
	sub := newSubscription(clientID, b.queueCap, b.logger)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.close()
		return sub
	}
	if prev, ok := b.subs[clientID]; ok {
		prev.close()
	}
	b.subs[clientID] = sub
	return sub
}

// Unsubscribe detaches a client and closes its event channel.
func (b *Broadcaster) Unsubscribe(clientID string) {
	b.mu.Lock()
	sub, ok := b.subs[clientID]
	delete(b.subs, clientID)
	b.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Publish enqueues the event for every subscriber.
func (b *Broadcaster) Publish(ev game.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.enqueue(ev)
	}
}

// SubscriberCount reports the number of attached clients.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches all subscribers. Used when the room shuts down.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*Subscription)
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// Subscription is one client's event feed. Events arrive in publish order;
// when the client falls behind, the oldest pending narrative chunk is dropped
// first. Dice, restriction, transition, and turn-end events are never
// dropped, so the queue may exceed its soft cap to keep them.
type Subscription struct {
	ClientID string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []game.SessionEvent
	cap    int
	closed bool

	out    chan game.SessionEvent
	logger *slog.Logger
}

func newSubscription(clientID string, queueCap int, logger *slog.Logger) *Subscription {
	s := &Subscription{
		ClientID: clientID,
		cap:      queueCap,
		out:      make(chan game.SessionEvent),
		logger:   logger,
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// Events is the client-facing feed. Closed when the subscription ends.
func (s *Subscription) Events() <-chan game.SessionEvent {
	return s.out
}

func (s *Subscription) enqueue(ev game.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.queue = append(s.queue, ev)
	if len(s.queue) > s.cap {
		if i := oldestDroppable(s.queue); i >= 0 {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			if s.logger != nil {
				s.logger.Debug("slow subscriber, dropped narrative chunk", "client_id", s.ClientID)
			}
		}
	}
	s.cond.Signal()
}

// oldestDroppable finds the first narrative chunk in the queue; other event
// types must be delivered.
func oldestDroppable(queue []game.SessionEvent) int {
	for i := range queue {
		if queue[i].Type == game.EventNarrativeChunk {
			return i
		}
	}
	return -1
}

func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			close(s.out)
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.out <- ev
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()

	// Drain on behalf of a reader that already went away.
	go func() {
		for range s.out {
		}
	}()
}

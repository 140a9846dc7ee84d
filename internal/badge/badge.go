// Package badge broadcasts the cart item count to independent subscribers.
package badge

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/checkout/pkg/logging"
	"github.com/google/uuid"
)

type Counter interface {
	Publish(n int)
}

// Topic is a single-value broadcast. New subscribers get the latest value right away.
// Callbacks run on the publisher's goroutine and must not publish or subscribe on the same topic.
type Topic struct {
	deliver sync.Mutex

	mu   sync.Mutex
	subs map[uint64]func(int)
	next uint64
	last int
	set  bool
}

func NewTopic() *Topic {
	return &Topic{subs: make(map[uint64]func(int))}
}

func (t *Topic) Publish(n int) {
	t.deliver.Lock()
	defer t.deliver.Unlock()

	t.mu.Lock()
	t.last, t.set = n, true
	fns := make([]func(int), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}

func (t *Topic) Subscribe(fn func(int)) (unsubscribe func()) {
	t.deliver.Lock()
	defer t.deliver.Unlock()

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = fn
	last, set := t.last, t.set
	t.mu.Unlock()

	if set {
		fn(last)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

func (t *Topic) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Latest returns the last published value and whether anything was published yet.
func (t *Topic) Latest() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.set
}

type Relay interface {
	Forward(ctx context.Context, userID uuid.UUID, n int) error
}

// Hub holds one topic per user and optionally forwards local publishes to other instances.
type Hub struct {
	mu     sync.Mutex
	topics map[uuid.UUID]*Topic
	relay  Relay
}

func NewHub() *Hub {
	return &Hub{topics: make(map[uuid.UUID]*Topic)}
}

func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

func (h *Hub) Topic(userID uuid.UUID) *Topic {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[userID]
	if !ok {
		t = NewTopic()
		h.topics[userID] = t
	}
	return t
}

// Subscribe registers fn on the user's topic. Prune never removes a topic between lookup and subscription.
func (h *Hub) Subscribe(userID uuid.UUID, fn func(int)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[userID]
	if !ok {
		t = NewTopic()
		h.topics[userID] = t
	}
	return t.Subscribe(fn)
}

// Deliver publishes locally only, and only to users this instance already tracks.
// The relay uses it for counts coming from other instances.
func (h *Hub) Deliver(userID uuid.UUID, n int) {
	h.mu.Lock()
	t, ok := h.topics[userID]
	h.mu.Unlock()
	if ok {
		t.Publish(n)
	}
}

// Prune drops topics nobody listens to, except for users keep reports as still active.
func (h *Hub) Prune(keep func(uuid.UUID) bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, t := range h.topics {
		if t.Subscribers() > 0 || (keep != nil && keep(id)) {
			continue
		}
		delete(h.topics, id)
		n++
	}
	return n
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}

func (h *Hub) Publish(userID uuid.UUID, n int) {
	h.Topic(userID).Publish(n)

	h.mu.Lock()
	r := h.relay
	h.mu.Unlock()
	if r == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Forward(ctx, userID, n); err != nil {
			logging.FromContext(ctx).Warn("badge_forward_failed", "user_id", userID, "error", err)
		}
	}()
}

func (h *Hub) Counter(userID uuid.UUID) Counter {
	return userCounter{hub: h, userID: userID}
}

type userCounter struct {
	hub    *Hub
	userID uuid.UUID
}

func (c userCounter) Publish(n int) { c.hub.Publish(c.userID, n) }

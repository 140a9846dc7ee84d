package cart

import (
	"sync"
	"time"

	"github.com/Skotchmaster/checkout/internal/badge"
	"github.com/Skotchmaster/checkout/internal/events"
	"github.com/google/uuid"
)

type entry struct {
	agg      *Aggregator
	lastUsed time.Time
}

// Registry hands out one Aggregator per user so every request of a session shares the same view.
type Registry struct {
	store  Store
	hub    *badge.Hub
	events events.Publisher

	mu   sync.Mutex
	aggs map[uuid.UUID]*entry
}

func NewRegistry(store Store, hub *badge.Hub, pub events.Publisher) *Registry {
	return &Registry{store: store, hub: hub, events: pub, aggs: make(map[uuid.UUID]*entry)}
}

func (r *Registry) For(userID uuid.UUID) *Aggregator {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.aggs[userID]
	if !ok {
		var counter badge.Counter
		if r.hub != nil {
			counter = r.hub.Counter(userID)
		}
		e = &entry{agg: NewAggregator(userID, r.store, counter, r.events)}
		r.aggs[userID] = e
	}
	e.lastUsed = time.Now()
	return e.agg
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.aggs)
}

// EvictIdle drops aggregators unused for at least idle and the badge topics nobody watches anymore.
// It returns the evicted users.
func (r *Registry) EvictIdle(idle time.Duration) []uuid.UUID {
	r.mu.Lock()
	var evicted []uuid.UUID
	for id, e := range r.aggs {
		if time.Since(e.lastUsed) >= idle {
			delete(r.aggs, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.Prune(func(id uuid.UUID) bool {
			r.mu.Lock()
			defer r.mu.Unlock()
			_, ok := r.aggs[id]
			return ok
		})
	}
	return evicted
}

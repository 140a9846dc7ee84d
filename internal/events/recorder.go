package events

import (
	"context"
	"sync"
)

type Record struct {
	Topic string
	Key   string
	Event any
}

// Recorder keeps published events in memory. Tests and local runs without brokers use it.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	Err     error
}

func (r *Recorder) PublishEvent(ctx context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.records = append(r.records, Record{Topic: topic, Key: key, Event: event})
	return nil
}

func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Recorder) Topic(topic string) []Record {
	var out []Record
	for _, rec := range r.Records() {
		if rec.Topic == topic {
			out = append(out, rec)
		}
	}
	return out
}

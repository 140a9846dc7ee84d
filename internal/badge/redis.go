package badge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Skotchmaster/checkout/pkg/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "badge:"

type relayMessage struct {
	Origin string `json:"origin"`
	Count  int    `json:"count"`
}

// RedisRelay keeps badge counts in sync across service instances over Redis pub/sub.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	origin string
}

func NewRedisRelay(client *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, hub: hub, origin: uuid.NewString()}
}

func (r *RedisRelay) Forward(ctx context.Context, userID uuid.UUID, n int) error {
	data, err := json.Marshal(relayMessage{Origin: r.origin, Count: n})
	if err != nil {
		return fmt.Errorf("marshal badge message: %w", err)
	}
	if err := r.client.Publish(ctx, channelPrefix+userID.String(), data).Err(); err != nil {
		return fmt.Errorf("publish badge message: %w", err)
	}
	return nil
}

// Run consumes counts published by other instances until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	l := logging.FromContext(ctx).With("component", "badge_relay")

	ps := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe badge channels: %w", err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID, count, skip, err := r.decode(msg)
			if err != nil {
				l.Warn("badge_message_invalid", "channel", msg.Channel, "error", err)
				continue
			}
			if skip {
				continue
			}
			r.hub.Deliver(userID, count)
		}
	}
}

func (r *RedisRelay) decode(msg *redis.Message) (uuid.UUID, int, bool, error) {
	userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
	if err != nil {
		return uuid.Nil, 0, false, err
	}
	var m relayMessage
	if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
		return uuid.Nil, 0, false, err
	}
	return userID, m.Count, m.Origin == r.origin, nil
}

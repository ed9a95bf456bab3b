package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Broadcaster pushes live notification updates to per-user feed channels.
// Delivery is best effort: subscribers that are offline simply miss the
// message and catch up from the notifications table.
type Broadcaster interface {
	Broadcast(ctx context.Context, env NotificationEnvelope) error
}

// RedisBroadcaster implements Broadcaster on Redis Pub/Sub.
type RedisBroadcaster struct {
	client *redis.Client
}

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, env NotificationEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal notification envelope: %w", err)
	}
	return b.client.Publish(ctx, UserChannel(env.RecipientID), data).Err()
}

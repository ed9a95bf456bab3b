package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Subscriber consumes live feed channels and hands payloads to a handler.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// SubscribeUserFeeds blocks, delivering every user-feed message to the
// handler until ctx is cancelled.
func (s *Subscriber) SubscribeUserFeeds(ctx context.Context, handler func(channel string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, UserChannelPattern)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		handler(msg.Channel, []byte(msg.Payload))
	}
}

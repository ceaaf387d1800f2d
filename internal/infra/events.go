package infra

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
	"gpufutures.com/internal/constants"
	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/event"
)

// NewRedisEventPublisher returns a bus handler that mirrors every
// engine event onto the Redis events channel for external consumers
// (keepers, indexers).
func NewRedisEventPublisher(rdb *redis.Client) event.Handler {
	return func(ctx context.Context, ev event.Event) error {
		payload, err := json.Marshal(map[string]interface{}{
			"type":      ev.Type,
			"timestamp": ev.Timestamp,
			"data":      ev.Data,
		})
		if err != nil {
			return err
		}
		return rdb.Publish(ctx, constants.RedisChannelFuturesEvents, payload).Err()
	}
}

// StartEventSubscriber relays events from the Redis channel to this
// instance's WebSocket clients. Local events take the same path, so
// every instance behind a load balancer pushes the same stream.
func StartEventSubscriber(rdb *redis.Client, notifier domain.Notifier, ctx context.Context) {
	pubsub := rdb.Subscribe(ctx, constants.RedisChannelFuturesEvents)

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("Warning: failed to subscribe to %s: %v", constants.RedisChannelFuturesEvents, err)
		return
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		log.Println("Started futures event subscriber loop")
		for msg := range ch {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("Event subscriber: bad payload: %v", err)
				continue
			}
			notifier.BroadcastToAll(payload)
		}
	}()
}

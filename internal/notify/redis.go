package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Florenz0707/NASSAV-sub000/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisPublisher publishes events on the shared events channel, for
// workers running outside the API process
type RedisPublisher struct {
	client redis.UniversalClient
}

// NewRedisPublisher creates a publisher on client
func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(stamp(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, cache.EventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Relay forwards events from the shared channel to a local publisher
type Relay struct {
	client redis.UniversalClient
	target Publisher
	logger *logrus.Logger
}

// NewRelay creates a relay from client into target
func NewRelay(client redis.UniversalClient, target Publisher, logger *logrus.Logger) *Relay {
	return &Relay{client: client, target: target, logger: logger}
}

// Run relays until ctx is cancelled
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, cache.EventsChannel)
	defer sub.Close()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cache.EventsChannel, err)
	}

	r.logger.WithField("channel", cache.EventsChannel).Info("Event relay started")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.WithError(err).Warn("Dropping malformed event")
				continue
			}
			if err := r.target.Publish(ctx, event); err != nil {
				r.logger.WithError(err).Warn("Failed to relay event")
			}
		}
	}
}

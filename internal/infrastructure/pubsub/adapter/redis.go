package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"jobboard/internal/infrastructure/pubsub/port"
)

// RedisBus is an adapter that satisfies the port.Bus interface using Redis pub/sub.
// It wraps a go-redis v9 Client.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus dials the Redis instance at url and verifies it with a ping.
func NewRedisBus(ctx context.Context, url string) (*RedisBus, error) {
	if url == "" {
		return nil, errors.New("redis: URL is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisBus{client: c}, nil
}

// Ensure interface compliance at compile time
var _ port.Bus = (*RedisBus)(nil)

func (r *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *RedisBus) Subscribe(ctx context.Context, channel string, h port.Handler) error {
	sub := r.client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription confirmation so publishes issued after
	// Subscribe returns its first message are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis: subscription closed")
			}
			h(ctx, []byte(msg.Payload))
		}
	}
}

func (r *RedisBus) Close() error {
	return r.client.Close()
}

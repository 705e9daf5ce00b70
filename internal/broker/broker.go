// Package broker is the pub/sub collaborator used to fan market events out
// to the rest of the system. Payloads are JSON documents on Redis channels.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTimeout is returned by Receive when no message arrived in time.
var ErrTimeout = errors.New("broker: receive timed out")

type Handler func(ctx context.Context, payload map[string]any)

type Broker struct {
	client *redis.Client
}

func New(client *redis.Client) *Broker {
	return &Broker{client: client}
}

// Publish sends one JSON payload to every current subscriber of channel and
// returns how many received it.
func (b *Broker) Publish(ctx context.Context, channel string, payload map[string]any) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", channel, err)
	}
	n, err := b.client.Publish(ctx, channel, raw).Result()
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", channel, err)
	}
	return n, nil
}

// Receive blocks for the next message on channel, up to timeout.
func (b *Broker) Receive(ctx context.Context, channel string, timeout time.Duration) (map[string]any, error) {
	sub := b.client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before the deadline starts.
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("receive %s: %w", channel, err)
	}
	return decode(channel, msg.Payload)
}

// Subscribe streams messages on channel into handler until ctx is cancelled.
// Messages that fail to decode are dropped.
func (b *Broker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	sub := b.client.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			payload, err := decode(channel, msg.Payload)
			if err != nil {
				continue
			}
			handler(ctx, payload)
		}
	}
}

func decode(channel, raw string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", channel, err)
	}
	return payload, nil
}

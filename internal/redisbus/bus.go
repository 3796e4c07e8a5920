// Package redisbus relays JSON messages between service instances over
// Redis pub/sub. Messages published by an instance are not delivered back
// to it.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

type Bus struct {
	client *redis.Client
	origin string
	wg     sync.WaitGroup
}

func New(client *redis.Client) *Bus {
	return &Bus{client: client, origin: uuid.NewString()}
}

// Publish sends v to every other instance listening on channel.
func (b *Bus) Publish(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal bus payload: %w", err)
	}
	data, err := json.Marshal(envelope{Origin: b.origin, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal bus envelope: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Listen subscribes to channel in the background and calls fn for every
// message from another instance until ctx is done.
func (b *Bus) Listen(ctx context.Context, channel string, fn func(payload []byte)) {
	pubsub := b.client.Subscribe(ctx, channel)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					slog.Warn("dropping malformed bus message", "channel", channel, "error", err)
					continue
				}
				if env.Origin == b.origin {
					continue
				}
				fn(env.Payload)
			}
		}
	}()
}

// Wait blocks until every listener has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}

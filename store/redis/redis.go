package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// PubSub provides a Redis-backed implementation of the store.PubSub interface.
type PubSub struct {
	client *goredis.Client
	ctx    context.Context
}

// NewPubSub creates a new Redis PubSub.
func NewPubSub(client *goredis.Client) *PubSub {
	return &PubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish publishes a message to a Redis channel.
func (p *PubSub) Publish(channel string, message []byte) error {
	return p.client.Publish(p.ctx, channel, message).Err()
}

// Subscribe subscribes to a Redis channel and invokes the handler for each message.
func (p *PubSub) Subscribe(channel string, handler func(message []byte)) error {
	pubsub := p.client.Subscribe(p.ctx, channel)

	// Wait for confirmation that subscription is created
	_, err := pubsub.Receive(p.ctx)
	if err != nil {
		return err
	}

	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for msg := range ch {
			handler([]byte(msg.Payload))
		}
	}()

	return nil
}

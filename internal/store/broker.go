package store

import (
	"context"
	"sync"

	"stickman_shake/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// Broker carries "profile changed" notifications between server instances.
// Payload is the user id; subscribers re-read the document themselves.
type Broker interface {
	Publish(ctx context.Context, userID string) error
	Listen(ctx context.Context) (<-chan string, error)
}

// ChannelName is the pub/sub channel for an app id.
func ChannelName(appID string) string {
	return "profiles:" + appID
}

// RedisBroker fans notifications out over Redis pub/sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

func NewRedisBroker(client *redis.Client, appID string) *RedisBroker {
	return &RedisBroker{client: client, channel: ChannelName(appID)}
}

func (b *RedisBroker) Publish(ctx context.Context, userID string) error {
	return b.client.Publish(ctx, b.channel, userID).Err()
}

func (b *RedisBroker) Listen(ctx context.Context) (<-chan string, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	// дожидаемся подтверждения подписки, иначе первые сообщения теряются
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan string, 256)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- m.Payload:
				default:
					logger.Warn("profile notification dropped", "channel", b.channel, "user_id", m.Payload)
				}
			}
		}
	}()
	return out, nil
}

// LocalBroker is the in-process broker used when Redis is not configured.
type LocalBroker struct {
	mu        sync.Mutex
	listeners map[chan string]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{listeners: make(map[chan string]struct{})}
}

func (b *LocalBroker) Publish(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.listeners {
		select {
		case ch <- userID:
		default:
			logger.Warn("profile notification dropped", "user_id", userID)
		}
	}
	return nil
}

func (b *LocalBroker) Listen(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 256)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()

	context.AfterFunc(ctx, func() {
		b.mu.Lock()
		delete(b.listeners, ch)
		b.mu.Unlock()
		close(ch)
	})
	return ch, nil
}

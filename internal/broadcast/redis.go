package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/metrics"
	"go-route-guard/internal/models"
)

var _ interfaces.Transport = (*RedisTransport)(nil)

// RedisTransport propagates cache messages over a KeyDB pub/sub channel
type RedisTransport struct {
	client  interfaces.KeyDbClient
	channel string
	logger  *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewRedisTransport creates a transport bound to channel
func NewRedisTransport(client interfaces.KeyDbClient, channel string, logger *zap.Logger) *RedisTransport {
	return &RedisTransport{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (t *RedisTransport) Publish(ctx context.Context, msg *models.Message) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return models.ErrTransportClosed
	}

	payload, err := Encode(msg)
	if err != nil {
		return err
	}

	if err := t.client.Publish(ctx, t.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", t.channel, err)
	}
	return nil
}

// Subscribe confirms the subscription and consumes messages until ctx is done or Close is called
func (t *RedisTransport) Subscribe(ctx context.Context, handler interfaces.MessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return models.ErrTransportClosed
	}
	if t.pubsub != nil {
		return fmt.Errorf("already subscribed to %s", t.channel)
	}

	pubsub := t.client.Subscribe(ctx, t.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", t.channel, err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	t.pubsub = pubsub
	t.cancel = cancel
	t.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		t.consume(consumeCtx, pubsub.Channel(), handler)
	}(t.done)

	t.logger.Info("Subscribed to broadcast channel", zap.String("channel", t.channel))
	return nil
}

func (t *RedisTransport) consume(ctx context.Context, messages <-chan *redis.Message, handler interfaces.MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			msg, err := Decode([]byte(raw.Payload))
			if err != nil {
				t.logger.Warn("Discarding malformed broadcast message",
					zap.String("channel", raw.Channel),
					zap.Error(err))
				metrics.RecordBroadcast("in", "unknown", "malformed")
				continue
			}
			handler(msg)
		}
	}
}

func (t *RedisTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	pubsub, cancel, done := t.pubsub, t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if pubsub != nil {
		err = pubsub.Close()
	}
	if done != nil {
		<-done
	}
	return err
}

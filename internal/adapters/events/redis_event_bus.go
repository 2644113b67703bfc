package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	redisclient "github.com/zatekoja/placesearch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

const (
	subscriberBuffer = 100

	// lastSelectionTTL bounds how long a session's latest selection stays
	// readable after it was published.
	lastSelectionTTL = time.Hour
)

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client *redisclient.Client
	mu     sync.RWMutex
	topics map[string]*topic
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

// topic is one Redis subscription and the local listeners fed from it
type topic struct {
	pubsub    *redis.PubSub
	listeners map[chan *entities.SelectionEvent]struct{}
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		topics: make(map[string]*topic),
		ctx:    ctx,
		cancel: cancel,
		logger: observability.ComponentLogger("event_bus"),
	}
}

// Publish publishes an event to all subscribers and records it as the
// session's latest selection in the same transaction.
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.SelectionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = b.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, channel, data)
		if event.SessionID != "" {
			pipe.Set(ctx, lastSelectionKey(event.SessionID), data, lastSelectionTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug().Str("channel", channel).Str("event_id", event.ID).Msg("published selection event")
	return nil
}

// LastSelection returns the most recent selection published for a session
func (b *RedisEventBus) LastSelection(ctx context.Context, sessionID string) (*entities.SelectionEvent, error) {
	data, err := b.client.Client().Get(ctx, lastSelectionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError("no selection recorded for session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last selection: %w", err)
	}
	return decodeSelection(data)
}

func lastSelectionKey(sessionID string) string {
	return "places:last_selection:" + sessionID
}

func decodeSelection(data []byte) (*entities.SelectionEvent, error) {
	var event entities.SelectionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, apperrors.NewParseError("malformed selection event", err)
	}
	return &event, nil
}

// Subscribe subscribes to events on a channel. The returned channel is closed
// when ctx is done, the channel is unsubscribed or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SelectionEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx.Err() != nil {
		return nil, errors.New("event bus is closed")
	}

	t, ok := b.topics[channel]
	if !ok {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		// Publishes issued after Subscribe returns must not be lost.
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		t = &topic{pubsub: pubsub, listeners: make(map[chan *entities.SelectionEvent]struct{})}
		b.topics[channel] = t
		go b.forward(channel, t)
	}

	listener := make(chan *entities.SelectionEvent, subscriberBuffer)
	t.listeners[listener] = struct{}{}
	b.logger.Debug().Str("channel", channel).Int("subscribers", len(t.listeners)).Msg("subscribed")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.detach(channel, t, listener)
	}()

	return listener, nil
}

// forward fans each message of a topic out to its listeners until the
// subscription closes.
func (b *RedisEventBus) forward(channel string, t *topic) {
	for msg := range t.pubsub.Channel() {
		event, err := decodeSelection([]byte(msg.Payload))
		if err != nil {
			b.logger.Warn().Err(err).Str("channel", channel).Msg("dropping selection event")
			continue
		}

		b.mu.RLock()
		for listener := range t.listeners {
			select {
			case listener <- event:
			default:
				b.logger.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
			}
		}
		b.mu.RUnlock()
	}

	if err := b.drop(channel, t); err != nil {
		b.logger.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
	}
}

// detach removes one listener and closes the topic once nobody listens
func (b *RedisEventBus) detach(channel string, t *topic, listener chan *entities.SelectionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := t.listeners[listener]; !ok {
		return
	}
	delete(t.listeners, listener)
	close(listener)

	if len(t.listeners) == 0 {
		if b.topics[channel] == t {
			delete(b.topics, channel)
		}
		_ = t.pubsub.Close()
		b.logger.Debug().Str("channel", channel).Msg("closed subscription")
	}
}

// drop closes every listener of t and its Redis subscription
func (b *RedisEventBus) drop(channel string, t *topic) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.topics[channel] == t {
		delete(b.topics, channel)
	}
	for listener := range t.listeners {
		close(listener)
	}
	t.listeners = nil

	if err := t.pubsub.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	return nil
}

// Unsubscribe closes every subscriber of a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.RLock()
	t, ok := b.topics[channel]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := b.drop(channel, t); err != nil {
		return err
	}
	b.logger.Debug().Str("channel", channel).Msg("unsubscribed")
	return nil
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	topics := make(map[string]*topic, len(b.topics))
	for channel, t := range b.topics {
		topics[channel] = t
	}
	b.mu.RUnlock()

	var errs []error
	for channel, t := range topics {
		if err := b.drop(channel, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

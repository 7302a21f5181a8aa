package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION SINKS
// Sinks are shared.EventHandler values meant for InMemoryEventBus.SubscribeAll.
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator produces notification ids.
type IDGenerator func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// LogSink writes every notification to the logger.
func LogSink(logger *slog.Logger) shared.EventHandler {
	l := logger.With("component", "notifications")
	return func(event shared.Event) error {
		l.Info("progress notification",
			"kind", event.EventType().NotificationKind(),
			"event_type", event.EventType(),
			"user_id", event.AggregateID(),
			"payload", event.Payload(),
		)
		return nil
	}
}

// ChannelPublisher is the part of the Redis cache used for pub/sub.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// PubSubSinkConfig configures the pub/sub sink.
type PubSubSinkConfig struct {
	Publisher ChannelPublisher

	// Channel maps an event type to a channel name.
	Channel func(eventType shared.EventType) string

	// IDs defaults to NewID.
	IDs IDGenerator

	// Timeout bounds one publish call.
	Timeout time.Duration

	// Breaker skips publishing while the broker keeps failing. Optional.
	Breaker *circuitbreaker.CircuitBreaker
}

// PubSubSink publishes an EventEnvelope per notification.
func PubSubSink(cfg PubSubSinkConfig) (shared.EventHandler, error) {
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("pubsub sink: publisher is required")
	}
	if cfg.Channel == nil {
		cfg.Channel = func(t shared.EventType) string { return string(t) }
	}
	if cfg.IDs == nil {
		cfg.IDs = NewID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	return func(event shared.Event) error {
		env, err := shared.NewEventEnvelope(cfg.IDs(), event)
		if err != nil {
			return fmt.Errorf("pubsub sink: encode %s: %w", event.EventType(), err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		publish := func(ctx context.Context) error {
			return cfg.Publisher.Publish(ctx, cfg.Channel(event.EventType()), env)
		}
		if cfg.Breaker != nil {
			err = cfg.Breaker.Execute(ctx, publish)
		} else {
			err = publish(ctx)
		}
		if err != nil {
			return fmt.Errorf("pubsub sink: publish %s: %w", event.EventType(), err)
		}
		return nil
	}, nil
}

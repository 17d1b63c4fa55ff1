package ports

import (
	"context"

	"dropx/internal/delivery-service/core/domain/model"
)

// IEventBroker is the fire-and-forget transport for domain events. A publish
// failure never fails the transition that produced the event.
type IEventBroker interface {
	Publish(ctx context.Context, ev model.Event) error
	// Consume binds a queue to the topic exchange on the given routing-key
	// patterns and yields the decoded events. The channel closes when ctx
	// ends or the underlying stream closes.
	Consume(ctx context.Context, queue string, keys ...string) (<-chan model.Event, error)
	IsAlive() bool
	Close() error
}

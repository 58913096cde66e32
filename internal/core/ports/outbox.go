package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
)

// OutboxMessage is one domain event stored for publication. Seq is assigned by storage
// and gives the causal order of events.
type OutboxMessage struct {
	Seq           int64
	EventID       kernel.UUID
	EventName     string
	AggregateType string
	AggregateID   kernel.UUID
	Payload       []byte
	OccurredAt    time.Time
	PublishedAt   *time.Time
}

// NewOutboxMessage serialises a domain event. The payload is the JSON of the event
// itself, so every concrete event decides its own wire fields.
func NewOutboxMessage(e kernel.DomainEvent) (OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s: %w", e.EventName(), err)
	}
	return OutboxMessage{
		EventID:       e.EventID(),
		EventName:     e.EventName(),
		AggregateType: e.AggregateType(),
		AggregateID:   e.AggregateID(),
		Payload:       payload,
		OccurredAt:    e.OccurredAt(),
	}, nil
}

// PublishFunc delivers one outbox message to the event bus.
type PublishFunc func(ctx context.Context, msg OutboxMessage) error

// OutboxRepository drains the outbox.
type OutboxRepository interface {
	// Relay claims up to limit unpublished messages in seq order, passes them one by one
	// to publish and marks the published ones, all in one transaction. It stops at the
	// first publish error, keeping the remaining messages for the next run, and returns
	// the number of messages marked together with that error.
	Relay(ctx context.Context, limit int, publish PublishFunc) (int, error)

	// Pending returns the number of unpublished messages.
	Pending(ctx context.Context) (int64, error)
}

// EventPublisher sends outbox messages to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, msg OutboxMessage) error
}

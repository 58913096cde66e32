package kernel

import "time"

// DomainEvent is an immutable fact recorded by an aggregate. Events are collected by the
// unit of work and stored in the outbox in the same transaction as the state change.
type DomainEvent interface {
	EventID() UUID
	EventName() string
	AggregateID() UUID
	AggregateType() string
	OccurredAt() time.Time
}

// EventMeta carries the envelope fields shared by every event. Concrete events embed it,
// which also flattens the fields into their JSON payload.
type EventMeta struct {
	ID        UUID      `json:"event_id"`
	Aggregate UUID      `json:"aggregate_id"`
	At        time.Time `json:"occurred_at"`
}

// NewEventMeta stamps a fresh event id for the aggregate at the given instant.
func NewEventMeta(aggregateID UUID, at time.Time) EventMeta {
	return EventMeta{
		ID:        NewUUID(),
		Aggregate: aggregateID,
		At:        at.UTC(),
	}
}

func (m EventMeta) EventID() UUID         { return m.ID }
func (m EventMeta) AggregateID() UUID     { return m.Aggregate }
func (m EventMeta) OccurredAt() time.Time { return m.At }

// EventRecorder accumulates events raised by an aggregate until they are drained.
type EventRecorder struct {
	events []DomainEvent
}

// Record appends an event.
func (r *EventRecorder) Record(e DomainEvent) {
	r.events = append(r.events, e)
}

// DomainEvents returns the pending events in the order they were raised.
func (r *EventRecorder) DomainEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ClearDomainEvents drops pending events once they are persisted.
func (r *EventRecorder) ClearDomainEvents() {
	r.events = nil
}

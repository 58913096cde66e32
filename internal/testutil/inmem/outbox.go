// Package inmem provides in-memory implementations of the core ports for tests: a
// versioned store behind a unit of work, the outbox, both location tiers and a
// recording notifier. They follow the contracts of the postgres and redis adapters,
// including optimistic version checks and transactional outbox writes.
package inmem

import (
	"context"
	"slices"
	"sync"
	"time"

	"courier-dispatch/internal/core/ports"
)

// Outbox is an in-memory ports.OutboxRepository.
type Outbox struct {
	mu       sync.Mutex
	seq      int64
	messages []ports.OutboxMessage
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) append(msgs ...ports.OutboxMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appendLocked(msgs...)
}

func (o *Outbox) appendLocked(msgs ...ports.OutboxMessage) {
	for _, m := range msgs {
		o.seq++
		m.Seq = o.seq
		o.messages = append(o.messages, m)
	}
}

// Messages returns every stored message in seq order.
func (o *Outbox) Messages() []ports.OutboxMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.messages)
}

// EventNames returns the event names of the messages of one aggregate, in seq order.
func (o *Outbox) EventNames(aggregateID string) []string {
	var names []string
	for _, m := range o.Messages() {
		if m.AggregateID.String() == aggregateID {
			names = append(names, m.EventName)
		}
	}
	return names
}

// Relay implements ports.OutboxRepository.
func (o *Outbox) Relay(ctx context.Context, limit int, publish ports.PublishFunc) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	done := 0
	for i := range o.messages {
		if done == limit {
			break
		}
		if o.messages[i].PublishedAt != nil {
			continue
		}
		if err := publish(ctx, o.messages[i]); err != nil {
			return done, err
		}
		now := time.Now()
		o.messages[i].PublishedAt = &now
		done++
	}
	return done, nil
}

// Pending implements ports.OutboxRepository.
func (o *Outbox) Pending(context.Context) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var n int64
	for _, m := range o.messages {
		if m.PublishedAt == nil {
			n++
		}
	}
	return n, nil
}

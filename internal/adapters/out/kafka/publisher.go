// Package kafka publishes outbox messages to Kafka through a sarama SyncProducer.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/ports"

	"github.com/IBM/sarama"
)

// Default topics.
const (
	TopicPackageStatus   = "delivery.package.status.v1"
	TopicCourierEvents   = "delivery.courier.events.v1"
	TopicCourierLocation = "delivery.courier.location.v1"
)

// Message headers.
const (
	HeaderEventID   = "event_id"
	HeaderEventName = "event_name"
)

// ErrUnknownAggregate is returned for messages whose aggregate type has no topic.
var ErrUnknownAggregate = errors.New("no topic for aggregate type")

// Topics maps aggregate types to topics. Empty fields select the defaults.
type Topics struct {
	PackageStatus   string
	CourierEvents   string
	CourierLocation string
}

func (t Topics) byAggregate() map[string]string {
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return map[string]string{
		parcel.AggregateType:      pick(t.PackageStatus, TopicPackageStatus),
		courier.AggregateType:     pick(t.CourierEvents, TopicCourierEvents),
		geolocation.AggregateType: pick(t.CourierLocation, TopicCourierLocation),
	}
}

// Envelope is the value written to Kafka. Payload carries the event's own JSON.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventName     string          `json:"event_name"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Seq           int64           `json:"seq"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewProducerConfig returns the producer settings used in production: acks from all
// in-sync replicas and an idempotent producer, so a relay retry cannot reorder a
// partition.
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// Publisher implements ports.EventPublisher. Messages are keyed by aggregate id, so all
// events of one aggregate land on one partition in seq order.
type Publisher struct {
	producer sarama.SyncProducer
	topics   map[string]string
}

// NewPublisher wraps a producer created with NewProducerConfig or a sarama mock.
func NewPublisher(producer sarama.SyncProducer, topics Topics) *Publisher {
	return &Publisher{producer: producer, topics: topics.byAggregate()}
}

// Publish sends one message and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, msg ports.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topic, ok := p.topics[msg.AggregateType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAggregate, msg.AggregateType)
	}

	value, err := json.Marshal(Envelope{
		EventID:       msg.EventID.String(),
		EventName:     msg.EventName,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID.String(),
		Seq:           msg.Seq,
		OccurredAt:    msg.OccurredAt.UTC(),
		Payload:       msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.EventName, err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(msg.AggregateID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventID), Value: []byte(msg.EventID.String())},
			{Key: []byte(HeaderEventName), Value: []byte(msg.EventName)},
		},
		Timestamp: msg.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s %s: %w", msg.EventName, msg.EventID, err)
	}
	return nil
}

// Close closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

// Package rabbitmq sends courier assignment notifications to the push gateway over
// RabbitMQ.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"courier-dispatch/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange the push gateway binds to.
const DefaultExchange = "courier.notifications"

// publishTimeout bounds one publish including the broker confirm.
const publishTimeout = 5 * time.Second

var ErrNotAcknowledged = errors.New("rabbitmq: publish not acknowledged")

// AssignmentMessage is the body of an assignment notification.
type AssignmentMessage struct {
	Type            string    `json:"type"`
	CourierID       string    `json:"courier_id"`
	PushToken       string    `json:"push_token,omitempty"`
	PackageID       string    `json:"package_id"`
	PickupLat       float64   `json:"pickup_lat"`
	PickupLon       float64   `json:"pickup_lon"`
	PickupAddress   string    `json:"pickup_address,omitempty"`
	DeliveryLat     float64   `json:"delivery_lat"`
	DeliveryLon     float64   `json:"delivery_lon"`
	DeliveryAddress string    `json:"delivery_address,omitempty"`
	Priority        int       `json:"priority"`
	Instructions    string    `json:"instructions,omitempty"`
	AssignedAt      time.Time `json:"assigned_at"`
}

func newAssignmentMessage(a ports.Assignment) AssignmentMessage {
	return AssignmentMessage{
		Type:            "package_assigned",
		CourierID:       a.CourierID.String(),
		PushToken:       a.PushToken,
		PackageID:       a.PackageID.String(),
		PickupLat:       a.Pickup.Point().Lat(),
		PickupLon:       a.Pickup.Point().Lon(),
		PickupAddress:   a.Pickup.Address(),
		DeliveryLat:     a.Delivery.Point().Lat(),
		DeliveryLon:     a.Delivery.Point().Lon(),
		DeliveryAddress: a.Delivery.Address(),
		Priority:        a.Priority,
		Instructions:    a.Instructions,
		AssignedAt:      a.AssignedAt.UTC(),
	}
}

// RoutingKey returns the key an assignment for the courier is published with.
// Pattern: courier.{courier_id}.assignment
func RoutingKey(courierID string) string {
	return "courier." + courierID + ".assignment"
}

// Notifier implements ports.CourierNotifier with publisher confirms.
type Notifier struct {
	// mu serialises publishes on the single confirm channel.
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Dial connects, opens a confirm channel and declares the exchange.
func Dial(url, exchange string) (*Notifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err = ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}
	if err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Notifier{conn: conn, ch: ch, exchange: exchange}, nil
}

// NotifyAssignment publishes the notification and waits for the broker confirm.
func (n *Notifier) NotifyAssignment(ctx context.Context, a ports.Assignment) error {
	body, err := json.Marshal(newAssignmentMessage(a))
	if err != nil {
		return fmt.Errorf("rabbitmq: encode assignment: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn.IsClosed() || n.ch.IsClosed() {
		return errors.New("rabbitmq: channel is not open")
	}

	confirm, err := n.ch.PublishWithDeferredConfirmWithContext(ctx,
		n.exchange, RoutingKey(a.CourierID.String()),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    a.PackageID.String(),
			Timestamp:    a.AssignedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: wait confirm: %w", err)
	}
	if !acked {
		return ErrNotAcknowledged
	}
	return nil
}

// Close closes the channel and the connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return errors.Join(n.ch.Close(), n.conn.Close())
}

// Package kafka consumes courier location reports from Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/pkg/errs"

	"github.com/IBM/sarama"
)

// LocationHandler records one location report.
type LocationHandler interface {
	Handle(ctx context.Context, command commands.UpdateLocationCommand) (geostore.RecordResult, error)
}

// retryDelay is the pause before the group rejoins after a consume error.
const retryDelay = time.Second

// Consumer wraps a sarama consumer group and feeds the location handler.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler LocationHandler
	logger  *slog.Logger
}

// NewConsumer creates a consumer. It returns nil when brokers, group or topic are not
// configured; a nil Consumer is safe to Run and Close.
func NewConsumer(
	brokers []string,
	groupID, topic string,
	handler LocationHandler,
	logger *slog.Logger,
) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return newConsumer(group, topic, handler, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, topic string, handler LocationHandler, logger *slog.Logger) *Consumer {
	return &Consumer{
		group:   group,
		topic:   topic,
		handler: handler,
		logger:  logger.With("component", "location_consumer", "topic", topic),
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.ErrorContext(ctx, "consume failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks malformed and rejected reports as consumed. Any other error ends the
// claim without marking, so the report is redelivered after the rebalance.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	logger := h.c.logger

	for msg := range claim.Messages() {
		var report LocationReport
		if err := json.Unmarshal(msg.Value, &report); err != nil {
			logger.WarnContext(ctx, "bad location json", "offset", msg.Offset, "error", err)
			sess.MarkMessage(msg, "")
			continue
		}

		cmd, err := report.Command()
		if err != nil {
			logger.WarnContext(ctx, "invalid location report",
				"courier_id", report.CourierID, "offset", msg.Offset, "error", err)
			sess.MarkMessage(msg, "")
			continue
		}

		if _, err = h.c.handler.Handle(ctx, cmd); err != nil {
			if isPermanent(err) {
				logger.WarnContext(ctx, "location report rejected",
					"courier_id", report.CourierID, "error", err)
				sess.MarkMessage(msg, "")
				continue
			}
			logger.ErrorContext(ctx, "location report failed, retry",
				"courier_id", report.CourierID, "error", err)
			return err
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}

func isPermanent(err error) bool {
	return errs.IsValidation(err) || errors.Is(err, errs.ErrObjectNotFound)
}

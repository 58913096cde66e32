// Package outboxrepo stores domain events in the outbox table and drains them for the
// relay. Rows are written in the transaction of the state change that raised them.
package outboxrepo

import (
	"context"
	"fmt"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDTO is one outbox row. Seq is a bigserial and gives the causal order.
type OutboxDTO struct {
	Seq           int64      `gorm:"primaryKey;autoIncrement"`
	EventID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	EventName     string     `gorm:"type:varchar(64);not null"`
	AggregateType string     `gorm:"type:varchar(32);not null"`
	AggregateID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Payload       []byte     `gorm:"type:jsonb;not null"`
	OccurredAt    time.Time  `gorm:"not null"`
	PublishedAt   *time.Time `gorm:"index"`
}

// TableName specifies the outbox table name.
func (OutboxDTO) TableName() string {
	return "outbox"
}

func fromMessage(m ports.OutboxMessage) OutboxDTO {
	return OutboxDTO{
		EventID:       m.EventID.Bytes(),
		EventName:     m.EventName,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID.Bytes(),
		Payload:       m.Payload,
		OccurredAt:    m.OccurredAt,
	}
}

func toMessage(dto OutboxDTO) (ports.OutboxMessage, error) {
	eventID, err := kernel.UUIDFromBytes(dto.EventID[:])
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	aggregateID, err := kernel.UUIDFromBytes(dto.AggregateID[:])
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	return ports.OutboxMessage{
		Seq:           dto.Seq,
		EventID:       eventID,
		EventName:     dto.EventName,
		AggregateType: dto.AggregateType,
		AggregateID:   aggregateID,
		Payload:       dto.Payload,
		OccurredAt:    dto.OccurredAt,
		PublishedAt:   dto.PublishedAt,
	}, nil
}

// Append inserts the messages through db, which is normally an open transaction.
func Append(ctx context.Context, db *gorm.DB, msgs []ports.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	dtos := make([]OutboxDTO, 0, len(msgs))
	for _, m := range msgs {
		dtos = append(dtos, fromMessage(m))
	}
	return db.WithContext(ctx).Create(&dtos).Error
}

// GormOutboxRepository implements ports.OutboxRepository.
type GormOutboxRepository struct {
	db    *gorm.DB
	clock kernel.Clock
}

// NewGormOutboxRepository creates the relay side of the outbox.
func NewGormOutboxRepository(db *gorm.DB, clock kernel.Clock) *GormOutboxRepository {
	return &GormOutboxRepository{db: db, clock: clock}
}

// Relay locks the oldest unpublished rows with FOR UPDATE SKIP LOCKED, publishes them in
// seq order and marks the published prefix. Rows after a failed publish stay pending.
//
// Example:
//
//	n, err := repo.Relay(ctx, 100, publisher.Publish)
//	if err != nil {
//		logger.Warn("outbox relay stopped early", "published", n, "error", err)
//	}
func (r *GormOutboxRepository) Relay(ctx context.Context, limit int, publish ports.PublishFunc) (int, error) {
	var (
		marked     int
		publishErr error
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dtos []OutboxDTO
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("published_at IS NULL").
			Order("seq").
			Limit(limit).
			Find(&dtos).Error; err != nil {
			return err
		}

		seqs := make([]int64, 0, len(dtos))
		for _, dto := range dtos {
			msg, err := toMessage(dto)
			if err == nil {
				err = publish(ctx, msg)
			}
			if err != nil {
				publishErr = fmt.Errorf("publish outbox message %d (%s): %w", dto.Seq, dto.EventName, err)
				break
			}
			seqs = append(seqs, dto.Seq)
		}
		if len(seqs) == 0 {
			return nil
		}

		result := tx.Model(&OutboxDTO{}).
			Where("seq IN ?", seqs).
			Update("published_at", r.clock.Now().UTC())
		marked = int(result.RowsAffected)
		return result.Error
	})
	if err != nil {
		return 0, err
	}

	return marked, publishErr
}

// Pending counts unpublished rows.
func (r *GormOutboxRepository) Pending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&OutboxDTO{}).Where("published_at IS NULL").Count(&count).Error
	return count, err
}

// Package postgres provides the GORM implementation of the Unit of Work pattern.
// A unit of work wraps one database transaction, hands out repositories bound to it and
// tracks every aggregate they write. On Commit the domain events of the tracked
// aggregates are appended to the outbox in the same transaction, so a state change and
// the events describing it are stored together or not at all.
//
// Usage Patterns:
//
//	factory := NewGormUnitOfWorkFactory(db)
//	uow := factory.Create()
//
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer uow.Rollback(ctx)
//
//	// The package row is written before the courier row.
//	if err := uow.PackageRepository().Update(ctx, pkg); err != nil {
//	    return err
//	}
//	if err := uow.CourierRepository().Update(ctx, courier); err != nil {
//	    return err
//	}
//
//	return uow.Commit(ctx)
//
// Concurrency Considerations:
//   - Each UnitOfWork instance provides isolated transactions
//   - Multiple goroutines should use separate UnitOfWork instances
//   - Repositories update with a version predicate; a lost race surfaces as
//     errs.ErrVersionIsInvalid and is retried by the command handlers
package postgres

import (
	"context"
	"fmt"

	"courier-dispatch/internal/adapters/out/postgres/courierrepo"
	"courier-dispatch/internal/adapters/out/postgres/outboxrepo"
	"courier-dispatch/internal/adapters/out/postgres/packagerepo"
	"courier-dispatch/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates UnitOfWork instances using GORM database connections.
// Factory ensures each business operation gets a fresh unit of work instance
// with proper isolation from other concurrent operations.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory creates a factory for GORM-based unit of work instances.
//
// Example:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil {
//	    log.Fatal("failed to connect database")
//	}
//	factory := NewGormUnitOfWorkFactory(db)
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create produces a new UnitOfWork instance with its own transaction state and
// aggregate tracking.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{
		db:      f.db,
		tracked: make([]ports.Aggregate, 0),
	}
}

// GormUnitOfWork coordinates one database transaction and the outbox rows of the
// aggregates written in it.
type GormUnitOfWork struct {
	db      *gorm.DB
	tx      *gorm.DB
	tracked []ports.Aggregate
}

// Begin initiates a new database transaction for the unit of work.
// Multiple calls to Begin on the same instance are safe and will not create nested transactions.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	uow.tx = uow.db.WithContext(ctx).Begin()
	if uow.tx.Error != nil {
		err := uow.tx.Error
		uow.tx = nil
		return err
	}

	return nil
}

// Commit appends the pending domain events of every tracked aggregate to the outbox and
// commits. The events are cleared from the aggregates only after the commit succeeded.
//
// Returns gorm.ErrInvalidTransaction if no transaction is active.
func (uow *GormUnitOfWork) Commit(ctx context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	msgs, err := uow.outboxMessages()
	if err != nil {
		uow.abort()
		return err
	}
	if err = outboxrepo.Append(ctx, uow.tx, msgs); err != nil {
		uow.abort()
		return fmt.Errorf("append outbox: %w", err)
	}

	err = uow.tx.Commit().Error
	uow.tx = nil
	if err != nil {
		uow.tracked = uow.tracked[:0]
		return err
	}

	for _, a := range uow.tracked {
		a.ClearDomainEvents()
	}
	uow.tracked = uow.tracked[:0]
	return nil
}

// Rollback discards all changes made within the current transaction and forgets the
// tracked aggregates. Returns gorm.ErrInvalidTransaction if no transaction is active,
// which is what a deferred Rollback after a successful Commit sees.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	uow.tracked = uow.tracked[:0]
	return err
}

func (uow *GormUnitOfWork) abort() {
	uow.tx.Rollback()
	uow.tx = nil
	uow.tracked = uow.tracked[:0]
}

func (uow *GormUnitOfWork) outboxMessages() ([]ports.OutboxMessage, error) {
	var msgs []ports.OutboxMessage
	for _, a := range uow.tracked {
		for _, e := range a.DomainEvents() {
			m, err := ports.NewOutboxMessage(e)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}

// CourierRepository provides courier persistence bound to the current transaction, or
// to the main connection when none is active.
func (uow *GormUnitOfWork) CourierRepository() ports.CourierRepository {
	return courierrepo.NewGormCourierRepository(uow.conn(), uow)
}

// PackageRepository provides package persistence bound to the current transaction, or
// to the main connection when none is active.
func (uow *GormUnitOfWork) PackageRepository() ports.PackageRepository {
	return packagerepo.NewGormPackageRepository(uow.conn(), uow)
}

// TrackAggregate registers an aggregate written through one of the repositories.
// An aggregate written twice is tracked once.
func (uow *GormUnitOfWork) TrackAggregate(aggregate ports.Aggregate) {
	for _, a := range uow.tracked {
		if a == aggregate {
			return
		}
	}
	uow.tracked = append(uow.tracked, aggregate)
}

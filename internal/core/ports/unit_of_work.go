package ports

import (
	"context"

	"courier-dispatch/internal/core/domain/model/kernel"
)

// UnitOfWorkFactory creates new UnitOfWork instances for each request/command.
// This ensures proper isolation between concurrent operations.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork represents a business transaction boundary.
// Every aggregate added or updated through its repositories is tracked; on Commit the
// domain events of the tracked aggregates are appended to the outbox inside the same
// transaction, and cleared from the aggregates once the commit succeeded.
type UnitOfWork interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context) error

	// Commit writes the outbox rows and commits the current transaction.
	// Returns error if no active transaction or commit fails.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction and forgets tracked aggregates.
	// Returns error if no active transaction or rollback fails.
	Rollback(ctx context.Context) error

	// CourierRepository returns a CourierRepository bound to the current transaction.
	CourierRepository() CourierRepository

	// PackageRepository returns a PackageRepository bound to the current transaction.
	PackageRepository() PackageRepository
}

// Aggregate is what the unit of work needs from a tracked aggregate.
type Aggregate interface {
	ID() kernel.UUID
	DomainEvents() []kernel.DomainEvent
	ClearDomainEvents()
}

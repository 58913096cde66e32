// Package commands is the lifecycle coordinator: every operation that changes package or
// courier state. Each command is validated at construction, and each handler runs inside
// one unit of work, so state, version bumps and outbox rows commit together. The handlers
// are the only layer that retries optimistic-concurrency conflicts.
package commands

import (
	"context"

	"courier-dispatch/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// PackageRepoFactory provides access to the package repository within a transaction.
	PackageRepoFactory interface {
		PackageRepository() ports.PackageRepository
	}

	// CourierRepoFactory provides access to the courier repository within a transaction.
	CourierRepoFactory interface {
		CourierRepository() ports.CourierRepository
	}

	// PackageUoW manages transactions for package-only operations.
	PackageUoW interface {
		TxManager
		PackageRepoFactory
	}

	// PackageUoWFactory creates new package unit of work instances.
	PackageUoWFactory interface {
		Create() PackageUoW
	}

	// CourierUoW manages transactions for courier-only operations.
	CourierUoW interface {
		TxManager
		CourierRepoFactory
	}

	// CourierUoWFactory creates new courier unit of work instances.
	CourierUoWFactory interface {
		Create() CourierUoW
	}

	// UoW manages transactions across both package and courier aggregates.
	// Handlers write the package row before the courier row.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   packageRepo := uow.PackageRepository()
	//   courierRepo := uow.CourierRepository()
	//   // ... perform operations
	//
	//   err = uow.Commit(ctx)
	UoW interface {
		TxManager
		CourierRepoFactory
		PackageRepoFactory
	}

	// UoWFactory creates new unit of work instances for cross-aggregate operations.
	UoWFactory interface {
		Create() UoW
	}
)

// NewUoWFactory narrows a ports.UnitOfWorkFactory to UoWFactory.
func NewUoWFactory(f ports.UnitOfWorkFactory) UoWFactory { return uowFactory{f} }

// NewPackageUoWFactory narrows a ports.UnitOfWorkFactory to PackageUoWFactory.
func NewPackageUoWFactory(f ports.UnitOfWorkFactory) PackageUoWFactory { return packageUoWFactory{f} }

// NewCourierUoWFactory narrows a ports.UnitOfWorkFactory to CourierUoWFactory.
func NewCourierUoWFactory(f ports.UnitOfWorkFactory) CourierUoWFactory { return courierUoWFactory{f} }

type uowFactory struct{ f ports.UnitOfWorkFactory }

func (u uowFactory) Create() UoW { return u.f.Create() }

type packageUoWFactory struct{ f ports.UnitOfWorkFactory }

func (u packageUoWFactory) Create() PackageUoW { return u.f.Create() }

type courierUoWFactory struct{ f ports.UnitOfWorkFactory }

func (u courierUoWFactory) Create() CourierUoW { return u.f.Create() }

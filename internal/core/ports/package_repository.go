package ports

import (
	"context"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
)

// PackageRepository defines the persistence contract for package aggregates.
type PackageRepository interface {
	// Add persists a new package.
	Add(ctx context.Context, aggregate *parcel.Package) error

	// Update persists a changed package with the same optimistic version check as
	// CourierRepository.Update.
	Update(ctx context.Context, aggregate *parcel.Package) error

	// Get retrieves a package by id or returns errs.ErrObjectNotFound.
	Get(ctx context.Context, id kernel.UUID) (*parcel.Package, error)

	// FindByOrderID returns the package created for an order, or errs.ErrObjectNotFound.
	FindByOrderID(ctx context.Context, orderID kernel.UUID) (*parcel.Package, error)

	// FindPooled returns up to limit packages waiting in the pool, most urgent first and
	// then oldest first.
	FindPooled(ctx context.Context, limit int) ([]*parcel.Package, error)
}

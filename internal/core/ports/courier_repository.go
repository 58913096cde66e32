// Package ports defines the contracts between the dispatch core and its infrastructure:
// repositories, the unit of work, the two location tiers, the outbox, the event bus,
// courier notifications and metrics. Adapters implement them; tests substitute
// in-memory doubles.
package ports

import (
	"context"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
)

// CourierRepository defines the persistence contract for courier aggregates.
type CourierRepository interface {
	// Add persists a new courier aggregate.
	Add(ctx context.Context, courier *courier.Courier) error

	// Update persists a changed courier. The row is written only when its stored version
	// still equals the version the aggregate was loaded with; otherwise
	// errs.ErrVersionIsInvalid is returned and nothing is written.
	Update(ctx context.Context, courier *courier.Courier) error

	// Get retrieves a courier by id or returns errs.ErrObjectNotFound.
	Get(ctx context.Context, id kernel.UUID) (*courier.Courier, error)

	// Exists reports whether a courier with the id is registered, archived ones included.
	Exists(ctx context.Context, id kernel.UUID) (bool, error)

	// FindDispatchable returns the couriers that may receive a package of the zone:
	// status Free, load below capacity and work zone equal to zone or "*".
	// Shift and location rules are left to the dispatcher.
	//
	// Example:
	//   couriers, err := repo.FindDispatchable(ctx, "berlin")
	//   if err != nil {
	//       return fmt.Errorf("load candidates: %w", err)
	//   }
	FindDispatchable(ctx context.Context, zone string) ([]*courier.Courier, error)
}

package commands

import (
	"errors"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/guard"
)

var ErrUpdateLocationCommandIsNotConstructed = errors.New(
	"UpdateLocationCommand must be created via NewUpdateLocationCommand constructor",
)

// UpdateLocationCommand is one GPS report of a courier.
//
// Example:
//
//	cmd, err := NewUpdateLocationCommand(courierID, 52.52, 13.405, 8, time.Now(), &speed, nil)
//	if err != nil {
//	    return fmt.Errorf("invalid report: %w", err)
//	}
//	result, err := handler.Handle(ctx, cmd)
type UpdateLocationCommand struct {
	snapshot geolocation.Snapshot

	guard guard.ConstructorGuard
}

// NewUpdateLocationCommand validates coordinates and the optional speed and heading.
// The receive-time window is checked by the handler against its clock.
func NewUpdateLocationCommand(
	courierID kernel.UUID,
	lat, lon, accuracyM float64,
	recordedAt time.Time,
	speedKmh, headingDeg *float64,
) (UpdateLocationCommand, error) {
	point, err := kernel.NewCoordinates(lat, lon)
	if err != nil {
		return UpdateLocationCommand{}, err
	}
	snapshot, err := geolocation.NewSnapshot(courierID, point, recordedAt, accuracyM, speedKmh, headingDeg)
	if err != nil {
		return UpdateLocationCommand{}, err
	}

	return UpdateLocationCommand{
		snapshot: snapshot,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (c UpdateLocationCommand) Validate() error {
	return c.guard.Validate(ErrUpdateLocationCommandIsNotConstructed)
}

func (c UpdateLocationCommand) Snapshot() geolocation.Snapshot { return c.snapshot }

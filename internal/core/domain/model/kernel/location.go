package kernel

import (
	"fmt"

	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

// maxAddressLength bounds the free-form display label.
const maxAddressLength = 512

// ErrLocationIsNotConstructed is returned when a zero-value Location is used.
var ErrLocationIsNotConstructed = errs.NewValueIsRequiredError(
	"location must be created via NewLocation")

// Location is a geographic point plus an optional human-readable address.
// The address is opaque display data: dispatch only ever looks at the point.
//
// Example:
//
//	point, _ := kernel.NewCoordinates(52.5200, 13.4050)
//	pickup, err := kernel.NewLocation(point, "Alexanderplatz 1, Berlin")
type Location struct { //nolint:recvcheck //using for validation
	point   Coordinates
	address string
	guard   guard.ConstructorGuard
}

// NewLocation creates a Location from a valid point and an optional address.
//
// Returns:
//   - Location: the created value
//   - error: when point is not constructed or the address is longer than 512 bytes
func NewLocation(point Coordinates, address string) (Location, error) {
	if err := point.Validate(); err != nil {
		return Location{}, err
	}
	if len(address) > maxAddressLength {
		return Location{}, errs.NewValueIsOutOfRangeError("address length", len(address), 0, maxAddressLength)
	}

	return Location{
		point:   point,
		address: address,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// NewLocationFromLatLon validates lat/lon and builds a Location in one step.
func NewLocationFromLatLon(lat, lon float64, address string) (Location, error) {
	point, err := NewCoordinates(lat, lon)
	if err != nil {
		return Location{}, err
	}
	return NewLocation(point, address)
}

// Validate reports whether the location was built through a constructor.
func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

// Point returns the coordinates of the location.
func (l Location) Point() Coordinates {
	return l.point
}

// Address returns the display label, possibly empty.
func (l Location) Address() string {
	return l.address
}

// IsEqual compares two locations by point and address.
func (l Location) IsEqual(other Location) bool {
	return l.point.IsEqual(other.point) && l.address == other.address
}

// DistanceKm is the haversine distance between the points of two locations.
func (l Location) DistanceKm(other Location) float64 {
	return l.point.DistanceKm(other.point)
}

func (l Location) String() string {
	if l.address == "" {
		return fmt.Sprintf("Location%s", l.point)
	}
	return fmt.Sprintf("Location%s %q", l.point, l.address)
}

package kernel

import (
	"errors"
	"fmt"
	"math"

	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

const (
	// LatitudeMin is the southernmost valid latitude in degrees.
	LatitudeMin = -90.0
	// LatitudeMax is the northernmost valid latitude in degrees.
	LatitudeMax = 90.0
	// LongitudeMin is the westernmost valid longitude in degrees.
	LongitudeMin = -180.0
	// LongitudeMax is the easternmost valid longitude in degrees.
	LongitudeMax = 180.0

	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0088
)

// ErrCoordinatesIsNotConstructed is returned when a zero-value Coordinates is used.
var ErrCoordinatesIsNotConstructed = errs.NewValueIsRequiredError(
	"coordinates must be created via NewCoordinates")

// Coordinates is an immutable geographic point in decimal degrees (WGS84).
// Equality is value equality of latitude and longitude.
//
// Example:
//
//	berlin, _ := kernel.NewCoordinates(52.5200, 13.4050)
//	hamburg, _ := kernel.NewCoordinates(53.5511, 9.9937)
//	km := berlin.DistanceKm(hamburg) // ~255 km
type Coordinates struct { //nolint:recvcheck //using for validation
	lat   float64
	lon   float64
	guard guard.ConstructorGuard
}

// NewCoordinates validates and creates Coordinates.
//
// Parameters:
//   - lat: latitude in [-90, 90]
//   - lon: longitude in [-180, 180]
//
// Returns:
//   - Coordinates: a valid point
//   - error: joined range errors for every invalid component
func NewCoordinates(lat, lon float64) (Coordinates, error) {
	c := Coordinates{guard: guard.NewConstructorGuard()}
	if err := errors.Join(c.setLat(lat), c.setLon(lon)); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// MustNewCoordinates is NewCoordinates for literals known to be valid. It panics otherwise.
func MustNewCoordinates(lat, lon float64) Coordinates {
	c, err := NewCoordinates(lat, lon)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate reports whether the point was built through NewCoordinates.
func (c Coordinates) Validate() error {
	return c.guard.Validate(ErrCoordinatesIsNotConstructed)
}

// Lat returns the latitude in degrees.
func (c Coordinates) Lat() float64 {
	return c.lat
}

// Lon returns the longitude in degrees.
func (c Coordinates) Lon() float64 {
	return c.lon
}

// IsEqual compares two points by value.
func (c Coordinates) IsEqual(other Coordinates) bool {
	return c.lat == other.lat && c.lon == other.lon
}

// String returns "(lat,lon)" with six decimals.
func (c Coordinates) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", c.lat, c.lon)
}

// DistanceKm returns the great-circle distance to other in kilometres using the haversine
// formula. It is symmetric and zero for equal points.
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	return Haversine(c.lat, c.lon, other.lat, other.lon)
}

// Haversine computes the great-circle distance in kilometres between two points given in
// decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// rounding can push a marginally above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func (c *Coordinates) setLat(lat float64) error {
	if math.IsNaN(lat) || lat < LatitudeMin || lat > LatitudeMax {
		return errs.NewValueIsOutOfRangeError("latitude", lat, LatitudeMin, LatitudeMax)
	}
	c.lat = lat
	return nil
}

func (c *Coordinates) setLon(lon float64) error {
	if math.IsNaN(lon) || lon < LongitudeMin || lon > LongitudeMax {
		return errs.NewValueIsOutOfRangeError("longitude", lon, LongitudeMin, LongitudeMax)
	}
	c.lon = lon
	return nil
}

package kernel

import (
	"errors"
	"fmt"

	"courier-dispatch/internal/pkg/errs"
)

// GeofenceKind names the shape of a Geofence.
type GeofenceKind string

const (
	GeofenceCircle    GeofenceKind = "circle"
	GeofenceRectangle GeofenceKind = "rectangle"
	GeofencePolygon   GeofenceKind = "polygon"
)

// minPolygonVertices is the smallest vertex count that encloses an area.
const minPolygonVertices = 3

// Geofence is an area on the map that can answer point-membership questions.
// Only on-demand tests are supported; entry and exit streams are not tracked.
type Geofence interface {
	Kind() GeofenceKind
	Contains(point Coordinates) bool
}

// CircleGeofence contains every point within RadiusKm of its centre (boundary included).
type CircleGeofence struct {
	center   Coordinates
	radiusKm float64
}

// NewCircleGeofence validates the centre and requires a positive radius.
func NewCircleGeofence(center Coordinates, radiusKm float64) (CircleGeofence, error) {
	if err := center.Validate(); err != nil {
		return CircleGeofence{}, err
	}
	if radiusKm <= 0 {
		return CircleGeofence{}, errs.NewValueIsInvalidErrorWithCause(
			"radius_km", fmt.Errorf("%v is not greater than 0", radiusKm))
	}
	return CircleGeofence{center: center, radiusKm: radiusKm}, nil
}

func (g CircleGeofence) Kind() GeofenceKind { return GeofenceCircle }

func (g CircleGeofence) Contains(point Coordinates) bool {
	return g.center.DistanceKm(point) <= g.radiusKm
}

// RectangleGeofence is an axis-aligned box between a south-west and a north-east corner.
// Boxes crossing the antimeridian are not supported.
type RectangleGeofence struct {
	southWest Coordinates
	northEast Coordinates
}

// NewRectangleGeofence requires southWest to be strictly south-west of northEast.
func NewRectangleGeofence(southWest, northEast Coordinates) (RectangleGeofence, error) {
	if err := errors.Join(southWest.Validate(), northEast.Validate()); err != nil {
		return RectangleGeofence{}, err
	}
	if southWest.Lat() >= northEast.Lat() || southWest.Lon() >= northEast.Lon() {
		return RectangleGeofence{}, errs.NewValueIsInvalidErrorWithCause(
			"rectangle",
			fmt.Errorf("%s is not south-west of %s", southWest, northEast),
		)
	}
	return RectangleGeofence{southWest: southWest, northEast: northEast}, nil
}

func (g RectangleGeofence) Kind() GeofenceKind { return GeofenceRectangle }

func (g RectangleGeofence) Contains(point Coordinates) bool {
	return point.Lat() >= g.southWest.Lat() && point.Lat() <= g.northEast.Lat() &&
		point.Lon() >= g.southWest.Lon() && point.Lon() <= g.northEast.Lon()
}

// PolygonGeofence is a simple polygon given by its vertices in order. The ring is closed
// implicitly.
type PolygonGeofence struct {
	vertices []Coordinates
}

// NewPolygonGeofence requires at least three valid vertices.
func NewPolygonGeofence(vertices []Coordinates) (PolygonGeofence, error) {
	if len(vertices) < minPolygonVertices {
		return PolygonGeofence{}, errs.NewValueIsOutOfRangeError(
			"polygon vertices", len(vertices), minPolygonVertices, "unbounded")
	}
	for i, v := range vertices {
		if err := v.Validate(); err != nil {
			return PolygonGeofence{}, fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	cp := make([]Coordinates, len(vertices))
	copy(cp, vertices)
	return PolygonGeofence{vertices: cp}, nil
}

func (g PolygonGeofence) Kind() GeofenceKind { return GeofencePolygon }

// Contains uses ray casting on the lat/lon plane, which is accurate enough for
// city-sized areas.
func (g PolygonGeofence) Contains(point Coordinates) bool {
	inside := false
	n := len(g.vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := g.vertices[i], g.vertices[j]
		if (vi.Lat() > point.Lat()) != (vj.Lat() > point.Lat()) {
			crossLon := (vj.Lon()-vi.Lon())*(point.Lat()-vi.Lat())/(vj.Lat()-vi.Lat()) + vi.Lon()
			if point.Lon() < crossLon {
				inside = !inside
			}
		}
	}
	return inside
}

// Vertices returns a copy of the polygon ring.
func (g PolygonGeofence) Vertices() []Coordinates {
	cp := make([]Coordinates, len(g.vertices))
	copy(cp, g.vertices)
	return cp
}

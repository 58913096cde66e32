package queries

import (
	"errors"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

// MaxLocationBatch is the largest number of couriers GetLocations accepts.
const MaxLocationBatch = 100

var (
	ErrGetLocationQueryIsNotConstructed = errors.New(
		"GetLocationQuery must be created via NewGetLocationQuery constructor",
	)
	ErrGetLocationsQueryIsNotConstructed = errors.New(
		"GetLocationsQuery must be created via NewGetLocationsQuery constructor",
	)
	ErrGetLocationHistoryQueryIsNotConstructed = errors.New(
		"GetLocationHistoryQuery must be created via NewGetLocationHistoryQuery constructor",
	)
	ErrCheckGeofenceQueryIsNotConstructed = errors.New(
		"CheckGeofenceQuery must be created via NewCheckGeofenceQuery constructor",
	)
)

// LocationView is the read model of one reported position.
type LocationView struct {
	CourierID  kernel.UUID
	Lat        float64
	Lon        float64
	AccuracyM  float64
	SpeedKmh   *float64
	HeadingDeg *float64
	RecordedAt time.Time
	Suspicious bool
}

// NewLocationView maps a snapshot to its read model.
func NewLocationView(s geolocation.Snapshot) LocationView {
	return LocationView{
		CourierID:  s.CourierID(),
		Lat:        s.Point().Lat(),
		Lon:        s.Point().Lon(),
		AccuracyM:  s.AccuracyM(),
		SpeedKmh:   s.SpeedKmh(),
		HeadingDeg: s.HeadingDeg(),
		RecordedAt: s.RecordedAt(),
		Suspicious: s.Suspicious(),
	}
}

// GetLocationQuery reads the current position of one courier.
type GetLocationQuery struct {
	courierID kernel.UUID
	guard     guard.ConstructorGuard
}

func NewGetLocationQuery(courierID kernel.UUID) (GetLocationQuery, error) {
	if err := courierID.Validate(); err != nil {
		return GetLocationQuery{}, errs.NewValueIsInvalidErrorWithCause("courier_id", err)
	}
	return GetLocationQuery{courierID: courierID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetLocationQuery) CourierID() kernel.UUID { return q.courierID }

func (q GetLocationQuery) Validate() error {
	return q.guard.Validate(ErrGetLocationQueryIsNotConstructed)
}

// GetLocationsQuery reads the current positions of up to MaxLocationBatch couriers.
type GetLocationsQuery struct {
	courierIDs []kernel.UUID
	guard      guard.ConstructorGuard
}

// NewGetLocationsQuery requires 1..MaxLocationBatch ids. Duplicates are collapsed and the
// first-seen order is kept.
func NewGetLocationsQuery(courierIDs []kernel.UUID) (GetLocationsQuery, error) {
	if len(courierIDs) == 0 || len(courierIDs) > MaxLocationBatch {
		return GetLocationsQuery{}, errs.NewValueIsOutOfRangeError("courier_ids", len(courierIDs), 1, MaxLocationBatch)
	}

	seen := make(map[kernel.UUID]struct{}, len(courierIDs))
	ids := make([]kernel.UUID, 0, len(courierIDs))
	for _, id := range courierIDs {
		if err := id.Validate(); err != nil {
			return GetLocationsQuery{}, errs.NewValueIsInvalidErrorWithCause("courier_ids", err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return GetLocationsQuery{courierIDs: ids, guard: guard.NewConstructorGuard()}, nil
}

func (q GetLocationsQuery) CourierIDs() []kernel.UUID {
	return append([]kernel.UUID(nil), q.courierIDs...)
}

func (q GetLocationsQuery) Validate() error {
	return q.guard.Validate(ErrGetLocationsQueryIsNotConstructed)
}

// GetLocationHistoryQuery pages through the stored positions of a courier in [from, to).
type GetLocationHistoryQuery struct {
	courierID kernel.UUID
	period    kernel.TimeRange
	limit     int
	offset    int
	guard     guard.ConstructorGuard
}

// NewGetLocationHistoryQuery validates the range and paging. A zero limit selects the
// store default of 100; the maximum is 1000.
func NewGetLocationHistoryQuery(
	courierID kernel.UUID,
	from, to time.Time,
	limit, offset int,
) (GetLocationHistoryQuery, error) {
	var problems []error
	if err := courierID.Validate(); err != nil {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("courier_id", err))
	}
	period, err := kernel.NewTimeRange(from, to)
	if err != nil {
		problems = append(problems, err)
	}
	if limit < 0 || limit > 1000 {
		problems = append(problems, errs.NewValueIsOutOfRangeError("limit", limit, 1, 1000))
	}
	if offset < 0 {
		problems = append(problems, errs.NewValueIsOutOfRangeError("offset", offset, 0, "unbounded"))
	}
	if err = errors.Join(problems...); err != nil {
		return GetLocationHistoryQuery{}, err
	}

	return GetLocationHistoryQuery{
		courierID: courierID,
		period:    period,
		limit:     limit,
		offset:    offset,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (q GetLocationHistoryQuery) CourierID() kernel.UUID   { return q.courierID }
func (q GetLocationHistoryQuery) Period() kernel.TimeRange { return q.period }
func (q GetLocationHistoryQuery) Limit() int               { return q.limit }
func (q GetLocationHistoryQuery) Offset() int              { return q.offset }

func (q GetLocationHistoryQuery) Validate() error {
	return q.guard.Validate(ErrGetLocationHistoryQueryIsNotConstructed)
}

// CheckGeofenceQuery tests whether the current position of a courier lies in a geofence.
type CheckGeofenceQuery struct {
	courierID kernel.UUID
	geofence  kernel.Geofence
	guard     guard.ConstructorGuard
}

func NewCheckGeofenceQuery(courierID kernel.UUID, geofence kernel.Geofence) (CheckGeofenceQuery, error) {
	if err := courierID.Validate(); err != nil {
		return CheckGeofenceQuery{}, errs.NewValueIsInvalidErrorWithCause("courier_id", err)
	}
	if geofence == nil {
		return CheckGeofenceQuery{}, errs.NewValueIsRequiredError("geofence")
	}
	return CheckGeofenceQuery{courierID: courierID, geofence: geofence, guard: guard.NewConstructorGuard()}, nil
}

func (q CheckGeofenceQuery) CourierID() kernel.UUID    { return q.courierID }
func (q CheckGeofenceQuery) Geofence() kernel.Geofence { return q.geofence }

func (q CheckGeofenceQuery) Validate() error {
	return q.guard.Validate(ErrCheckGeofenceQueryIsNotConstructed)
}

// GeofenceCheck is the answer of CheckGeofence.
type GeofenceCheck struct {
	Inside   bool
	Kind     kernel.GeofenceKind
	Location LocationView
}

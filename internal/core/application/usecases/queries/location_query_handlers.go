package queries

import (
	"context"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/ports"
	"courier-dispatch/internal/pkg/errs"
)

// LocationHistoryReader is the part of the geolocation store the history query needs.
type LocationHistoryReader interface {
	History(ctx context.Context, courierID kernel.UUID, period kernel.TimeRange, limit, offset int) ([]geolocation.Snapshot, error)
}

// GetLocationQueryHandler reads the current position of a courier.
type GetLocationQueryHandler struct {
	locations ports.LocationReader
}

func NewGetLocationQueryHandler(locations ports.LocationReader) GetLocationQueryHandler {
	return GetLocationQueryHandler{locations: locations}
}

// Handle returns errs.ErrObjectNotFound when the courier has no position within the
// staleness cap.
func (h GetLocationQueryHandler) Handle(ctx context.Context, query GetLocationQuery) (LocationView, error) {
	if err := query.Validate(); err != nil {
		return LocationView{}, err
	}
	return current(ctx, h.locations, query.CourierID())
}

func current(ctx context.Context, locations ports.LocationReader, courierID kernel.UUID) (LocationView, error) {
	snapshot, ok, err := locations.Current(ctx, courierID)
	if err != nil {
		return LocationView{}, err
	}
	if !ok {
		return LocationView{}, errs.NewObjectNotFoundError("location", courierID.String())
	}
	return NewLocationView(snapshot), nil
}

// GetLocationsQueryHandler reads the positions of several couriers at once.
type GetLocationsQueryHandler struct {
	locations ports.LocationReader
}

func NewGetLocationsQueryHandler(locations ports.LocationReader) GetLocationsQueryHandler {
	return GetLocationsQueryHandler{locations: locations}
}

// Handle returns the known positions in the order of the query. Couriers without a
// position are left out.
func (h GetLocationsQueryHandler) Handle(ctx context.Context, query GetLocationsQuery) ([]LocationView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	ids := query.CourierIDs()
	snapshots, err := h.locations.CurrentMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]LocationView, 0, len(snapshots))
	for _, id := range ids {
		if s, ok := snapshots[id]; ok {
			views = append(views, NewLocationView(s))
		}
	}
	return views, nil
}

// GetLocationHistoryQueryHandler pages through stored positions.
type GetLocationHistoryQueryHandler struct {
	history LocationHistoryReader
}

func NewGetLocationHistoryQueryHandler(history LocationHistoryReader) GetLocationHistoryQueryHandler {
	return GetLocationHistoryQueryHandler{history: history}
}

// Handle returns the positions newest first.
func (h GetLocationHistoryQueryHandler) Handle(ctx context.Context, query GetLocationHistoryQuery) ([]LocationView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	snapshots, err := h.history.History(ctx, query.CourierID(), query.Period(), query.Limit(), query.Offset())
	if err != nil {
		return nil, err
	}

	views := make([]LocationView, 0, len(snapshots))
	for _, s := range snapshots {
		views = append(views, NewLocationView(s))
	}
	return views, nil
}

// CheckGeofenceQueryHandler tests a courier's current position against a geofence.
//
// Example:
//
//	fence, _ := kernel.NewCircleGeofence(kernel.MustNewCoordinates(52.52, 13.405), 1.5)
//	query, _ := NewCheckGeofenceQuery(courierID, fence)
//
//	check, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // the courier has not reported a position
//	}
type CheckGeofenceQueryHandler struct {
	locations ports.LocationReader
}

func NewCheckGeofenceQueryHandler(locations ports.LocationReader) CheckGeofenceQueryHandler {
	return CheckGeofenceQueryHandler{locations: locations}
}

func (h CheckGeofenceQueryHandler) Handle(ctx context.Context, query CheckGeofenceQuery) (GeofenceCheck, error) {
	if err := query.Validate(); err != nil {
		return GeofenceCheck{}, err
	}

	view, err := current(ctx, h.locations, query.CourierID())
	if err != nil {
		return GeofenceCheck{}, err
	}

	point, err := kernel.NewCoordinates(view.Lat, view.Lon)
	if err != nil {
		return GeofenceCheck{}, err
	}
	return GeofenceCheck{
		Inside:   query.Geofence().Contains(point),
		Kind:     query.Geofence().Kind(),
		Location: view,
	}, nil
}

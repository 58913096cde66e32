package queries_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/application/usecases/queries"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/testutil/inmem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*geostore.Store, *inmem.Clock) {
	t.Helper()
	clock := inmem.NewClock(now)
	cache := inmem.NewLocationCache(clock)
	history := inmem.NewLocationHistory(inmem.NewOutbox())
	return geostore.New(cache, history, clock, geostore.Config{}, nil, slog.New(slog.DiscardHandler)), clock
}

func record(t *testing.T, store *geostore.Store, id kernel.UUID, lat, lon float64, at time.Time) {
	t.Helper()
	speed := 12.5
	s, err := geolocation.NewSnapshot(id, kernel.MustNewCoordinates(lat, lon), at, 8, &speed, nil)
	require.NoError(t, err)
	_, err = store.Record(context.Background(), s)
	require.NoError(t, err)
}

func TestGetLocationQueryHandler(t *testing.T) {
	ctx := context.Background()
	store, clock := newStore(t)
	handler := queries.NewGetLocationQueryHandler(store)
	id := kernel.NewUUID()
	record(t, store, id, 52.52, 13.405, now)

	t.Run("should return the current position", func(t *testing.T) {
		query, err := queries.NewGetLocationQuery(id)
		require.NoError(t, err)

		view, err := handler.Handle(ctx, query)

		require.NoError(t, err)
		assert.True(t, view.CourierID.IsEqual(id))
		assert.InDelta(t, 52.52, view.Lat, 1e-9)
		assert.InDelta(t, 8.0, view.AccuracyM, 1e-9)
		require.NotNil(t, view.SpeedKmh)
		assert.InDelta(t, 12.5, *view.SpeedKmh, 1e-9)
		assert.Nil(t, view.HeadingDeg)
		assert.False(t, view.Suspicious)
	})

	t.Run("should report unknown courier as not found", func(t *testing.T) {
		query, err := queries.NewGetLocationQuery(kernel.NewUUID())
		require.NoError(t, err)

		_, err = handler.Handle(ctx, query)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("should hide positions beyond the staleness cap", func(t *testing.T) {
		clock.Advance(geolocation.DefaultStalenessCap + time.Second)
		query, err := queries.NewGetLocationQuery(id)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, query)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("should refuse a zero query", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.GetLocationQuery{})
		require.ErrorIs(t, err, queries.ErrGetLocationQueryIsNotConstructed)
	})
}

func TestGetLocationsQueryHandler(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	handler := queries.NewGetLocationsQueryHandler(store)

	a, b, unknown := kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()
	record(t, store, a, 52.52, 13.405, now)
	record(t, store, b, 52.53, 13.415, now)

	t.Run("should keep query order and skip unknown couriers", func(t *testing.T) {
		query, err := queries.NewGetLocationsQuery([]kernel.UUID{b, unknown, a, b})
		require.NoError(t, err)
		assert.Len(t, query.CourierIDs(), 3)

		views, err := handler.Handle(ctx, query)

		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.True(t, views[0].CourierID.IsEqual(b))
		assert.True(t, views[1].CourierID.IsEqual(a))
	})

	t.Run("should bound the batch size", func(t *testing.T) {
		_, err := queries.NewGetLocationsQuery(nil)
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)

		ids := make([]kernel.UUID, queries.MaxLocationBatch+1)
		for i := range ids {
			ids[i] = kernel.NewUUID()
		}
		_, err = queries.NewGetLocationsQuery(ids)
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})
}

func TestGetLocationHistoryQueryHandler(t *testing.T) {
	ctx := context.Background()
	store, clock := newStore(t)
	handler := queries.NewGetLocationHistoryQueryHandler(store)
	id := kernel.NewUUID()
	for i := range 5 {
		record(t, store, id, 52.52+float64(i)*0.001, 13.405, now.Add(time.Duration(i)*time.Minute))
		clock.Advance(time.Minute)
	}

	t.Run("should page newest first within the range", func(t *testing.T) {
		query, err := queries.NewGetLocationHistoryQuery(id, now, now.Add(4*time.Minute), 2, 1)
		require.NoError(t, err)

		views, err := handler.Handle(ctx, query)

		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, now.Add(2*time.Minute), views[0].RecordedAt)
		assert.Equal(t, now.Add(time.Minute), views[1].RecordedAt)
	})

	t.Run("should use the default page size", func(t *testing.T) {
		query, err := queries.NewGetLocationHistoryQuery(id, now, now.Add(time.Hour), 0, 0)
		require.NoError(t, err)

		views, err := handler.Handle(ctx, query)

		require.NoError(t, err)
		assert.Len(t, views, 5)
	})

	t.Run("should validate paging and range together", func(t *testing.T) {
		_, err := queries.NewGetLocationHistoryQuery(id, now, now.Add(time.Hour), 1001, -1)

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)

		_, err = queries.NewGetLocationHistoryQuery(id, now, now.Add(-time.Hour), 10, 0)
		require.Error(t, err)
	})
}

func TestCheckGeofenceQueryHandler(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	handler := queries.NewCheckGeofenceQueryHandler(store)
	id := kernel.NewUUID()
	record(t, store, id, 52.5200, 13.4050, now)

	near, err := kernel.NewCircleGeofence(kernel.MustNewCoordinates(52.5210, 13.4050), 1)
	require.NoError(t, err)
	far, err := kernel.NewRectangleGeofence(kernel.MustNewCoordinates(53.5, 9.9), kernel.MustNewCoordinates(53.6, 10.1))
	require.NoError(t, err)

	tests := []struct {
		name   string
		fence  kernel.Geofence
		inside bool
	}{
		{"circle around the courier", near, true},
		{"rectangle over another city", far, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := queries.NewCheckGeofenceQuery(id, tt.fence)
			require.NoError(t, err)

			check, err := handler.Handle(ctx, query)

			require.NoError(t, err)
			assert.Equal(t, tt.inside, check.Inside)
			assert.Equal(t, tt.fence.Kind(), check.Kind)
			assert.True(t, check.Location.CourierID.IsEqual(id))
		})
	}

	t.Run("should require a geofence", func(t *testing.T) {
		_, err := queries.NewCheckGeofenceQuery(id, nil)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("should report a courier without position", func(t *testing.T) {
		query, err := queries.NewCheckGeofenceQuery(kernel.NewUUID(), near)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, query)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

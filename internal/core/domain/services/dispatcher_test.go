package services_test

import (
	"testing"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func pooledPackage(t *testing.T, priority int) *parcel.Package {
	t.Helper()
	pickup, err := kernel.NewLocationFromLatLon(52.5200, 13.4050, "")
	require.NoError(t, err)
	delivery, err := kernel.NewLocationFromLatLon(52.5300, 13.4150, "")
	require.NoError(t, err)

	p, err := parcel.NewPackage(kernel.NewUUID(), parcel.Details{
		OrderID:    kernel.NewUUID(),
		CustomerID: kernel.NewUUID(),
		Pickup:     pickup,
		Delivery:   delivery,
		Zone:       "berlin",
		WeightKg:   2,
		Priority:   priority,
	}, now)
	require.NoError(t, err)
	_, err = p.Transition(parcel.StatusInPool, parcel.TransitionContext{Now: now})
	require.NoError(t, err)
	return p
}

func freeCourier(t *testing.T, id kernel.UUID, transport courier.TransportType, maxDistanceKm float64) *courier.Courier {
	t.Helper()
	contact, err := courier.NewContact("+4915112345678", "c@example.com", "")
	require.NoError(t, err)
	c, err := courier.NewCourier(id, "C", contact, transport, maxDistanceKm, "berlin", courier.AlwaysOn(), now)
	require.NoError(t, err)
	require.NoError(t, c.Activate(now))
	return c
}

func snapshot(t *testing.T, id kernel.UUID, lat, lon float64, age time.Duration) geolocation.Snapshot {
	t.Helper()
	s, err := geolocation.NewSnapshot(id, kernel.MustNewCoordinates(lat, lon), now.Add(-age), 5, nil, nil)
	require.NoError(t, err)
	return s
}

func TestDispatcher_Select(t *testing.T) {
	d := services.NewDispatcher(0)

	t.Run("should prefer nearby bicycle over distant car", func(t *testing.T) {
		p := pooledPackage(t, 3)
		c1 := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 20)
		c2 := freeCourier(t, kernel.NewUUID(), courier.TransportBicycle, 5)
		locations := map[kernel.UUID]geolocation.Snapshot{
			c1.ID(): snapshot(t, c1.ID(), 52.6099, 13.4050, 10*time.Second), // ~10 km
			c2.ID(): snapshot(t, c2.ID(), 52.5245, 13.4050, 10*time.Second), // ~0.5 km
		}

		best, err := d.Select(p, []*courier.Courier{c1, c2}, locations, now)

		require.NoError(t, err)
		assert.True(t, best.Courier.IsEqual(c2))
		assert.InDelta(t, 2.0, best.EtaMinutes, 0.05)
		assert.InDelta(t, 6.0, best.PriorityBoost, 1e-9)
		assert.InDelta(t, best.EtaMinutes+best.PriorityBoost, best.Score, 1e-9)
	})

	t.Run("should skip stale location", func(t *testing.T) {
		p := pooledPackage(t, 3)
		c1 := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 20)
		c2 := freeCourier(t, kernel.NewUUID(), courier.TransportBicycle, 5)
		locations := map[kernel.UUID]geolocation.Snapshot{
			c1.ID(): snapshot(t, c1.ID(), 52.6099, 13.4050, 10*time.Second),
			c2.ID(): snapshot(t, c2.ID(), 52.5245, 13.4050, 130*time.Second),
		}

		best, err := d.Select(p, []*courier.Courier{c1, c2}, locations, now)

		require.NoError(t, err)
		assert.True(t, best.Courier.IsEqual(c1))
	})

	t.Run("should report no courier when the only one is at capacity", func(t *testing.T) {
		p := pooledPackage(t, 3)
		c1 := freeCourier(t, kernel.NewUUID(), courier.TransportBicycle, 5)
		for range 3 {
			require.NoError(t, c1.IncrementLoad(now))
		}
		locations := map[kernel.UUID]geolocation.Snapshot{
			c1.ID(): snapshot(t, c1.ID(), 52.5210, 13.4050, 0),
		}

		_, err := d.Select(p, []*courier.Courier{c1}, locations, now)

		require.ErrorIs(t, err, services.ErrNoCourierAvailable)
	})

	t.Run("should report no courier for empty pool", func(t *testing.T) {
		_, err := d.Select(pooledPackage(t, 1), nil, nil, now)
		require.ErrorIs(t, err, services.ErrNoCourierAvailable)
	})
}

func TestDispatcher_Rank(t *testing.T) {
	d := services.NewDispatcher(2 * time.Minute)

	t.Run("should break score ties by courier id", func(t *testing.T) {
		p := pooledPackage(t, 3)
		low := freeCourier(t, kernel.MustUUIDFromString("00000000-0000-0000-0000-000000000001"), courier.TransportCar, 5)
		high := freeCourier(t, kernel.MustUUIDFromString("00000000-0000-0000-0000-000000000002"), courier.TransportCar, 5)
		locations := map[kernel.UUID]geolocation.Snapshot{
			low.ID():  snapshot(t, low.ID(), 52.5210, 13.4050, 0),
			high.ID(): snapshot(t, high.ID(), 52.5210, 13.4050, 0),
		}

		for _, order := range [][]*courier.Courier{{low, high}, {high, low}} {
			ranked, rejected := d.Rank(p, order, locations, now)

			require.Len(t, ranked, 2)
			assert.Empty(t, rejected)
			assert.True(t, ranked[0].Courier.IsEqual(low))
			assert.True(t, ranked[1].Courier.IsEqual(high))
		}
	})

	t.Run("should penalise load", func(t *testing.T) {
		p := pooledPackage(t, 3)
		loaded := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		require.NoError(t, loaded.IncrementLoad(now))
		empty := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		locations := map[kernel.UUID]geolocation.Snapshot{
			loaded.ID(): snapshot(t, loaded.ID(), 52.5210, 13.4050, 0),
			empty.ID():  snapshot(t, empty.ID(), 52.5210, 13.4050, 0),
		}

		ranked, _ := d.Rank(p, []*courier.Courier{loaded, empty}, locations, now)

		require.Len(t, ranked, 2)
		assert.True(t, ranked[0].Courier.IsEqual(empty))
		assert.InDelta(t, 0.1, ranked[1].LoadPenalty, 1e-9)
	})

	t.Run("should be deterministic", func(t *testing.T) {
		p := pooledPackage(t, 2)
		var couriers []*courier.Courier
		locations := map[kernel.UUID]geolocation.Snapshot{}
		for i := range 6 {
			c := freeCourier(t, kernel.NewUUID(), courier.TransportBicycle, 5)
			couriers = append(couriers, c)
			locations[c.ID()] = snapshot(t, c.ID(), 52.5200+float64(i%3)*0.002, 13.4050, 0)
		}

		first, _ := d.Rank(p, couriers, locations, now)
		reversed := append([]*courier.Courier(nil), couriers...)
		for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
			reversed[i], reversed[j] = reversed[j], reversed[i]
		}
		second, _ := d.Rank(p, reversed, locations, now)

		require.Len(t, second, len(first))
		for i := range first {
			assert.True(t, first[i].Courier.IsEqual(second[i].Courier))
		}
	})

	t.Run("should collect rejection reasons", func(t *testing.T) {
		p := pooledPackage(t, 3)
		unknown := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		suspicious := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		far := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		locations := map[kernel.UUID]geolocation.Snapshot{
			suspicious.ID(): snapshot(t, suspicious.ID(), 52.5210, 13.4050, 0).WithSuspicious(true),
			far.ID():        snapshot(t, far.ID(), 53.5511, 9.9937, 0),
		}

		ranked, rejected := d.Rank(p, []*courier.Courier{unknown, suspicious, far}, locations, now)

		assert.Empty(t, ranked)
		assert.Equal(t, []services.Rejection{
			{CourierID: unknown.ID(), Reason: services.ReasonLocationUnknown},
			{CourierID: suspicious.ID(), Reason: services.ReasonLocationSuspicious},
			{CourierID: far.ID(), Reason: courier.ReasonOutOfRange},
		}, rejected)
	})
}

func TestDispatcher_CheckManual(t *testing.T) {
	d := services.NewDispatcher(0)
	p := pooledPackage(t, 3)

	t.Run("should report archived courier", func(t *testing.T) {
		c := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		require.NoError(t, c.Archive(now, "left"))

		err := d.CheckManual(p, c, nil, now)

		var notEligible *services.NotEligibleError
		require.ErrorAs(t, err, &notEligible)
		assert.ErrorIs(t, err, services.ErrCourierNotEligible)
		assert.Equal(t, courier.ReasonArchived, notEligible.Reason)
	})

	t.Run("should report stale location", func(t *testing.T) {
		c := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		loc := snapshot(t, c.ID(), 52.5210, 13.4050, 121*time.Second)

		err := d.CheckManual(p, c, &loc, now)

		var notEligible *services.NotEligibleError
		require.ErrorAs(t, err, &notEligible)
		assert.Equal(t, services.ReasonLocationStale, notEligible.Reason)
	})

	t.Run("should accept eligible courier", func(t *testing.T) {
		c := freeCourier(t, kernel.NewUUID(), courier.TransportCar, 5)
		loc := snapshot(t, c.ID(), 52.5210, 13.4050, 0)

		require.NoError(t, d.CheckManual(p, c, &loc, now))
	})
}

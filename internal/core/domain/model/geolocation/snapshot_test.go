package geolocation_test

import (
	"math"
	"testing"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func snapshotAt(t *testing.T, id kernel.UUID, lat, lon float64, at time.Time) geolocation.Snapshot {
	t.Helper()
	s, err := geolocation.NewSnapshot(id, kernel.MustNewCoordinates(lat, lon), at, 10, nil, nil)
	require.NoError(t, err)
	return s
}

func TestNewSnapshot(t *testing.T) {
	id := kernel.NewUUID()
	point := kernel.MustNewCoordinates(52.52, 13.405)

	t.Run("should keep optional fields", func(t *testing.T) {
		s, err := geolocation.NewSnapshot(id, point, now, 0, ptr(35), ptr(359.9))

		require.NoError(t, err)
		assert.True(t, s.CourierID().IsEqual(id))
		assert.InDelta(t, 35.0, *s.SpeedKmh(), 1e-9)
		assert.InDelta(t, 359.9, *s.HeadingDeg(), 1e-9)
		assert.False(t, s.Suspicious())
	})

	tests := []struct {
		name     string
		accuracy float64
		speed    *float64
		heading  *float64
	}{
		{"negative accuracy", -1, nil, nil},
		{"accuracy above limit", 1000.1, nil, nil},
		{"negative speed", 5, ptr(-0.1), nil},
		{"speed above limit", 5, ptr(200.1), nil},
		{"heading 360", 5, nil, ptr(360)},
		{"negative heading", 5, nil, ptr(-1)},
		{"nan speed", 5, ptr(math.NaN()), nil},
	}
	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			_, err := geolocation.NewSnapshot(id, point, now, tt.accuracy, tt.speed, tt.heading)
			require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
		})
	}

	t.Run("should reject missing courier", func(t *testing.T) {
		_, err := geolocation.NewSnapshot(kernel.UUID{}, point, now, 5, nil, nil)
		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})
}

func TestSnapshotValidateReceivedAt(t *testing.T) {
	id := kernel.NewUUID()

	require.NoError(t, snapshotAt(t, id, 1, 1, now.Add(60*time.Second)).ValidateReceivedAt(now))
	require.NoError(t, snapshotAt(t, id, 1, 1, now.Add(-5*time.Minute)).ValidateReceivedAt(now))
	require.ErrorIs(t, snapshotAt(t, id, 1, 1, now.Add(61*time.Second)).ValidateReceivedAt(now), errs.ErrValueIsInvalid)
	require.ErrorIs(t, snapshotAt(t, id, 1, 1, now.Add(-5*time.Minute-time.Second)).ValidateReceivedAt(now), errs.ErrValueIsInvalid)
}

func TestSnapshotFreshness(t *testing.T) {
	id := kernel.NewUUID()
	s := snapshotAt(t, id, 52.52, 13.405, now.Add(-120*time.Second))

	assert.True(t, s.IsFresh(now, geolocation.DefaultFreshness))
	assert.False(t, s.IsFresh(now.Add(time.Second), geolocation.DefaultFreshness))
	assert.False(t, s.WithSuspicious(true).IsFresh(now, geolocation.DefaultFreshness))
	assert.Equal(t, 120*time.Second, s.Age(now))
}

func TestSnapshotVelocity(t *testing.T) {
	id := kernel.NewUUID()
	prev := snapshotAt(t, id, 52.5200, 13.4050, now)

	t.Run("should accept bicycle speed", func(t *testing.T) {
		// ~0.68 km in one minute is ~41 km/h.
		next := snapshotAt(t, id, 52.5260, 13.4080, now.Add(time.Minute))
		assert.False(t, next.ImpliesTeleport(prev))
	})

	t.Run("should flag a jump to Hamburg within a minute", func(t *testing.T) {
		next := snapshotAt(t, id, 53.5511, 9.9937, now.Add(time.Minute))
		assert.True(t, next.ImpliesTeleport(prev))
	})

	t.Run("should flag movement without elapsed time", func(t *testing.T) {
		next := snapshotAt(t, id, 52.5201, 13.4050, now)
		assert.True(t, math.IsInf(next.VelocityKmhFrom(prev), 1))
		assert.True(t, next.ImpliesTeleport(prev))
	})

	t.Run("should accept replay of the same report", func(t *testing.T) {
		assert.False(t, prev.ImpliesTeleport(prev))
		assert.True(t, prev.IsNewerThan(prev))
	})
}

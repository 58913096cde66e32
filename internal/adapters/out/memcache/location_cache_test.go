package memcache_test

import (
	"context"
	"testing"
	"time"

	"courier-dispatch/internal/adapters/out/memcache"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(t *testing.T, id kernel.UUID, lat float64, at time.Time) geolocation.Snapshot {
	t.Helper()
	s, err := geolocation.NewSnapshot(id, kernel.MustNewCoordinates(lat, 13.405), at, 5, nil, nil)
	require.NoError(t, err)
	return s
}

func TestLocationCache(t *testing.T) {
	ctx := context.Background()
	at := time.Now().UTC()

	t.Run("should keep the newest report", func(t *testing.T) {
		cache, err := memcache.NewLocationCache(0)
		require.NoError(t, err)
		defer cache.Close()
		id := kernel.NewUUID()

		written, err := cache.SetIfNewer(ctx, snapshot(t, id, 52.52, at))
		require.NoError(t, err)
		assert.True(t, written)

		written, err = cache.SetIfNewer(ctx, snapshot(t, id, 52.60, at.Add(-time.Second)))
		require.NoError(t, err)
		assert.False(t, written)

		got, ok, err := cache.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, 52.52, got.Point().Lat(), 1e-9)
	})

	t.Run("should expire entries", func(t *testing.T) {
		cache, err := memcache.NewLocationCache(50 * time.Millisecond)
		require.NoError(t, err)
		defer cache.Close()
		id := kernel.NewUUID()

		_, err = cache.SetIfNewer(ctx, snapshot(t, id, 52.52, at))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, ok, _ := cache.Get(ctx, id)
			return !ok
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("should return only hits from GetMany", func(t *testing.T) {
		cache, err := memcache.NewLocationCache(0)
		require.NoError(t, err)
		defer cache.Close()
		a, missing := kernel.NewUUID(), kernel.NewUUID()
		_, err = cache.SetIfNewer(ctx, snapshot(t, a, 52.52, at))
		require.NoError(t, err)

		got, err := cache.GetMany(ctx, []kernel.UUID{a, missing})

		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Contains(t, got, a)
	})
}

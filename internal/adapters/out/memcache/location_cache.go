// Package memcache implements the hot location tier in process memory with ristretto.
// It serves single-node deployments that run without Redis.
package memcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	cacheNumCounters = 1e6
	cacheMaxCost     = 1e5
	cacheBufferItems = 64
)

// LocationCache implements ports.LocationCache. Every entry has cost 1, so MaxCost
// bounds the number of couriers held.
type LocationCache struct {
	// mu serialises SetIfNewer so the compare and the write see the same entry.
	mu    sync.Mutex
	cache *ristretto.Cache[string, geolocation.Snapshot]
	ttl   time.Duration
}

// NewLocationCache creates the cache. A zero ttl selects geolocation.HotTTL.
func NewLocationCache(ttl time.Duration) (*LocationCache, error) {
	if ttl <= 0 {
		ttl = geolocation.HotTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, geolocation.Snapshot]{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create location cache: %w", err)
	}
	return &LocationCache{cache: cache, ttl: ttl}, nil
}

// Close stops the cache goroutines.
func (c *LocationCache) Close() {
	c.cache.Close()
}

func (c *LocationCache) Get(_ context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error) {
	s, ok := c.cache.Get(courierID.String())
	return s, ok, nil
}

func (c *LocationCache) GetMany(_ context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error) {
	result := make(map[kernel.UUID]geolocation.Snapshot, len(courierIDs))
	for _, id := range courierIDs {
		if s, ok := c.cache.Get(id.String()); ok {
			result[id] = s
		}
	}
	return result, nil
}

// SetIfNewer reports false both for an older snapshot and for a write the admission
// policy dropped.
func (c *LocationCache) SetIfNewer(_ context.Context, snapshot geolocation.Snapshot) (bool, error) {
	key := snapshot.CourierID().String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.cache.Get(key); ok && !snapshot.IsNewerThan(cur) {
		return false, nil
	}
	if !c.cache.SetWithTTL(key, snapshot, 1, c.ttl) {
		return false, nil
	}
	c.cache.Wait()
	return true, nil
}

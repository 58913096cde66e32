package ports

import (
	"context"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
)

// LocationCache is the hot tier: the last snapshot of every courier, expiring after
// geolocation.HotTTL.
type LocationCache interface {
	// Get returns the cached snapshot; ok is false on a miss.
	Get(ctx context.Context, courierID kernel.UUID) (snapshot geolocation.Snapshot, ok bool, err error)

	// GetMany fetches several couriers in one round trip. Misses are absent from the map.
	GetMany(ctx context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error)

	// SetIfNewer stores the snapshot unless the cached one is more recent, and refreshes
	// the TTL. It reports whether the value was written.
	SetIfNewer(ctx context.Context, snapshot geolocation.Snapshot) (bool, error)
}

// LocationHistory is the cold tier: an append-only log of every accepted report.
type LocationHistory interface {
	// Append stores the snapshot together with its CourierLocationUpdated outbox message.
	// Replaying the same (courier, recorded_at) is a no-op that returns inserted = false.
	Append(ctx context.Context, snapshot geolocation.Snapshot) (inserted bool, err error)

	// Latest returns the newest stored snapshot of the courier.
	Latest(ctx context.Context, courierID kernel.UUID) (snapshot geolocation.Snapshot, ok bool, err error)

	// LatestMany returns the newest snapshot of each courier that has one.
	LatestMany(ctx context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error)

	// Range returns the snapshots recorded within period, newest first.
	Range(
		ctx context.Context,
		courierID kernel.UUID,
		period kernel.TimeRange,
		limit, offset int,
	) ([]geolocation.Snapshot, error)
}

// LocationReader is the read side of the geolocation store used by dispatch and queries.
type LocationReader interface {
	Current(ctx context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error)
	CurrentMany(ctx context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error)
}

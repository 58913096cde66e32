// Package geostore implements the two-tier geolocation store: a hot cache holding the
// last position of every courier and an append-only history that survives cache loss.
package geostore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/ports"
	"courier-dispatch/internal/pkg/errs"
)

// History page bounds.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// Config tunes the store. Zero values select the defaults.
type Config struct {
	// StalenessCap is the age beyond which Current reports no position.
	StalenessCap time.Duration
}

// RecordResult describes what Record did with a report.
type RecordResult struct {
	Snapshot  geolocation.Snapshot
	Duplicate bool
	Cached    bool
}

// Store combines the hot and cold tiers.
//
// Writes go to the history first; the hot tier is updated afterwards and its failures
// are logged and counted only, since the cache can be rebuilt from history. Reads try the
// hot tier and fall back to the newest history row. The store reports positions of any
// age up to the staleness cap; freshness for dispatch is decided by the caller.
type Store struct {
	cache        ports.LocationCache
	history      ports.LocationHistory
	clock        kernel.Clock
	stalenessCap time.Duration
	metrics      ports.Metrics
	logger       *slog.Logger
}

// New creates a Store.
func New(
	cache ports.LocationCache,
	history ports.LocationHistory,
	clock kernel.Clock,
	cfg Config,
	metrics ports.Metrics,
	logger *slog.Logger,
) *Store {
	if cfg.StalenessCap <= 0 {
		cfg.StalenessCap = geolocation.DefaultStalenessCap
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Store{
		cache:        cache,
		history:      history,
		clock:        clock,
		stalenessCap: cfg.StalenessCap,
		metrics:      metrics,
		logger:       logger.With("component", "geostore"),
	}
}

// Record validates a report against the receive time, flags it when it implies an
// impossible velocity relative to the previous position, appends it to history and then
// refreshes the hot tier.
//
// A replay of an already stored (courier, recorded_at) leaves history untouched and
// still offers the snapshot to the hot tier.
func (s *Store) Record(ctx context.Context, snapshot geolocation.Snapshot) (RecordResult, error) {
	now := s.clock.Now()
	if err := snapshot.ValidateReceivedAt(now); err != nil {
		return RecordResult{}, err
	}

	prev, found, err := s.previous(ctx, snapshot.CourierID())
	if err != nil {
		return RecordResult{}, err
	}
	if found && snapshot.ImpliesTeleport(prev) {
		snapshot = snapshot.WithSuspicious(true)
		s.logger.WarnContext(ctx, "location implies impossible velocity",
			"courier_id", snapshot.CourierID().String(),
			"velocity_kmh", snapshot.VelocityKmhFrom(prev),
			"previous_recorded_at", prev.RecordedAt(),
			"recorded_at", snapshot.RecordedAt(),
		)
	}

	inserted, err := s.history.Append(ctx, snapshot)
	if err != nil {
		return RecordResult{}, fmt.Errorf("append location history: %w", err)
	}

	result := RecordResult{Snapshot: snapshot, Duplicate: !inserted}

	cached, err := s.cache.SetIfNewer(ctx, snapshot)
	if err != nil {
		s.metrics.HotCacheFailed("set")
		s.logger.WarnContext(ctx, "hot location write failed",
			"courier_id", snapshot.CourierID().String(), "error", err)
	}
	result.Cached = cached

	s.metrics.LocationRecorded(snapshot.Suspicious(), result.Duplicate)
	return result, nil
}

// Current returns the last known position of the courier, or ok = false when there is
// none or it is older than the staleness cap.
func (s *Store) Current(ctx context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error) {
	now := s.clock.Now()

	snapshot, ok, err := s.cache.Get(ctx, courierID)
	if err != nil {
		s.metrics.HotCacheFailed("get")
		s.logger.WarnContext(ctx, "hot location read failed",
			"courier_id", courierID.String(), "error", err)
	}
	if err == nil && ok && s.withinCap(snapshot, now) {
		return snapshot, true, nil
	}

	snapshot, ok, err = s.history.Latest(ctx, courierID)
	if err != nil {
		return geolocation.Snapshot{}, false, fmt.Errorf("read latest location: %w", err)
	}
	if !ok || !s.withinCap(snapshot, now) {
		return geolocation.Snapshot{}, false, nil
	}
	s.warm(ctx, snapshot, now)
	return snapshot, true, nil
}

// CurrentMany is Current for several couriers with one round trip per tier. Couriers
// without a position within the cap are absent from the result.
func (s *Store) CurrentMany(ctx context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error) {
	result := make(map[kernel.UUID]geolocation.Snapshot, len(courierIDs))
	if len(courierIDs) == 0 {
		return result, nil
	}
	now := s.clock.Now()

	hot, err := s.cache.GetMany(ctx, courierIDs)
	if err != nil {
		s.metrics.HotCacheFailed("get_many")
		s.logger.WarnContext(ctx, "hot location batch read failed", "count", len(courierIDs), "error", err)
		hot = nil
	}

	var misses []kernel.UUID
	for _, id := range courierIDs {
		if snapshot, ok := hot[id]; ok && s.withinCap(snapshot, now) {
			result[id] = snapshot
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	cold, err := s.history.LatestMany(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("read latest locations: %w", err)
	}
	for id, snapshot := range cold {
		if s.withinCap(snapshot, now) {
			result[id] = snapshot
		}
	}
	return result, nil
}

// History returns the courier's positions within period, newest first. A zero limit
// selects DefaultHistoryLimit.
func (s *Store) History(
	ctx context.Context,
	courierID kernel.UUID,
	period kernel.TimeRange,
	limit, offset int,
) ([]geolocation.Snapshot, error) {
	if err := courierID.Validate(); err != nil {
		return nil, err
	}
	if period.IsZero() {
		return nil, errs.NewValueIsRequiredError("time_range")
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxHistoryLimit)
	}
	if offset < 0 {
		return nil, errs.NewValueIsOutOfRangeError("offset", offset, 0, "unbounded")
	}

	return s.history.Range(ctx, courierID, period, limit, offset)
}

// previous returns the last position used for the velocity check: the hot value, or the
// newest history row when the cache misses or fails.
func (s *Store) previous(ctx context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error) {
	snapshot, ok, err := s.cache.Get(ctx, courierID)
	if err != nil {
		s.metrics.HotCacheFailed("get")
		s.logger.WarnContext(ctx, "hot location read failed",
			"courier_id", courierID.String(), "error", err)
	}
	if err == nil && ok {
		return snapshot, true, nil
	}

	snapshot, ok, err = s.history.Latest(ctx, courierID)
	if err != nil {
		return geolocation.Snapshot{}, false, fmt.Errorf("read latest location: %w", err)
	}
	return snapshot, ok, nil
}

func (s *Store) withinCap(snapshot geolocation.Snapshot, now time.Time) bool {
	return snapshot.Age(now) <= s.stalenessCap
}

// warm puts a history row back into the hot tier when it is young enough to be there.
func (s *Store) warm(ctx context.Context, snapshot geolocation.Snapshot, now time.Time) {
	if snapshot.Age(now) > geolocation.HotTTL {
		return
	}
	if _, err := s.cache.SetIfNewer(ctx, snapshot); err != nil {
		s.metrics.HotCacheFailed("set")
		s.logger.DebugContext(ctx, "hot location warm-up failed",
			"courier_id", snapshot.CourierID().String(), "error", err)
	}
}

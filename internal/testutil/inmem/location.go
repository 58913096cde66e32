package inmem

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/ports"
)

// ErrUnavailable is returned by a LocationCache switched to failing mode.
var ErrUnavailable = errors.New("cache unavailable")

type cachedSnapshot struct {
	snapshot  geolocation.Snapshot
	expiresAt time.Time
}

// LocationCache is an in-memory ports.LocationCache with TTL driven by a clock.
type LocationCache struct {
	mu      sync.Mutex
	clock   kernel.Clock
	entries map[kernel.UUID]cachedSnapshot
	failing bool
}

// NewLocationCache creates an empty cache.
func NewLocationCache(clock kernel.Clock) *LocationCache {
	return &LocationCache{clock: clock, entries: map[kernel.UUID]cachedSnapshot{}}
}

// SetFailing makes every call return ErrUnavailable.
func (c *LocationCache) SetFailing(failing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = failing
}

// Flush drops all entries.
func (c *LocationCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[kernel.UUID]cachedSnapshot{}
}

func (c *LocationCache) Get(_ context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return geolocation.Snapshot{}, false, ErrUnavailable
	}
	s, ok := c.getLocked(courierID)
	return s, ok, nil
}

func (c *LocationCache) GetMany(_ context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, ErrUnavailable
	}
	out := make(map[kernel.UUID]geolocation.Snapshot, len(courierIDs))
	for _, id := range courierIDs {
		if s, ok := c.getLocked(id); ok {
			out[id] = s
		}
	}
	return out, nil
}

func (c *LocationCache) SetIfNewer(_ context.Context, snapshot geolocation.Snapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return false, ErrUnavailable
	}
	if cur, ok := c.getLocked(snapshot.CourierID()); ok && !snapshot.IsNewerThan(cur) {
		return false, nil
	}
	c.entries[snapshot.CourierID()] = cachedSnapshot{
		snapshot:  snapshot,
		expiresAt: c.clock.Now().Add(geolocation.HotTTL),
	}
	return true, nil
}

func (c *LocationCache) getLocked(id kernel.UUID) (geolocation.Snapshot, bool) {
	e, ok := c.entries[id]
	if !ok || c.clock.Now().After(e.expiresAt) {
		return geolocation.Snapshot{}, false
	}
	return e.snapshot, true
}

// LocationHistory is an in-memory ports.LocationHistory. Accepted reports are also
// written to the outbox, like the postgres adapter does in its transaction.
type LocationHistory struct {
	mu     sync.Mutex
	rows   map[kernel.UUID][]geolocation.Snapshot
	outbox *Outbox
}

// NewLocationHistory creates an empty history writing events to outbox.
func NewLocationHistory(outbox *Outbox) *LocationHistory {
	return &LocationHistory{rows: map[kernel.UUID][]geolocation.Snapshot{}, outbox: outbox}
}

// Len returns the number of rows stored for the courier.
func (h *LocationHistory) Len(courierID kernel.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rows[courierID])
}

func (h *LocationHistory) Append(_ context.Context, snapshot geolocation.Snapshot) (bool, error) {
	msg, err := ports.NewOutboxMessage(geolocation.NewLocationUpdatedEvent(snapshot))
	if err != nil {
		return false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	id := snapshot.CourierID()
	for _, s := range h.rows[id] {
		if s.RecordedAt().Equal(snapshot.RecordedAt()) {
			return false, nil
		}
	}
	h.rows[id] = append(h.rows[id], snapshot)
	h.outbox.append(msg)
	return true, nil
}

func (h *LocationHistory) Latest(_ context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.latestLocked(courierID)
	return s, ok, nil
}

func (h *LocationHistory) LatestMany(_ context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[kernel.UUID]geolocation.Snapshot, len(courierIDs))
	for _, id := range courierIDs {
		if s, ok := h.latestLocked(id); ok {
			out[id] = s
		}
	}
	return out, nil
}

func (h *LocationHistory) Range(
	_ context.Context,
	courierID kernel.UUID,
	period kernel.TimeRange,
	limit, offset int,
) ([]geolocation.Snapshot, error) {
	h.mu.Lock()
	var out []geolocation.Snapshot
	for _, s := range h.rows[courierID] {
		if period.Contains(s.RecordedAt()) {
			out = append(out, s)
		}
	}
	h.mu.Unlock()

	slices.SortFunc(out, func(a, b geolocation.Snapshot) int {
		return b.RecordedAt().Compare(a.RecordedAt())
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *LocationHistory) latestLocked(id kernel.UUID) (geolocation.Snapshot, bool) {
	var (
		latest geolocation.Snapshot
		found  bool
	)
	for _, s := range h.rows[id] {
		if !found || s.RecordedAt().After(latest.RecordedAt()) {
			latest, found = s, true
		}
	}
	return latest, found
}

// Notifier records assignment notifications.
type Notifier struct {
	mu   sync.Mutex
	sent []ports.Assignment
	Err  error
}

func (n *Notifier) NotifyAssignment(_ context.Context, a ports.Assignment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, a)
	return nil
}

// Sent returns the delivered notifications.
func (n *Notifier) Sent() []ports.Assignment {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.sent)
}

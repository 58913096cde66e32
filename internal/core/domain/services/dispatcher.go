package services

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
)

// ErrNoCourierAvailable is returned when the eligible set for a package is empty, or when
// every reservation attempt lost a race. The package stays in the pool.
var ErrNoCourierAvailable = errors.New("no courier available")

// ErrCourierNotEligible is the category of NotEligibleError.
var ErrCourierNotEligible = errors.New("courier not eligible")

// Location reasons, in addition to the courier's own rejection reasons.
const (
	ReasonLocationUnknown    courier.Reason = "location_unknown"
	ReasonLocationStale      courier.Reason = "location_stale"
	ReasonLocationSuspicious courier.Reason = "location_suspicious"
)

// Score weights.
const (
	loadWeight     = 10.0
	priorityWeight = 2.0
	priorityBase   = 6
)

// NotEligibleError reports the first eligibility rule a manually chosen courier failed.
type NotEligibleError struct {
	CourierID kernel.UUID
	Reason    courier.Reason
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s: courier %s: %s", ErrCourierNotEligible, e.CourierID, e.Reason)
}

func (e *NotEligibleError) Unwrap() error {
	return ErrCourierNotEligible
}

// Candidate is an eligible courier with its score terms.
type Candidate struct {
	Courier       *courier.Courier
	Location      geolocation.Snapshot
	DistanceKm    float64
	EtaMinutes    float64
	LoadPenalty   float64
	PriorityBoost float64
	Score         float64
}

// Rejection is a courier left out of the ranking and the reason why.
type Rejection struct {
	CourierID kernel.UUID
	Reason    courier.Reason
}

// Dispatcher is a domain service that ranks couriers for a package.
//
// Eligibility (all must hold):
//   - courier is Free, on shift at now, below capacity, and serves the package zone
//   - a fresh location exists: now - recorded_at <= freshness and not suspicious
//   - haversine(location, pickup) <= courier max distance
//
// Score, lower wins:
//
//	eta      = 60 * distance / speed(transport)
//	load     = current_load / max_load
//	priority = (6 - package priority) * 2
//	score    = eta + 10*load + priority
//
// Ties are broken by smaller eta, then smaller current load, then the lexicographically
// smaller courier id, so Rank is deterministic for identical inputs.
//
// Example usage:
//
//	d := services.NewDispatcher(2 * time.Minute)
//	best, err := d.Select(pkg, couriers, locations, now)
//	if errors.Is(err, services.ErrNoCourierAvailable) {
//	    // the package stays in the pool
//	}
type Dispatcher struct {
	freshness time.Duration
}

// NewDispatcher creates a Dispatcher that trusts locations up to freshness old.
// A non-positive value selects geolocation.DefaultFreshness.
func NewDispatcher(freshness time.Duration) Dispatcher {
	if freshness <= 0 {
		freshness = geolocation.DefaultFreshness
	}
	return Dispatcher{freshness: freshness}
}

// Freshness returns the location age threshold in use.
func (d Dispatcher) Freshness() time.Duration {
	return d.freshness
}

// Check returns the first rule c fails for p at now, or courier.ReasonNone.
// loc is the courier's current snapshot, nil when the store has none.
//
// Rules are checked in this order: status (archived, unavailable, busy), shift,
// capacity, zone, location (unknown, suspicious, stale), distance.
func (d Dispatcher) Check(p *parcel.Package, c *courier.Courier, loc *geolocation.Snapshot, now time.Time) courier.Reason {
	if reason := c.Eligibility(p, now, nil); reason != courier.ReasonNone {
		return reason
	}
	switch {
	case loc == nil || loc.IsZero():
		return ReasonLocationUnknown
	case loc.Suspicious():
		return ReasonLocationSuspicious
	case !loc.IsFresh(now, d.freshness):
		return ReasonLocationStale
	}
	point := loc.Point()
	return c.Eligibility(p, now, &point)
}

// CheckManual runs the same filter for a courier chosen by an operator.
//
// Returns:
//   - nil when the courier is eligible
//   - *NotEligibleError carrying the reason otherwise
func (d Dispatcher) CheckManual(p *parcel.Package, c *courier.Courier, loc *geolocation.Snapshot, now time.Time) error {
	if reason := d.Check(p, c, loc, now); reason != courier.ReasonNone {
		return &NotEligibleError{CourierID: c.ID(), Reason: reason}
	}
	return nil
}

// Rank filters couriers and returns the eligible ones best first, together with the
// rejected ones in input order. locations maps courier id to its current snapshot.
// Invalid couriers are skipped.
func (d Dispatcher) Rank(
	p *parcel.Package,
	couriers []*courier.Courier,
	locations map[kernel.UUID]geolocation.Snapshot,
	now time.Time,
) ([]Candidate, []Rejection) {
	candidates := make([]Candidate, 0, len(couriers))
	var rejected []Rejection

	for _, c := range couriers {
		if c.Validate() != nil {
			continue
		}

		var loc *geolocation.Snapshot
		if s, ok := locations[c.ID()]; ok {
			loc = &s
		}

		if reason := d.Check(p, c, loc, now); reason != courier.ReasonNone {
			rejected = append(rejected, Rejection{CourierID: c.ID(), Reason: reason})
			continue
		}
		candidates = append(candidates, d.score(p, c, *loc))
	}

	slices.SortFunc(candidates, compareCandidates)
	return candidates, rejected
}

// Select returns the best candidate or ErrNoCourierAvailable.
func (d Dispatcher) Select(
	p *parcel.Package,
	couriers []*courier.Courier,
	locations map[kernel.UUID]geolocation.Snapshot,
	now time.Time,
) (Candidate, error) {
	if err := p.Validate(); err != nil {
		return Candidate{}, err
	}
	ranked, _ := d.Rank(p, couriers, locations, now)
	if len(ranked) == 0 {
		return Candidate{}, ErrNoCourierAvailable
	}
	return ranked[0], nil
}

func (d Dispatcher) score(p *parcel.Package, c *courier.Courier, loc geolocation.Snapshot) Candidate {
	distance := loc.Point().DistanceKm(p.Pickup().Point())
	eta := 60 * distance / c.Transport().SpeedKmh()
	load := float64(c.CurrentLoad()) / float64(c.MaxLoad())
	boost := float64(priorityBase-p.Priority()) * priorityWeight

	return Candidate{
		Courier:       c,
		Location:      loc,
		DistanceKm:    distance,
		EtaMinutes:    eta,
		LoadPenalty:   load,
		PriorityBoost: boost,
		Score:         eta + loadWeight*load + boost,
	}
}

func compareCandidates(a, b Candidate) int {
	if c := cmp.Compare(a.Score, b.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.EtaMinutes, b.EtaMinutes); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Courier.CurrentLoad(), b.Courier.CurrentLoad()); c != 0 {
		return c
	}
	return a.Courier.ID().Compare(b.Courier.ID())
}

package geolocation

import (
	"fmt"
	"math"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"
)

// Limits of a reported position.
const (
	MaxAccuracyM  = 1000.0
	MaxSpeedKmh   = 200.0
	MaxFutureSkew = 60 * time.Second
	MaxReportAge  = 5 * time.Minute
)

// Defaults of the two-tier store and of dispatch.
const (
	// HotTTL is how long the last position stays in the hot tier.
	HotTTL = 5 * time.Minute
	// DefaultStalenessCap is the age beyond which the store reports no position at all.
	DefaultStalenessCap = 24 * time.Hour
	// DefaultFreshness is the age up to which dispatch trusts a position.
	DefaultFreshness = 120 * time.Second
	// SuspiciousVelocityKmh is the implied speed between two positions above which the
	// newer one is flagged.
	SuspiciousVelocityKmh = 200.0
)

// Snapshot is one reported position of a courier.
type Snapshot struct {
	courierID  kernel.UUID
	point      kernel.Coordinates
	recordedAt time.Time
	accuracyM  float64
	speedKmh   *float64
	headingDeg *float64
	suspicious bool
}

// NewSnapshot validates the shape of a report. Time-based checks against the receive
// instant are done separately by ValidateReceivedAt, so that history rows of any age
// can be rebuilt with the same constructor.
//
// Rules:
//   - courier id and point must be constructed
//   - 0 <= accuracy <= 1000 m
//   - speed, when present, within 0..200 km/h
//   - heading, when present, within [0, 360)
func NewSnapshot(
	courierID kernel.UUID,
	point kernel.Coordinates,
	recordedAt time.Time,
	accuracyM float64,
	speedKmh *float64,
	headingDeg *float64,
) (Snapshot, error) {
	if err := courierID.Validate(); err != nil {
		return Snapshot{}, err
	}
	if err := point.Validate(); err != nil {
		return Snapshot{}, err
	}
	if recordedAt.IsZero() {
		return Snapshot{}, errs.NewValueIsRequiredError("recorded_at")
	}
	if math.IsNaN(accuracyM) || accuracyM < 0 || accuracyM > MaxAccuracyM {
		return Snapshot{}, errs.NewValueIsOutOfRangeError("accuracy", accuracyM, 0, MaxAccuracyM)
	}
	if speedKmh != nil && (math.IsNaN(*speedKmh) || *speedKmh < 0 || *speedKmh > MaxSpeedKmh) {
		return Snapshot{}, errs.NewValueIsOutOfRangeError("speed", *speedKmh, 0, MaxSpeedKmh)
	}
	if headingDeg != nil && (math.IsNaN(*headingDeg) || *headingDeg < 0 || *headingDeg >= 360) {
		return Snapshot{}, errs.NewValueIsOutOfRangeError("heading", *headingDeg, 0, "<360")
	}

	return Snapshot{
		courierID:  courierID,
		point:      point,
		recordedAt: recordedAt.UTC(),
		accuracyM:  accuracyM,
		speedKmh:   copyFloat(speedKmh),
		headingDeg: copyFloat(headingDeg),
	}, nil
}

// ValidateReceivedAt rejects reports stamped more than a minute in the future or older
// than five minutes at the instant they are received.
func (s Snapshot) ValidateReceivedAt(now time.Time) error {
	if s.recordedAt.After(now.Add(MaxFutureSkew)) {
		return errs.NewValueIsInvalidErrorWithCause("timestamp",
			fmt.Errorf("%s is more than %s in the future", s.recordedAt.Format(time.RFC3339), MaxFutureSkew))
	}
	if now.Sub(s.recordedAt) > MaxReportAge {
		return errs.NewValueIsInvalidErrorWithCause("timestamp",
			fmt.Errorf("%s is older than %s", s.recordedAt.Format(time.RFC3339), MaxReportAge))
	}
	return nil
}

func (s Snapshot) CourierID() kernel.UUID    { return s.courierID }
func (s Snapshot) Point() kernel.Coordinates { return s.point }
func (s Snapshot) RecordedAt() time.Time     { return s.recordedAt }
func (s Snapshot) AccuracyM() float64        { return s.accuracyM }
func (s Snapshot) SpeedKmh() *float64        { return copyFloat(s.speedKmh) }
func (s Snapshot) HeadingDeg() *float64      { return copyFloat(s.headingDeg) }
func (s Snapshot) Suspicious() bool          { return s.suspicious }

// IsZero reports whether the snapshot was never constructed.
func (s Snapshot) IsZero() bool {
	return s.recordedAt.IsZero()
}

// WithSuspicious returns a copy carrying the integrity flag.
func (s Snapshot) WithSuspicious(suspicious bool) Snapshot {
	s.suspicious = suspicious
	return s
}

// Age is now - recorded_at. It is negative for reports stamped slightly in the future.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.recordedAt)
}

// IsFresh reports whether dispatch may use the position: not older than freshness and
// not flagged.
func (s Snapshot) IsFresh(now time.Time, freshness time.Duration) bool {
	return !s.suspicious && s.Age(now) <= freshness
}

// IsNewerThan orders two reports of the same courier. Equal timestamps count as newer so
// that a replay overwrites the hot value.
func (s Snapshot) IsNewerThan(other Snapshot) bool {
	return !s.recordedAt.Before(other.recordedAt)
}

// VelocityKmhFrom is the speed implied by moving from prev to s. Two different points
// with the same timestamp give +Inf; the same point gives 0.
func (s Snapshot) VelocityKmhFrom(prev Snapshot) float64 {
	dist := s.point.DistanceKm(prev.point)
	dt := s.recordedAt.Sub(prev.recordedAt)
	if dt < 0 {
		dt = -dt
	}
	if dt == 0 {
		if dist > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return dist / dt.Hours()
}

// ImpliesTeleport reports whether s cannot physically follow prev.
func (s Snapshot) ImpliesTeleport(prev Snapshot) bool {
	return s.VelocityKmhFrom(prev) > SuspiciousVelocityKmh
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

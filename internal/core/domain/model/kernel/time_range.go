package kernel

import (
	"fmt"
	"time"

	"courier-dispatch/internal/pkg/errs"
)

// TimeRange is a half-open interval [start, end) with start strictly before end.
// It is used by history queries.
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange validates start < end. Equal bounds are rejected.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() {
		return TimeRange{}, errs.NewValueIsRequiredError("time range start")
	}
	if end.IsZero() {
		return TimeRange{}, errs.NewValueIsRequiredError("time range end")
	}
	if !start.Before(end) {
		return TimeRange{}, errs.NewValueIsInvalidErrorWithCause(
			"time range",
			fmt.Errorf("start %s is not before end %s", start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano)),
		)
	}
	return TimeRange{start: start, end: end}, nil
}

// Start returns the inclusive lower bound.
func (r TimeRange) Start() time.Time {
	return r.start
}

// End returns the exclusive upper bound.
func (r TimeRange) End() time.Time {
	return r.end
}

// Contains reports whether t lies in [start, end).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.start) && t.Before(r.end)
}

// IsZero reports whether the range was never constructed.
func (r TimeRange) IsZero() bool {
	return r.start.IsZero() && r.end.IsZero()
}

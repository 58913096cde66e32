package kernel

import "time"

// Clock supplies the current instant. Handlers depend on it instead of time.Now so that
// shift windows and location freshness can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the configured service-local time zone.
type SystemClock struct {
	Location *time.Location
}

// Now returns time.Now in the clock's zone, or UTC when no zone is set.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

package courier

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"courier-dispatch/internal/pkg/errs"
)

const minutesPerDay = 24 * 60

// ErrInvalidSchedule is the validation category of every work-hours error.
var ErrInvalidSchedule = errs.NewValueIsInvalidError("work hours")

// TimeOfDay is a wall-clock time with minute precision, stored as minutes since midnight.
type TimeOfDay int

// NewTimeOfDay validates hour 0..23 and minute 0..59.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d is not a time of day", ErrInvalidSchedule, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidSchedule, s)
	}
	return NewTimeOfDay(h, m)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// seconds returns the offset from midnight in seconds.
func (t TimeOfDay) seconds() int {
	return int(t) * 60
}

// WorkHours is a daily shift window plus the ISO weekdays (Monday = 1 ... Sunday = 7) on
// which it applies. Times are service-local wall time. A window whose end is before its
// start wraps past midnight, e.g. 22:00-06:00.
type WorkHours struct {
	start TimeOfDay
	end   TimeOfDay
	days  []int
}

// NewWorkHours validates the window and the weekday set. Duplicated days are collapsed.
//
// Returns ErrInvalidSchedule (wrapped) when:
//   - days is empty or contains a value outside 1..7
//   - start equals end (an empty window)
func NewWorkHours(start, end TimeOfDay, days []int) (WorkHours, error) {
	if start < 0 || start >= minutesPerDay || end < 0 || end >= minutesPerDay {
		return WorkHours{}, fmt.Errorf("%w: window %s-%s is out of range", ErrInvalidSchedule, start, end)
	}
	if start == end {
		return WorkHours{}, fmt.Errorf("%w: window %s-%s is empty", ErrInvalidSchedule, start, end)
	}
	if len(days) == 0 {
		return WorkHours{}, fmt.Errorf("%w: no working days", ErrInvalidSchedule)
	}

	set := make([]int, 0, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			return WorkHours{}, fmt.Errorf("%w: %d is not an ISO weekday", ErrInvalidSchedule, d)
		}
		if !slices.Contains(set, d) {
			set = append(set, d)
		}
	}
	slices.Sort(set)

	return WorkHours{start: start, end: end, days: set}, nil
}

// AlwaysOn is a 00:00-23:59 window on every day, used for placeholder couriers.
func AlwaysOn() WorkHours {
	return WorkHours{start: 0, end: minutesPerDay - 1, days: []int{1, 2, 3, 4, 5, 6, 7}}
}

func (w WorkHours) Start() TimeOfDay { return w.start }
func (w WorkHours) End() TimeOfDay   { return w.end }

// Days returns a copy of the sorted weekday set.
func (w WorkHours) Days() []int {
	return slices.Clone(w.days)
}

// IsZero reports whether the value was never constructed.
func (w WorkHours) IsZero() bool {
	return len(w.days) == 0
}

// Wraps reports whether the window crosses midnight.
func (w WorkHours) Wraps() bool {
	return w.end < w.start
}

// IsOnShift reports whether t falls inside the window on an active weekday. Both bounds
// are inclusive at minute precision: a 09:00-18:00 window covers 18:00:59.
// The weekday test is applied to t itself, also for the after-midnight part of a
// wrapping window.
func (w WorkHours) IsOnShift(t time.Time) bool {
	if !slices.Contains(w.days, isoWeekday(t)) {
		return false
	}

	tod := t.Hour()*3600 + t.Minute()*60 + t.Second()
	start := w.start.seconds()
	end := w.end.seconds() + 59

	if !w.Wraps() {
		return tod >= start && tod <= end
	}
	return tod >= start || tod <= end
}

func (w WorkHours) String() string {
	return fmt.Sprintf("%s-%s %v", w.start, w.end, w.days)
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

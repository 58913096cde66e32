package courier

import (
	"fmt"
	"strings"

	"courier-dispatch/internal/pkg/errs"
)

// Status is the availability state of a courier.
//
// State transitions:
//
//	Unavailable ──activate──> Free ──load reaches max──> Busy
//	     ^                     │  <──load drops below max──┘
//	     └─────deactivate──────┴──────────(Free|Busy)
//	Unavailable|Free ──archive (load = 0)──> Archived (terminal)
type Status int

const (
	// StatusUnknown is the zero value and is never valid.
	StatusUnknown Status = iota
	// StatusFree means the courier accepts new work.
	StatusFree
	// StatusBusy means the courier is active but has no spare capacity.
	StatusBusy
	// StatusUnavailable means the courier is off duty and receives no new work.
	// Packages already assigned stay with the courier.
	StatusUnavailable
	// StatusArchived is the terminal soft-delete state.
	StatusArchived
)

var statusNames = map[Status]string{
	StatusUnknown:     "Unknown",
	StatusFree:        "Free",
	StatusBusy:        "Busy",
	StatusUnavailable: "Unavailable",
	StatusArchived:    "Archived",
}

// ParseStatus converts the case-insensitive name of a status back into a Status.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if st != StatusUnknown && strings.EqualFold(name, s) {
			return st, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a courier status", s))
}

// Validate rejects StatusUnknown and out-of-range values.
func (s Status) Validate() error {
	if s <= StatusUnknown || s > StatusArchived {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid courier status", s))
	}
	return nil
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsActive reports whether the courier is on duty (Free or Busy).
func (s Status) IsActive() bool {
	return s == StatusFree || s == StatusBusy
}

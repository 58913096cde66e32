package parcel

import (
	"errors"
	"fmt"
	"strings"

	"courier-dispatch/internal/pkg/errs"
)

// Status represents the lifecycle state of a package.
// It implements a state machine; Package.Transition is the only code that moves a
// package along its edges.
//
// State transitions:
//
//	Accepted ──> InPool ──> Assigned ──> InTransit ──┬──> Delivered
//	   │           │  ^         │                    └──> NotDelivered
//	   │           │  └─revoke──┘
//	   └───────────┴──> Cancelled
//
// Delivered, NotDelivered and Cancelled are terminal.
type Status int

const (
	// StatusUnknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	StatusUnknown Status = iota

	// StatusAccepted is the state of a package that was created but not yet stored.
	StatusAccepted

	// StatusInPool means the package waits for dispatch.
	StatusInPool

	// StatusAssigned means a courier was reserved but has not picked the package up.
	StatusAssigned

	// StatusInTransit means the courier confirmed the pickup.
	StatusInTransit

	// StatusDelivered is the successful terminal state.
	StatusDelivered

	// StatusNotDelivered is the failed terminal state. It always carries a reason.
	StatusNotDelivered

	// StatusCancelled is reachable only before a courier touched the package.
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusUnknown:      "Unknown",
	StatusAccepted:     "Accepted",
	StatusInPool:       "InPool",
	StatusAssigned:     "Assigned",
	StatusInTransit:    "InTransit",
	StatusDelivered:    "Delivered",
	StatusNotDelivered: "NotDelivered",
	StatusCancelled:    "Cancelled",
}

// transitions is the complete edge table. Anything missing is illegal.
var transitions = map[Status][]Status{
	StatusAccepted:  {StatusInPool, StatusCancelled},
	StatusInPool:    {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusInTransit, StatusInPool},
	StatusInTransit: {StatusDelivered, StatusNotDelivered},
}

// ErrIllegalTransition is the category of every IllegalTransitionError.
var ErrIllegalTransition = errors.New("illegal package transition")

// IllegalTransitionError reports an attempted edge that is not in the state machine.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: from %s to %s", ErrIllegalTransition, e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// ParseStatus converts a case-insensitive status name, as stored in the database or sent
// by API clients, back into a Status.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if st != StatusUnknown && strings.EqualFold(name, s) {
			return st, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a package status", s))
}

// Validate checks if the Status value is one of the seven lifecycle states.
func (s Status) Validate() error {
	if s <= StatusUnknown || s > StatusCancelled {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid package status", s))
	}
	return nil
}

// String returns the human-readable name of the status. It is safe to call on any value.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsTerminal reports whether no edge leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusNotDelivered || s == StatusCancelled
}

// HasCourier reports whether a package in this status must carry an assigned courier.
func (s Status) HasCourier() bool {
	return s == StatusAssigned || s == StatusInTransit
}

// CanTransitionTo reports whether s -> to is an edge of the state machine.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

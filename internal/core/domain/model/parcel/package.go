package parcel

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

// Priority bounds. 1 is the most urgent.
const (
	MinPriority = 1
	MaxPriority = 5
)

const maxInstructionsLength = 1024

var (
	// ErrPackageIsNotConstructed is returned when a Package instance was not created through
	// NewPackage or RestorePackage.
	ErrPackageIsNotConstructed = errors.New("Package must be created via NewPackage constructor")

	// ErrZoneIsRequired is returned for a blank zone.
	ErrZoneIsRequired = errs.NewValueIsRequiredError("zone")

	// ErrCourierIsRequired is returned when a transition needs a courier and none was given.
	ErrCourierIsRequired = errs.NewValueIsRequiredError("courier_id")

	// ErrFailureReasonIsRequired is returned by a NotDelivered transition without a reason.
	ErrFailureReasonIsRequired = errs.NewValueIsRequiredError("failure_reason")

	// ErrCourierMismatch is returned when a courier acts on a package assigned to someone else.
	ErrCourierMismatch = errs.NewValueIsInvalidError("courier_id")
)

// Details are the order attributes a package is accepted with.
type Details struct {
	OrderID      kernel.UUID
	CustomerID   kernel.UUID
	Pickup       kernel.Location
	Delivery     kernel.Location
	Zone         string
	WeightKg     float64
	Priority     int
	Instructions string
	Recipient    Recipient
}

// TransitionContext carries the inputs a transition may need. Now is always required;
// the other fields are read only by the edges that use them.
type TransitionContext struct {
	Now            time.Time
	CourierID      kernel.UUID
	Recipient      Recipient
	CancelReason   string
	FailureReason  string
	RevokeReason   string
	PickupLocation *kernel.Location
}

// Package is the aggregate root of a delivery package.
//
// Package follows these invariants:
//   - an assigned courier is present if and only if the status is Assigned or InTransit
//   - the assigned courier changes only through a revocation back to InPool
//   - every applied transition increments version and records exactly one event
//   - weight is positive, priority is within 1..5, zone is not blank
//
// The courier that completed a delivery stays readable through CompletedBy after the
// assignment is released.
type Package struct {
	id           kernel.UUID
	orderID      kernel.UUID
	customerID   kernel.UUID
	pickup       kernel.Location
	delivery     kernel.Location
	zone         string
	weightKg     float64
	priority     int
	instructions string
	recipient    Recipient

	status         Status
	courierID      *kernel.UUID
	completedBy    *kernel.UUID
	pickupLocation *kernel.Location
	cancelReason   string
	failureReason  string

	acceptedAt  time.Time
	assignedAt  *time.Time
	pickedUpAt  *time.Time
	completedAt *time.Time
	updatedAt   time.Time

	version          uint64
	persistedVersion uint64

	events kernel.EventRecorder
	guard  guard.ConstructorGuard
}

// State is the full persisted state of a package.
type State struct {
	ID             kernel.UUID
	Details        Details
	Status         Status
	CourierID      *kernel.UUID
	CompletedBy    *kernel.UUID
	PickupLocation *kernel.Location
	CancelReason   string
	FailureReason  string
	AcceptedAt     time.Time
	AssignedAt     *time.Time
	PickedUpAt     *time.Time
	CompletedAt    *time.Time
	UpdatedAt      time.Time
	Version        uint64
}

// NewPackage creates a package in the Accepted status. It is moved to InPool by the
// coordinator once stored, which also raises PackageAccepted.
//
// Parameters:
//   - id: unique identifier of the package
//   - d: order data; weight must be > 0, priority within 1..5, zone non-blank
//   - now: acceptance instant
//
// Returns the package or the joined validation errors of every invalid field.
//
// Example:
//
//	pickup, _ := kernel.NewLocationFromLatLon(52.52, 13.405, "Alexanderplatz 1")
//	delivery, _ := kernel.NewLocationFromLatLon(52.53, 13.415, "")
//	p, err := parcel.NewPackage(kernel.NewUUID(), parcel.Details{
//	    OrderID: orderID, CustomerID: customerID,
//	    Pickup: pickup, Delivery: delivery,
//	    Zone: "berlin", WeightKg: 2, Priority: 3,
//	}, time.Now())
func NewPackage(id kernel.UUID, d Details, now time.Time) (*Package, error) {
	p := &Package{
		status:     StatusAccepted,
		acceptedAt: now,
		updatedAt:  now,
		version:    1,
		guard:      guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		p.setID(id),
		p.setDetails(d),
	); err != nil {
		return nil, err
	}

	return p, nil
}

// RestorePackage rebuilds a package from storage without recording events.
func RestorePackage(s State) (*Package, error) {
	p := &Package{
		status:           s.Status,
		courierID:        s.CourierID,
		completedBy:      s.CompletedBy,
		pickupLocation:   s.PickupLocation,
		cancelReason:     s.CancelReason,
		failureReason:    s.FailureReason,
		acceptedAt:       s.AcceptedAt,
		assignedAt:       s.AssignedAt,
		pickedUpAt:       s.PickedUpAt,
		completedAt:      s.CompletedAt,
		updatedAt:        s.UpdatedAt,
		version:          s.Version,
		persistedVersion: s.Version,
		guard:            guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		p.setID(s.ID),
		p.setDetails(s.Details),
		s.Status.Validate(),
		p.checkAssignment(),
	); err != nil {
		return nil, err
	}

	return p, nil
}

// State returns the persisted state of the package, the inverse of RestorePackage.
func (p *Package) State() State {
	return State{
		ID: p.id,
		Details: Details{
			OrderID:      p.orderID,
			CustomerID:   p.customerID,
			Pickup:       p.pickup,
			Delivery:     p.delivery,
			Zone:         p.zone,
			WeightKg:     p.weightKg,
			Priority:     p.priority,
			Instructions: p.instructions,
			Recipient:    p.recipient,
		},
		Status:         p.status,
		CourierID:      copyUUID(p.courierID),
		CompletedBy:    copyUUID(p.completedBy),
		PickupLocation: p.PickupLocation(),
		CancelReason:   p.cancelReason,
		FailureReason:  p.failureReason,
		AcceptedAt:     p.acceptedAt,
		AssignedAt:     copyTime(p.assignedAt),
		PickedUpAt:     copyTime(p.pickedUpAt),
		CompletedAt:    copyTime(p.completedAt),
		UpdatedAt:      p.updatedAt,
		Version:        p.version,
	}
}

// Validate ensures the Package was constructed through NewPackage or RestorePackage.
func (p *Package) Validate() error {
	if p == nil {
		return ErrPackageIsNotConstructed
	}
	return p.guard.Validate(ErrPackageIsNotConstructed)
}

// IsEqual compares two packages by identity.
func (p *Package) IsEqual(other *Package) bool {
	return other != nil && p.id.IsEqual(other.id)
}

func (p *Package) ID() kernel.UUID           { return p.id }
func (p *Package) OrderID() kernel.UUID      { return p.orderID }
func (p *Package) CustomerID() kernel.UUID   { return p.customerID }
func (p *Package) Pickup() kernel.Location   { return p.pickup }
func (p *Package) Delivery() kernel.Location { return p.delivery }
func (p *Package) Zone() string              { return p.zone }
func (p *Package) WeightKg() float64         { return p.weightKg }
func (p *Package) Priority() int             { return p.priority }
func (p *Package) Instructions() string      { return p.instructions }
func (p *Package) Recipient() Recipient      { return p.recipient }
func (p *Package) Status() Status            { return p.status }
func (p *Package) CancelReason() string      { return p.cancelReason }
func (p *Package) FailureReason() string     { return p.failureReason }
func (p *Package) AcceptedAt() time.Time     { return p.acceptedAt }
func (p *Package) UpdatedAt() time.Time      { return p.updatedAt }
func (p *Package) Version() uint64           { return p.version }

// PersistedVersion is the version the package had when it was loaded, zero when new.
func (p *Package) PersistedVersion() uint64 { return p.persistedVersion }

// CourierID returns the assigned courier, nil unless Assigned or InTransit.
func (p *Package) CourierID() *kernel.UUID { return copyUUID(p.courierID) }

// CompletedBy returns the courier that delivered or failed the package.
func (p *Package) CompletedBy() *kernel.UUID { return copyUUID(p.completedBy) }

// PickupLocation is where the courier confirmed the pickup, if it reported one.
func (p *Package) PickupLocation() *kernel.Location {
	if p.pickupLocation == nil {
		return nil
	}
	l := *p.pickupLocation
	return &l
}

func (p *Package) AssignedAt() *time.Time  { return copyTime(p.assignedAt) }
func (p *Package) PickedUpAt() *time.Time  { return copyTime(p.pickedUpAt) }
func (p *Package) CompletedAt() *time.Time { return copyTime(p.completedAt) }

// IsAssignedTo reports whether courierID is the courier currently holding the package.
func (p *Package) IsAssignedTo(courierID kernel.UUID) bool {
	return p.courierID != nil && p.courierID.IsEqual(courierID)
}

// DomainEvents returns the events recorded since the package was loaded or created.
func (p *Package) DomainEvents() []kernel.DomainEvent {
	return p.events.DomainEvents()
}

// ClearDomainEvents drops recorded events once they are in the outbox.
func (p *Package) ClearDomainEvents() {
	p.events.ClearDomainEvents()
}

// Transition moves the package along one edge of the state machine and is the only way
// to change its status.
//
// The edge is checked first, then the inputs the edge needs; nothing is mutated when any
// check fails. On success the side effects of the edge are applied, version is
// incremented and one event is recorded.
//
// Returns:
//   - (true, nil) when the transition was applied
//   - (false, nil) when a Delivered package is delivered again, without any mutation
//   - (false, *IllegalTransitionError) for every other edge outside the table,
//     including all other repeats of a terminal state
//   - (false, validation error) when a required input is missing or does not match
func (p *Package) Transition(to Status, ctx TransitionContext) (bool, error) {
	from := p.status
	if from == StatusDelivered && to == StatusDelivered {
		return false, nil
	}
	if !from.CanTransitionTo(to) {
		return false, &IllegalTransitionError{From: from, To: to}
	}
	if ctx.Now.IsZero() {
		return false, errs.NewValueIsRequiredError("now")
	}
	if err := p.checkInputs(to, ctx); err != nil {
		return false, err
	}

	event := StatusChangedEvent{
		Name: eventNameFor(from, to),
		From: from.String(),
		To:   to.String(),
	}

	now := ctx.Now
	switch to {
	case StatusInPool:
		if from == StatusAssigned {
			event.CourierID = copyUUID(p.courierID)
			event.Reason = ctx.RevokeReason
			p.courierID = nil
			p.assignedAt = nil
		} else {
			event.Details = p.acceptedDetails()
		}
	case StatusAssigned:
		id := ctx.CourierID
		p.courierID = &id
		p.assignedAt = &now
		event.CourierID = copyUUID(p.courierID)
	case StatusInTransit:
		p.pickedUpAt = &now
		if ctx.PickupLocation != nil {
			l := *ctx.PickupLocation
			p.pickupLocation = &l
			pt := pointOf(l)
			event.Location = &pt
		}
		event.CourierID = copyUUID(p.courierID)
	case StatusDelivered, StatusNotDelivered:
		p.completedBy = p.courierID
		p.courierID = nil
		p.completedAt = &now
		if !ctx.Recipient.IsZero() {
			p.recipient = ctx.Recipient
		}
		if to == StatusNotDelivered {
			p.failureReason = strings.TrimSpace(ctx.FailureReason)
			event.Reason = p.failureReason
		}
		event.CourierID = copyUUID(p.completedBy)
	case StatusCancelled:
		p.cancelReason = strings.TrimSpace(ctx.CancelReason)
		p.completedAt = &now
		event.Reason = p.cancelReason
	}

	p.status = to
	p.version++
	p.updatedAt = now

	event.EventMeta = kernel.NewEventMeta(p.id, now)
	event.Version = p.version
	p.events.Record(event)

	return true, nil
}

func (p *Package) checkInputs(to Status, ctx TransitionContext) error {
	switch to {
	case StatusAssigned:
		if err := ctx.CourierID.Validate(); err != nil {
			return ErrCourierIsRequired
		}
	case StatusInTransit, StatusDelivered, StatusNotDelivered:
		if err := ctx.CourierID.Validate(); err != nil {
			return ErrCourierIsRequired
		}
		if !p.IsAssignedTo(ctx.CourierID) {
			return fmt.Errorf("%w: package %s is not assigned to courier %s", ErrCourierMismatch, p.id, ctx.CourierID)
		}
		if to == StatusNotDelivered && strings.TrimSpace(ctx.FailureReason) == "" {
			return ErrFailureReasonIsRequired
		}
		if ctx.PickupLocation != nil {
			if err := ctx.PickupLocation.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Package) acceptedDetails() *AcceptedDetails {
	return &AcceptedDetails{
		OrderID:    p.orderID,
		CustomerID: p.customerID,
		Pickup:     pointOf(p.pickup),
		Delivery:   pointOf(p.delivery),
		Zone:       p.zone,
		WeightKg:   p.weightKg,
		Priority:   p.priority,
	}
}

func (p *Package) checkAssignment() error {
	hasCourier := p.courierID != nil
	if hasCourier != p.status.HasCourier() {
		return errs.NewValueIsInvalidErrorWithCause(
			"courier_id",
			fmt.Errorf("status %s with courier assigned = %t", p.status, hasCourier),
		)
	}
	return nil
}

func (p *Package) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	p.id = id
	return nil
}

// Validate checks the order data a package is created from. All problems are reported
// together.
func (d Details) Validate() error {
	var errList []error

	if err := d.OrderID.Validate(); err != nil {
		errList = append(errList, errs.NewValueIsRequiredErrorWithCause("order_id", err))
	}
	if err := d.CustomerID.Validate(); err != nil {
		errList = append(errList, errs.NewValueIsRequiredErrorWithCause("customer_id", err))
	}
	if err := d.Pickup.Validate(); err != nil {
		errList = append(errList, errs.NewValueIsRequiredErrorWithCause("pickup", err))
	}
	if err := d.Delivery.Validate(); err != nil {
		errList = append(errList, errs.NewValueIsRequiredErrorWithCause("delivery", err))
	}
	if strings.TrimSpace(d.Zone) == "" {
		errList = append(errList, ErrZoneIsRequired)
	}
	if math.IsNaN(d.WeightKg) || math.IsInf(d.WeightKg, 0) || d.WeightKg <= 0 {
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause(
			"weight_kg", fmt.Errorf("%v is not greater than 0", d.WeightKg)))
	}
	if d.Priority < MinPriority || d.Priority > MaxPriority {
		errList = append(errList, errs.NewValueIsOutOfRangeError("priority", d.Priority, MinPriority, MaxPriority))
	}
	if len(d.Instructions) > maxInstructionsLength {
		errList = append(errList, errs.NewValueIsOutOfRangeError(
			"instructions", len(d.Instructions), 0, maxInstructionsLength))
	}
	return errors.Join(errList...)
}

func (p *Package) setDetails(d Details) error {
	if err := d.Validate(); err != nil {
		return err
	}

	p.orderID = d.OrderID
	p.customerID = d.CustomerID
	p.pickup = d.Pickup
	p.delivery = d.Delivery
	p.zone = strings.TrimSpace(d.Zone)
	p.weightKg = d.WeightKg
	p.priority = d.Priority
	p.instructions = strings.TrimSpace(d.Instructions)
	p.recipient = d.Recipient
	return nil
}

func copyUUID(id *kernel.UUID) *kernel.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

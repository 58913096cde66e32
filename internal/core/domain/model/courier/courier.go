package courier

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

// WildcardZone as a work zone matches packages of any zone.
const WildcardZone = "*"

const maxRating = 5.0

// Domain errors for courier operations.
var (
	// ErrNameIsRequired is returned when a courier is registered without a name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
	// ErrWorkZoneIsRequired is returned when the work zone is blank.
	ErrWorkZoneIsRequired = errs.NewValueIsRequiredError("work_zone")
	// ErrCourierIsNotConstructed is returned when using an improperly initialized Courier.
	ErrCourierIsNotConstructed = errors.New("Courier must be created via NewCourier constructor")
	// ErrCourierArchived is returned by every status change of an archived courier.
	ErrCourierArchived = errors.New("courier is archived")
	// ErrHasActiveWork is returned when archiving a courier that still carries packages.
	ErrHasActiveWork = errors.New("courier has active work")
	// ErrLoadInvariantViolated signals a load overflow or underflow. It is a bug in the
	// caller, never a user error.
	ErrLoadInvariantViolated = errors.New("courier load invariant violated")
	// ErrCapacityBelowLoad is returned when a transport change would leave the courier
	// carrying more packages than the new vehicle allows.
	ErrCapacityBelowLoad = errs.NewValueIsInvalidError("transport")
)

// Reason explains why a courier cannot take a package. ReasonNone means it can.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonArchived     Reason = "archived"
	ReasonUnavailable  Reason = "unavailable"
	ReasonBusy         Reason = "busy"
	ReasonOffShift     Reason = "off_shift"
	ReasonAtCapacity   Reason = "at_capacity"
	ReasonZoneMismatch Reason = "zone_mismatch"
	ReasonOutOfRange   Reason = "out_of_range"
)

// Assignable is the view of a package that the courier needs for its acceptance rules.
type Assignable interface {
	Zone() string
	Pickup() kernel.Location
}

// Courier is the aggregate root for a delivery courier: identity, contact data, vehicle,
// shift schedule, availability status and the number of packages currently carried.
//
// Invariants:
//   - 0 <= current load <= max load
//   - Archived implies a load of zero and no further transitions
//   - version grows by one on every mutation; the repository compares the version read
//     from storage to detect concurrent writers
//
// Every mutation records a domain event (except load changes, which are reported by the
// package events that cause them).
type Courier struct {
	id            kernel.UUID
	name          string
	contact       Contact
	transport     TransportType
	maxDistanceKm float64
	workZone      string
	workHours     WorkHours
	status        Status
	currentLoad   uint16
	maxLoad       uint16

	successfulDeliveries uint32
	failedDeliveries     uint32

	createdAt time.Time
	updatedAt time.Time

	version          uint64
	persistedVersion uint64

	events kernel.EventRecorder
	guard  guard.ConstructorGuard
}

// State is the full persisted state of a courier, used to restore the aggregate.
type State struct {
	ID                   kernel.UUID
	Name                 string
	Contact              Contact
	Transport            TransportType
	MaxDistanceKm        float64
	WorkZone             string
	WorkHours            WorkHours
	Status               Status
	CurrentLoad          uint16
	MaxLoad              uint16
	SuccessfulDeliveries uint32
	FailedDeliveries     uint32
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              uint64
}

// NewCourier registers a courier. The courier starts Unavailable with no load and a
// capacity equal to the default of its transport.
//
// Parameters:
//   - id: unique identifier
//   - name: non-empty display name
//   - contact: validated phone, e-mail and optional push token
//   - transport: vehicle class
//   - maxDistanceKm: largest pickup distance the courier accepts, > 0
//   - workZone: zone identifier or "*"
//   - workHours: shift schedule
//   - now: registration instant
//
// Returns the courier with a CourierRegistered event pending, or the joined validation
// errors of every invalid argument.
//
// Example:
//
//	contact, _ := courier.NewContact("+4915112345678", "anna@example.com", "")
//	hours, _ := courier.NewWorkHours(9*60, 18*60, []int{1, 2, 3, 4, 5})
//	c, err := courier.NewCourier(kernel.NewUUID(), "Anna", contact,
//	    courier.TransportBicycle, 5, "berlin", hours, time.Now())
func NewCourier(
	id kernel.UUID,
	name string,
	contact Contact,
	transport TransportType,
	maxDistanceKm float64,
	workZone string,
	workHours WorkHours,
	now time.Time,
) (*Courier, error) {
	c := &Courier{
		status:    StatusUnavailable,
		createdAt: now,
		updatedAt: now,
		version:   1,
		guard:     guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		c.setID(id),
		c.setName(name),
		c.setContact(contact),
		c.setTransport(transport),
		c.setMaxDistance(maxDistanceKm),
		c.setWorkZone(workZone),
		c.setWorkHours(workHours),
	); err != nil {
		return nil, err
	}
	c.maxLoad = transport.DefaultMaxLoad()

	c.events.Record(RegisteredEvent{
		EventMeta: kernel.NewEventMeta(c.id, now),
		Name:      c.name,
		Transport: c.transport.String(),
		WorkZone:  c.workZone,
		MaxLoad:   c.maxLoad,
		Version:   c.version,
	})

	return c, nil
}

// RestoreCourier rebuilds a courier from storage. No events are recorded.
// The state is validated against the same rules as registration plus the load and
// status invariants, so corrupted rows are reported instead of loaded.
func RestoreCourier(s State) (*Courier, error) {
	c := &Courier{
		status:               s.Status,
		currentLoad:          s.CurrentLoad,
		maxLoad:              s.MaxLoad,
		successfulDeliveries: s.SuccessfulDeliveries,
		failedDeliveries:     s.FailedDeliveries,
		createdAt:            s.CreatedAt,
		updatedAt:            s.UpdatedAt,
		version:              s.Version,
		persistedVersion:     s.Version,
		guard:                guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		c.setID(s.ID),
		c.setName(s.Name),
		c.setContact(s.Contact),
		c.setTransport(s.Transport),
		c.setMaxDistance(s.MaxDistanceKm),
		c.setWorkZone(s.WorkZone),
		c.setWorkHours(s.WorkHours),
		s.Status.Validate(),
		c.checkLoad(),
	); err != nil {
		return nil, err
	}

	return c, nil
}

// State returns the persisted state of the courier, the inverse of RestoreCourier.
func (c *Courier) State() State {
	return State{
		ID:                   c.id,
		Name:                 c.name,
		Contact:              c.contact,
		Transport:            c.transport,
		MaxDistanceKm:        c.maxDistanceKm,
		WorkZone:             c.workZone,
		WorkHours:            c.workHours,
		Status:               c.status,
		CurrentLoad:          c.currentLoad,
		MaxLoad:              c.maxLoad,
		SuccessfulDeliveries: c.successfulDeliveries,
		FailedDeliveries:     c.failedDeliveries,
		CreatedAt:            c.createdAt,
		UpdatedAt:            c.updatedAt,
		Version:              c.version,
	}
}

// Validate returns ErrCourierIsNotConstructed for nil or zero-value couriers.
func (c *Courier) Validate() error {
	if c == nil {
		return ErrCourierIsNotConstructed
	}
	return c.guard.Validate(ErrCourierIsNotConstructed)
}

// IsEqual compares couriers by identity.
func (c *Courier) IsEqual(other *Courier) bool {
	return other != nil && c.id.IsEqual(other.id)
}

func (c *Courier) ID() kernel.UUID              { return c.id }
func (c *Courier) Name() string                 { return c.name }
func (c *Courier) Contact() Contact             { return c.contact }
func (c *Courier) Transport() TransportType     { return c.transport }
func (c *Courier) MaxDistanceKm() float64       { return c.maxDistanceKm }
func (c *Courier) WorkZone() string             { return c.workZone }
func (c *Courier) WorkHours() WorkHours         { return c.workHours }
func (c *Courier) Status() Status               { return c.status }
func (c *Courier) CurrentLoad() uint16          { return c.currentLoad }
func (c *Courier) MaxLoad() uint16              { return c.maxLoad }
func (c *Courier) SuccessfulDeliveries() uint32 { return c.successfulDeliveries }
func (c *Courier) FailedDeliveries() uint32     { return c.failedDeliveries }
func (c *Courier) CreatedAt() time.Time         { return c.createdAt }
func (c *Courier) UpdatedAt() time.Time         { return c.updatedAt }

// Version is the current optimistic-concurrency token.
func (c *Courier) Version() uint64 { return c.version }

// PersistedVersion is the version the courier had when it was loaded. Zero for couriers
// that were never stored.
func (c *Courier) PersistedVersion() uint64 { return c.persistedVersion }

// Rating is successful / (successful + failed) scaled to 0..5, or 0 without history.
func (c *Courier) Rating() float64 {
	return RatingOf(c.successfulDeliveries, c.failedDeliveries)
}

// RatingOf computes the rating from delivery counters, rounded to two decimals.
func RatingOf(successful, failed uint32) float64 {
	total := uint64(successful) + uint64(failed)
	if total == 0 {
		return 0
	}
	r := float64(successful) / float64(total) * maxRating
	return math.Round(r*100) / 100
}

// HasCapacity reports whether another package fits.
func (c *Courier) HasCapacity() bool {
	return c.currentLoad < c.maxLoad
}

// ServesZone reports whether the courier's work zone covers zone.
func (c *Courier) ServesZone(zone string) bool {
	return c.workZone == WildcardZone || c.workZone == zone
}

// DomainEvents returns the events recorded since the courier was loaded or created.
func (c *Courier) DomainEvents() []kernel.DomainEvent {
	return c.events.DomainEvents()
}

// ClearDomainEvents is called by the unit of work after the events reached the outbox.
func (c *Courier) ClearDomainEvents() {
	c.events.ClearDomainEvents()
}

// Activate puts an Unavailable courier on duty. The courier becomes Free, or Busy when it
// still carries a full load from before its deactivation. Activating an active courier is
// a no-op.
func (c *Courier) Activate(now time.Time) error {
	switch c.status {
	case StatusArchived:
		return ErrCourierArchived
	case StatusFree, StatusBusy:
		return nil
	case StatusUnavailable:
		to := StatusFree
		if !c.HasCapacity() {
			to = StatusBusy
		}
		c.changeStatus(now, EventActivated, to, "")
		return nil
	default:
		return c.status.Validate()
	}
}

// Deactivate takes the courier off duty. Packages already assigned stay assigned and the
// load is kept, so the courier can finish them without receiving new work.
// Deactivating an Unavailable courier is a no-op.
func (c *Courier) Deactivate(now time.Time, reason string) error {
	switch c.status {
	case StatusArchived:
		return ErrCourierArchived
	case StatusUnavailable:
		return nil
	case StatusFree, StatusBusy:
		c.changeStatus(now, EventDeactivated, StatusUnavailable, reason)
		return nil
	default:
		return c.status.Validate()
	}
}

// Archive soft-deletes the courier. It requires an empty load.
func (c *Courier) Archive(now time.Time, reason string) error {
	if c.status == StatusArchived {
		return ErrCourierArchived
	}
	if c.currentLoad > 0 {
		return fmt.Errorf("%w: %d packages in hand", ErrHasActiveWork, c.currentLoad)
	}
	c.changeStatus(now, EventArchived, StatusArchived, reason)
	return nil
}

// Eligibility returns the first rule that prevents the courier from taking p at now, or
// ReasonNone. When location is nil the distance rule is skipped.
//
// Rules, in the order they are checked:
//   - status is Free (archived, unavailable and busy are reported separately)
//   - on shift at now
//   - load below capacity
//   - work zone is p's zone or "*"
//   - haversine(location, p.pickup) <= max distance
func (c *Courier) Eligibility(p Assignable, now time.Time, location *kernel.Coordinates) Reason {
	switch c.status {
	case StatusFree:
	case StatusArchived:
		return ReasonArchived
	case StatusBusy:
		return ReasonBusy
	default:
		return ReasonUnavailable
	}
	if !c.workHours.IsOnShift(now) {
		return ReasonOffShift
	}
	if !c.HasCapacity() {
		return ReasonAtCapacity
	}
	if !c.ServesZone(p.Zone()) {
		return ReasonZoneMismatch
	}
	if location != nil && location.DistanceKm(p.Pickup().Point()) > c.maxDistanceKm {
		return ReasonOutOfRange
	}
	return ReasonNone
}

// CanAccept is Eligibility reduced to a boolean.
func (c *Courier) CanAccept(p Assignable, now time.Time, location *kernel.Coordinates) bool {
	return c.Eligibility(p, now, location) == ReasonNone
}

// IncrementLoad adds one package. A Free courier that reaches capacity becomes Busy.
// Exceeding the capacity returns ErrLoadInvariantViolated.
func (c *Courier) IncrementLoad(now time.Time) error {
	if c.status == StatusArchived {
		return fmt.Errorf("%w: increment on archived courier %s", ErrLoadInvariantViolated, c.id)
	}
	if c.currentLoad >= c.maxLoad {
		return fmt.Errorf("%w: load %d already at capacity %d for courier %s",
			ErrLoadInvariantViolated, c.currentLoad, c.maxLoad, c.id)
	}
	c.currentLoad++
	if c.status == StatusFree && !c.HasCapacity() {
		c.status = StatusBusy
	}
	c.touch(now)
	return nil
}

// DecrementLoad removes one package. A Busy courier with spare capacity becomes Free
// again. Decrementing an empty load returns ErrLoadInvariantViolated.
func (c *Courier) DecrementLoad(now time.Time) error {
	if c.currentLoad == 0 {
		return fmt.Errorf("%w: decrement below zero for courier %s", ErrLoadInvariantViolated, c.id)
	}
	c.currentLoad--
	if c.status == StatusBusy && c.HasCapacity() {
		c.status = StatusFree
	}
	c.touch(now)
	return nil
}

// RecordDeliveryOutcome counts a finished delivery for the rating.
func (c *Courier) RecordDeliveryOutcome(now time.Time, success bool) {
	if success {
		c.successfulDeliveries++
	} else {
		c.failedDeliveries++
	}
	c.touch(now)
}

// UpdateContact replaces phone, e-mail and push token.
func (c *Courier) UpdateContact(now time.Time, contact Contact) error {
	if c.status == StatusArchived {
		return ErrCourierArchived
	}
	if err := c.setContact(contact); err != nil {
		return err
	}
	c.profileUpdated(now, "contact")
	return nil
}

// ChangeTransport switches vehicle and resets the capacity to the vehicle default.
// The change is refused when the courier carries more packages than the new capacity.
func (c *Courier) ChangeTransport(now time.Time, transport TransportType) error {
	if c.status == StatusArchived {
		return ErrCourierArchived
	}
	if err := transport.Validate(); err != nil {
		return err
	}
	newMax := transport.DefaultMaxLoad()
	if c.currentLoad > newMax {
		return fmt.Errorf("%w: load %d exceeds %s capacity %d", ErrCapacityBelowLoad, c.currentLoad, transport, newMax)
	}

	c.transport = transport
	c.maxLoad = newMax
	switch {
	case c.status == StatusFree && !c.HasCapacity():
		c.status = StatusBusy
	case c.status == StatusBusy && c.HasCapacity():
		c.status = StatusFree
	}
	c.profileUpdated(now, "transport", "max_load")
	return nil
}

// UpdateSchedule replaces shift, work zone and maximum pickup distance together.
func (c *Courier) UpdateSchedule(now time.Time, hours WorkHours, workZone string, maxDistanceKm float64) error {
	if c.status == StatusArchived {
		return ErrCourierArchived
	}
	next := *c
	if err := errors.Join(
		next.setWorkHours(hours),
		next.setWorkZone(workZone),
		next.setMaxDistance(maxDistanceKm),
	); err != nil {
		return err
	}
	c.workHours = next.workHours
	c.workZone = next.workZone
	c.maxDistanceKm = next.maxDistanceKm
	c.profileUpdated(now, "work_hours", "work_zone", "max_distance_km")
	return nil
}

func (c *Courier) changeStatus(now time.Time, eventName string, to Status, reason string) {
	from := c.status
	c.status = to
	c.touch(now)
	c.events.Record(StatusChangedEvent{
		EventMeta:   kernel.NewEventMeta(c.id, now),
		Name:        eventName,
		From:        from.String(),
		To:          to.String(),
		Reason:      reason,
		CurrentLoad: c.currentLoad,
		Version:     c.version,
	})
}

func (c *Courier) profileUpdated(now time.Time, fields ...string) {
	c.touch(now)
	c.events.Record(ProfileUpdatedEvent{
		EventMeta: kernel.NewEventMeta(c.id, now),
		Fields:    fields,
		Version:   c.version,
	})
}

func (c *Courier) touch(now time.Time) {
	c.version++
	c.updatedAt = now
}

func (c *Courier) checkLoad() error {
	if c.currentLoad > c.maxLoad {
		return fmt.Errorf("%w: load %d above capacity %d", ErrLoadInvariantViolated, c.currentLoad, c.maxLoad)
	}
	if c.status == StatusArchived && c.currentLoad != 0 {
		return fmt.Errorf("%w: archived courier carries %d packages", ErrLoadInvariantViolated, c.currentLoad)
	}
	return nil
}

func (c *Courier) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *Courier) setName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameIsRequired
	}
	c.name = name
	return nil
}

func (c *Courier) setContact(contact Contact) error {
	if contact.IsZero() {
		return fmt.Errorf("%w: contact was not constructed", ErrInvalidContact)
	}
	c.contact = contact
	return nil
}

func (c *Courier) setTransport(t TransportType) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.transport = t
	return nil
}

func (c *Courier) setMaxDistance(km float64) error {
	if math.IsNaN(km) || km <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("max_distance_km", fmt.Errorf("%v is not greater than 0", km))
	}
	c.maxDistanceKm = km
	return nil
}

func (c *Courier) setWorkZone(zone string) error {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return ErrWorkZoneIsRequired
	}
	c.workZone = zone
	return nil
}

func (c *Courier) setWorkHours(hours WorkHours) error {
	if hours.IsZero() {
		return fmt.Errorf("%w: work hours are required", ErrInvalidSchedule)
	}
	c.workHours = hours
	return nil
}

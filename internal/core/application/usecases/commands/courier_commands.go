package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/guard"
)

var (
	ErrRegisterCourierCommandIsNotConstructed = errors.New(
		"RegisterCourierCommand must be created via NewRegisterCourierCommand constructor",
	)
	ErrChangeCourierStatusCommandIsNotConstructed = errors.New(
		"ChangeCourierStatusCommand must be created via NewActivateCourierCommand, " +
			"NewDeactivateCourierCommand or NewArchiveCourierCommand",
	)
	ErrUpdateCourierProfileCommandIsNotConstructed = errors.New(
		"UpdateCourierProfileCommand must be created via NewUpdateCourierContactCommand, " +
			"NewChangeCourierTransportCommand or NewUpdateCourierScheduleCommand",
	)
)

// RegisterCourierCommand adds a courier to the fleet. The courier starts Unavailable.
//
// Example:
//
//	contact, _ := courier.NewContact("+4915112345678", "anna@example.com", pushToken)
//	hours, _ := courier.NewWorkHours(nine, six, []int{1, 2, 3, 4, 5})
//	cmd, err := NewRegisterCourierCommand("Anna", contact, courier.TransportBicycle, 5, "berlin", hours)
//	courierID, err := handler.Handle(ctx, cmd)
type RegisterCourierCommand struct {
	courierID     kernel.UUID
	name          string
	contact       courier.Contact
	transport     courier.TransportType
	maxDistanceKm float64
	workZone      string
	workHours     courier.WorkHours

	guard guard.ConstructorGuard
}

// NewRegisterCourierCommand validates the profile and assigns a fresh courier id.
func NewRegisterCourierCommand(
	name string,
	contact courier.Contact,
	transport courier.TransportType,
	maxDistanceKm float64,
	workZone string,
	workHours courier.WorkHours,
) (RegisterCourierCommand, error) {
	var errList []error
	if strings.TrimSpace(name) == "" {
		errList = append(errList, courier.ErrNameIsRequired)
	}
	if contact.IsZero() {
		errList = append(errList, fmt.Errorf("%w: phone and email are required", courier.ErrInvalidContact))
	}
	if err := transport.Validate(); err != nil {
		errList = append(errList, err)
	}
	if strings.TrimSpace(workZone) == "" {
		errList = append(errList, courier.ErrWorkZoneIsRequired)
	}
	if workHours.IsZero() {
		errList = append(errList, fmt.Errorf("%w: schedule is required", courier.ErrInvalidSchedule))
	}
	if err := errors.Join(errList...); err != nil {
		return RegisterCourierCommand{}, err
	}

	return RegisterCourierCommand{
		courierID:     kernel.NewUUID(),
		name:          name,
		contact:       contact,
		transport:     transport,
		maxDistanceKm: maxDistanceKm,
		workZone:      workZone,
		workHours:     workHours,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

func (c RegisterCourierCommand) Validate() error {
	return c.guard.Validate(ErrRegisterCourierCommandIsNotConstructed)
}

func (c RegisterCourierCommand) CourierID() kernel.UUID           { return c.courierID }
func (c RegisterCourierCommand) Name() string                     { return c.name }
func (c RegisterCourierCommand) Contact() courier.Contact         { return c.contact }
func (c RegisterCourierCommand) Transport() courier.TransportType { return c.transport }
func (c RegisterCourierCommand) MaxDistanceKm() float64           { return c.maxDistanceKm }
func (c RegisterCourierCommand) WorkZone() string                 { return c.workZone }
func (c RegisterCourierCommand) WorkHours() courier.WorkHours     { return c.workHours }

// StatusAction is the lifecycle change requested for a courier.
type StatusAction string

const (
	StatusActionActivate   StatusAction = "activate"
	StatusActionDeactivate StatusAction = "deactivate"
	StatusActionArchive    StatusAction = "archive"
)

// ChangeCourierStatusCommand activates, deactivates or archives a courier.
type ChangeCourierStatusCommand struct {
	courierID kernel.UUID
	action    StatusAction
	reason    string

	guard guard.ConstructorGuard
}

// NewActivateCourierCommand puts the courier on duty.
func NewActivateCourierCommand(courierID kernel.UUID) (ChangeCourierStatusCommand, error) {
	return newChangeCourierStatusCommand(courierID, StatusActionActivate, "")
}

// NewDeactivateCourierCommand takes the courier off duty; reason is optional.
func NewDeactivateCourierCommand(courierID kernel.UUID, reason string) (ChangeCourierStatusCommand, error) {
	return newChangeCourierStatusCommand(courierID, StatusActionDeactivate, reason)
}

// NewArchiveCourierCommand removes the courier from the fleet; reason is optional.
func NewArchiveCourierCommand(courierID kernel.UUID, reason string) (ChangeCourierStatusCommand, error) {
	return newChangeCourierStatusCommand(courierID, StatusActionArchive, reason)
}

func newChangeCourierStatusCommand(
	courierID kernel.UUID,
	action StatusAction,
	reason string,
) (ChangeCourierStatusCommand, error) {
	if err := requireID("courier_id", courierID); err != nil {
		return ChangeCourierStatusCommand{}, err
	}
	return ChangeCourierStatusCommand{
		courierID: courierID,
		action:    action,
		reason:    strings.TrimSpace(reason),
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c ChangeCourierStatusCommand) Validate() error {
	return c.guard.Validate(ErrChangeCourierStatusCommandIsNotConstructed)
}

func (c ChangeCourierStatusCommand) CourierID() kernel.UUID { return c.courierID }
func (c ChangeCourierStatusCommand) Action() StatusAction   { return c.action }
func (c ChangeCourierStatusCommand) Reason() string         { return c.reason }

// UpdateCourierProfileCommand changes one part of a courier profile: contact,
// transport or schedule.
type UpdateCourierProfileCommand struct {
	courierID kernel.UUID
	apply     func(c *courier.Courier, now time.Time) error
	operation string

	guard guard.ConstructorGuard
}

// NewUpdateCourierContactCommand replaces phone, email and push token.
func NewUpdateCourierContactCommand(courierID kernel.UUID, contact courier.Contact) (UpdateCourierProfileCommand, error) {
	if contact.IsZero() {
		return UpdateCourierProfileCommand{}, fmt.Errorf("%w: phone and email are required", courier.ErrInvalidContact)
	}
	return newUpdateCourierProfileCommand(courierID, "update_courier_contact", func(c *courier.Courier, now time.Time) error {
		return c.UpdateContact(now, contact)
	})
}

// NewChangeCourierTransportCommand switches the vehicle, which also resets capacity.
func NewChangeCourierTransportCommand(
	courierID kernel.UUID,
	transport courier.TransportType,
) (UpdateCourierProfileCommand, error) {
	if err := transport.Validate(); err != nil {
		return UpdateCourierProfileCommand{}, err
	}
	return newUpdateCourierProfileCommand(courierID, "change_courier_transport", func(c *courier.Courier, now time.Time) error {
		return c.ChangeTransport(now, transport)
	})
}

// NewUpdateCourierScheduleCommand replaces work hours, work zone and range together.
func NewUpdateCourierScheduleCommand(
	courierID kernel.UUID,
	hours courier.WorkHours,
	workZone string,
	maxDistanceKm float64,
) (UpdateCourierProfileCommand, error) {
	if hours.IsZero() {
		return UpdateCourierProfileCommand{}, fmt.Errorf("%w: schedule is required", courier.ErrInvalidSchedule)
	}
	return newUpdateCourierProfileCommand(courierID, "update_courier_schedule", func(c *courier.Courier, now time.Time) error {
		return c.UpdateSchedule(now, hours, workZone, maxDistanceKm)
	})
}

func newUpdateCourierProfileCommand(
	courierID kernel.UUID,
	operation string,
	apply func(c *courier.Courier, now time.Time) error,
) (UpdateCourierProfileCommand, error) {
	if err := requireID("courier_id", courierID); err != nil {
		return UpdateCourierProfileCommand{}, err
	}
	return UpdateCourierProfileCommand{
		courierID: courierID,
		apply:     apply,
		operation: operation,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c UpdateCourierProfileCommand) Validate() error {
	return c.guard.Validate(ErrUpdateCourierProfileCommandIsNotConstructed)
}

func (c UpdateCourierProfileCommand) CourierID() kernel.UUID { return c.courierID }

// Operation names the change for logs and metrics.
func (c UpdateCourierProfileCommand) Operation() string { return c.operation }

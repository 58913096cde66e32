package commands

import (
	"errors"
	"strings"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

var (
	ErrPickUpOrderCommandIsNotConstructed = errors.New(
		"PickUpOrderCommand must be created via NewPickUpOrderCommand constructor",
	)
	ErrDeliverOrderCommandIsNotConstructed = errors.New(
		"DeliverOrderCommand must be created via NewDeliverOrderCommand constructor",
	)
	ErrCancelOrderCommandIsNotConstructed = errors.New(
		"CancelOrderCommand must be created via NewCancelOrderCommand constructor",
	)
	ErrRevokeAssignmentCommandIsNotConstructed = errors.New(
		"RevokeAssignmentCommand must be created via NewRevokeAssignmentCommand constructor",
	)
)

// PickUpOrderCommand confirms that the assigned courier collected the package.
type PickUpOrderCommand struct {
	packageID kernel.UUID
	courierID kernel.UUID
	location  kernel.Location

	guard guard.ConstructorGuard
}

// NewPickUpOrderCommand creates a pickup confirmation made at location.
func NewPickUpOrderCommand(packageID, courierID kernel.UUID, location kernel.Location) (PickUpOrderCommand, error) {
	if err := errors.Join(
		requireID("package_id", packageID),
		requireID("courier_id", courierID),
		location.Validate(),
	); err != nil {
		return PickUpOrderCommand{}, err
	}
	return PickUpOrderCommand{
		packageID: packageID,
		courierID: courierID,
		location:  location,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c PickUpOrderCommand) Validate() error {
	return c.guard.Validate(ErrPickUpOrderCommandIsNotConstructed)
}

func (c PickUpOrderCommand) PackageID() kernel.UUID    { return c.packageID }
func (c PickUpOrderCommand) CourierID() kernel.UUID    { return c.courierID }
func (c PickUpOrderCommand) Location() kernel.Location { return c.location }

// DeliverOrderCommand reports the drop-off result.
type DeliverOrderCommand struct {
	packageID     kernel.UUID
	courierID     kernel.UUID
	delivered     bool
	failureReason string
	recipient     parcel.Recipient

	guard guard.ConstructorGuard
}

// NewDeliverOrderCommand creates a successful drop-off report. recipient may be zero.
func NewDeliverOrderCommand(packageID, courierID kernel.UUID, recipient parcel.Recipient) (DeliverOrderCommand, error) {
	if err := errors.Join(
		requireID("package_id", packageID),
		requireID("courier_id", courierID),
	); err != nil {
		return DeliverOrderCommand{}, err
	}
	return DeliverOrderCommand{
		packageID: packageID,
		courierID: courierID,
		delivered: true,
		recipient: recipient,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// NewFailedDeliveryCommand creates a failed drop-off report; reason is required.
func NewFailedDeliveryCommand(packageID, courierID kernel.UUID, reason string) (DeliverOrderCommand, error) {
	reason = strings.TrimSpace(reason)
	var reasonErr error
	if reason == "" {
		reasonErr = parcel.ErrFailureReasonIsRequired
	}
	if err := errors.Join(
		requireID("package_id", packageID),
		requireID("courier_id", courierID),
		reasonErr,
	); err != nil {
		return DeliverOrderCommand{}, err
	}
	return DeliverOrderCommand{
		packageID:     packageID,
		courierID:     courierID,
		failureReason: reason,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

func (c DeliverOrderCommand) Validate() error {
	return c.guard.Validate(ErrDeliverOrderCommandIsNotConstructed)
}

func (c DeliverOrderCommand) PackageID() kernel.UUID      { return c.packageID }
func (c DeliverOrderCommand) CourierID() kernel.UUID      { return c.courierID }
func (c DeliverOrderCommand) Delivered() bool             { return c.delivered }
func (c DeliverOrderCommand) FailureReason() string       { return c.failureReason }
func (c DeliverOrderCommand) Recipient() parcel.Recipient { return c.recipient }

// CancelOrderCommand withdraws a package no courier has touched yet.
type CancelOrderCommand struct {
	packageID kernel.UUID
	reason    string

	guard guard.ConstructorGuard
}

// NewCancelOrderCommand creates a cancellation; reason is optional.
func NewCancelOrderCommand(packageID kernel.UUID, reason string) (CancelOrderCommand, error) {
	if err := requireID("package_id", packageID); err != nil {
		return CancelOrderCommand{}, err
	}
	return CancelOrderCommand{
		packageID: packageID,
		reason:    strings.TrimSpace(reason),
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c CancelOrderCommand) Validate() error {
	return c.guard.Validate(ErrCancelOrderCommandIsNotConstructed)
}

func (c CancelOrderCommand) PackageID() kernel.UUID { return c.packageID }
func (c CancelOrderCommand) Reason() string         { return c.reason }

// RevokeAssignmentCommand returns an assigned package to the pool, for instance when
// the courier rejects it.
type RevokeAssignmentCommand struct {
	packageID kernel.UUID
	reason    string

	guard guard.ConstructorGuard
}

// NewRevokeAssignmentCommand creates a revocation; reason is optional.
func NewRevokeAssignmentCommand(packageID kernel.UUID, reason string) (RevokeAssignmentCommand, error) {
	if err := requireID("package_id", packageID); err != nil {
		return RevokeAssignmentCommand{}, err
	}
	return RevokeAssignmentCommand{
		packageID: packageID,
		reason:    strings.TrimSpace(reason),
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c RevokeAssignmentCommand) Validate() error {
	return c.guard.Validate(ErrRevokeAssignmentCommandIsNotConstructed)
}

func (c RevokeAssignmentCommand) PackageID() kernel.UUID { return c.packageID }
func (c RevokeAssignmentCommand) Reason() string         { return c.reason }

func requireID(name string, id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause(name, err)
	}
	return nil
}

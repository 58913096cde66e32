package commands

import (
	"errors"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/pkg/guard"
)

var ErrAcceptOrderCommandIsNotConstructed = errors.New(
	"AcceptOrderCommand must be created via NewAcceptOrderCommand constructor",
)

// AcceptOrderCommand turns a confirmed order into a package waiting in the dispatch pool.
//
// Example:
//
//	cmd, err := NewAcceptOrderCommand(parcel.Details{
//	    OrderID:    orderID,
//	    CustomerID: customerID,
//	    Pickup:     pickup,
//	    Delivery:   delivery,
//	    Zone:       "berlin",
//	    WeightKg:   2,
//	    Priority:   3,
//	})
//	if err != nil {
//	    return fmt.Errorf("invalid order: %w", err)
//	}
//	packageID, err := handler.Handle(ctx, cmd)
type AcceptOrderCommand struct {
	packageID kernel.UUID
	details   parcel.Details

	guard guard.ConstructorGuard
}

// NewAcceptOrderCommand validates the order data and assigns a fresh package id.
func NewAcceptOrderCommand(details parcel.Details) (AcceptOrderCommand, error) {
	if err := details.Validate(); err != nil {
		return AcceptOrderCommand{}, err
	}

	return AcceptOrderCommand{
		packageID: kernel.NewUUID(),
		details:   details,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c AcceptOrderCommand) Validate() error {
	return c.guard.Validate(ErrAcceptOrderCommandIsNotConstructed)
}

// PackageID returns the id the package gets when the order is new.
func (c AcceptOrderCommand) PackageID() kernel.UUID {
	return c.packageID
}

// Details returns the order data.
func (c AcceptOrderCommand) Details() parcel.Details {
	return c.details
}

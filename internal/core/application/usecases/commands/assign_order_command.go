package commands

import (
	"errors"
	"fmt"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

var ErrAssignOrderCommandIsNotConstructed = errors.New(
	"AssignOrderCommand must be created via NewAssignOrderCommand constructor",
)

// AssignMode selects how the courier is chosen.
type AssignMode string

const (
	// AssignModeAuto ranks every dispatchable courier and reserves the best one.
	AssignModeAuto AssignMode = "auto"
	// AssignModeManual reserves the given courier if it passes the same eligibility rules.
	AssignModeManual AssignMode = "manual"
)

// ParseAssignMode parses "auto" or "manual".
func ParseAssignMode(s string) (AssignMode, error) {
	switch m := AssignMode(s); m {
	case AssignModeAuto, AssignModeManual:
		return m, nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("mode", fmt.Errorf("unknown assign mode %q", s))
	}
}

// AssignOrderCommand reserves a courier for a pooled package.
//
// Example:
//
//	cmd, err := NewAssignOrderCommand(packageID, AssignModeAuto, nil)
//	courierID, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, services.ErrNoCourierAvailable) {
//	    // package stays in the pool; try again later
//	}
type AssignOrderCommand struct {
	packageID kernel.UUID
	mode      AssignMode
	courierID kernel.UUID

	guard guard.ConstructorGuard
}

// NewAssignOrderCommand validates the request. Manual mode requires a courier id, auto
// mode must not carry one.
func NewAssignOrderCommand(packageID kernel.UUID, mode AssignMode, courierID *kernel.UUID) (AssignOrderCommand, error) {
	command := AssignOrderCommand{
		packageID: packageID,
		mode:      mode,
		guard:     guard.NewConstructorGuard(),
	}

	var errList []error
	if err := packageID.Validate(); err != nil {
		errList = append(errList, errs.NewValueIsRequiredErrorWithCause("package_id", err))
	}
	switch mode {
	case AssignModeAuto:
		if courierID != nil {
			errList = append(errList, errs.NewValueIsInvalidErrorWithCause(
				"courier_id", errors.New("auto assignment picks the courier itself")))
		}
	case AssignModeManual:
		if courierID == nil {
			errList = append(errList, errs.NewValueIsRequiredError("courier_id"))
		} else if err := courierID.Validate(); err != nil {
			errList = append(errList, errs.NewValueIsRequiredErrorWithCause("courier_id", err))
		} else {
			command.courierID = *courierID
		}
	default:
		_, err := ParseAssignMode(string(mode))
		errList = append(errList, err)
	}
	if err := errors.Join(errList...); err != nil {
		return AssignOrderCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c AssignOrderCommand) Validate() error {
	return c.guard.Validate(ErrAssignOrderCommandIsNotConstructed)
}

func (c AssignOrderCommand) PackageID() kernel.UUID { return c.packageID }
func (c AssignOrderCommand) Mode() AssignMode       { return c.mode }

// CourierID returns the requested courier of a manual assignment.
func (c AssignOrderCommand) CourierID() kernel.UUID { return c.courierID }

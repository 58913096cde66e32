package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/ports"
)

// RegisterCourierCommandHandler persists new couriers.
type RegisterCourierCommandHandler struct {
	uowFactory CourierUoWFactory
	clock      kernel.Clock
	logger     *slog.Logger
}

func NewRegisterCourierCommandHandler(
	uowFactory CourierUoWFactory,
	clock kernel.Clock,
	logger *slog.Logger,
) RegisterCourierCommandHandler {
	return RegisterCourierCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		logger:     logger.With("component", "register_courier"),
	}
}

// Handle creates the courier and records CourierRegistered. It returns the new id.
func (h RegisterCourierCommandHandler) Handle(ctx context.Context, command RegisterCourierCommand) (kernel.UUID, error) {
	if err := command.Validate(); err != nil {
		return kernel.UUID{}, err
	}

	c, err := courier.NewCourier(
		command.CourierID(),
		command.Name(),
		command.Contact(),
		command.Transport(),
		command.MaxDistanceKm(),
		command.WorkZone(),
		command.WorkHours(),
		h.clock.Now(),
	)
	if err != nil {
		return kernel.UUID{}, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return kernel.UUID{}, err
	}
	defer rollback(ctx, uow)

	if err = uow.CourierRepository().Add(ctx, c); err != nil {
		return kernel.UUID{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return kernel.UUID{}, err
	}

	h.logger.InfoContext(ctx, "courier registered",
		"courier_id", c.ID().String(), "transport", c.Transport().String(), "work_zone", c.WorkZone())
	return c.ID(), nil
}

// ChangeCourierStatusCommandHandler applies activation, deactivation and archival.
type ChangeCourierStatusCommandHandler struct {
	uowFactory CourierUoWFactory
	clock      kernel.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewChangeCourierStatusCommandHandler(
	uowFactory CourierUoWFactory,
	clock kernel.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) ChangeCourierStatusCommandHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return ChangeCourierStatusCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "courier_status"),
	}
}

func (h ChangeCourierStatusCommandHandler) Handle(ctx context.Context, command ChangeCourierStatusCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	operation := string(command.Action()) + "_courier"
	err := retryOnConflict(ctx, operation, h.metrics, h.logger, func() error {
		return mutateCourier(ctx, h.uowFactory, h.clock, command.CourierID(), func(c *courier.Courier, now time.Time) error {
			switch command.Action() {
			case StatusActionActivate:
				return c.Activate(now)
			case StatusActionDeactivate:
				return c.Deactivate(now, command.Reason())
			case StatusActionArchive:
				return c.Archive(now, command.Reason())
			default:
				return fmt.Errorf("unknown courier status action %q", command.Action())
			}
		})
	})
	if err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "courier status changed",
		"courier_id", command.CourierID().String(), "action", string(command.Action()))
	return nil
}

// UpdateCourierProfileCommandHandler applies contact, transport and schedule changes.
type UpdateCourierProfileCommandHandler struct {
	uowFactory CourierUoWFactory
	clock      kernel.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewUpdateCourierProfileCommandHandler(
	uowFactory CourierUoWFactory,
	clock kernel.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) UpdateCourierProfileCommandHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return UpdateCourierProfileCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "courier_profile"),
	}
}

func (h UpdateCourierProfileCommandHandler) Handle(ctx context.Context, command UpdateCourierProfileCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	return retryOnConflict(ctx, command.Operation(), h.metrics, h.logger, func() error {
		return mutateCourier(ctx, h.uowFactory, h.clock, command.CourierID(), command.apply)
	})
}

// mutateCourier loads one courier, applies change and stores it in its own transaction.
func mutateCourier(
	ctx context.Context,
	f CourierUoWFactory,
	clock kernel.Clock,
	courierID kernel.UUID,
	change func(c *courier.Courier, now time.Time) error,
) error {
	uow := f.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer rollback(ctx, uow)

	repo := uow.CourierRepository()
	c, err := repo.Get(ctx, courierID)
	if err != nil {
		return err
	}

	version := c.Version()
	if err = change(c, clock.Now()); err != nil {
		return err
	}
	if c.Version() == version {
		return nil
	}

	if err = repo.Update(ctx, c); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

package commands

import (
	"context"
	"log/slog"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/ports"
)

// PickUpOrderCommandHandler moves an assigned package into transit.
type PickUpOrderCommandHandler struct {
	uowFactory PackageUoWFactory
	clock      kernel.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewPickUpOrderCommandHandler(
	uowFactory PackageUoWFactory,
	clock kernel.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) PickUpOrderCommandHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return PickUpOrderCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "pick_up_order"),
	}
}

// Handle fails with parcel.ErrCourierMismatch when another courier holds the package.
func (h PickUpOrderCommandHandler) Handle(ctx context.Context, command PickUpOrderCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	return retryOnConflict(ctx, "pick_up_order", h.metrics, h.logger, func() error {
		location := command.Location()
		return transitionPackage(ctx, h.uowFactory, h.clock, command.PackageID(), parcel.StatusInTransit,
			parcel.TransitionContext{CourierID: command.CourierID(), PickupLocation: &location})
	})
}

// CancelOrderCommandHandler cancels a package that is still Accepted or InPool.
type CancelOrderCommandHandler struct {
	uowFactory PackageUoWFactory
	clock      kernel.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewCancelOrderCommandHandler(
	uowFactory PackageUoWFactory,
	clock kernel.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) CancelOrderCommandHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return CancelOrderCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "cancel_order"),
	}
}

func (h CancelOrderCommandHandler) Handle(ctx context.Context, command CancelOrderCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	return retryOnConflict(ctx, "cancel_order", h.metrics, h.logger, func() error {
		return transitionPackage(ctx, h.uowFactory, h.clock, command.PackageID(), parcel.StatusCancelled,
			parcel.TransitionContext{CancelReason: command.Reason()})
	})
}

// transitionPackage applies one edge that touches no courier.
func transitionPackage(
	ctx context.Context,
	f PackageUoWFactory,
	clock kernel.Clock,
	packageID kernel.UUID,
	to parcel.Status,
	tc parcel.TransitionContext,
) error {
	uow := f.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer rollback(ctx, uow)

	repo := uow.PackageRepository()
	p, err := repo.Get(ctx, packageID)
	if err != nil {
		return err
	}

	tc.Now = clock.Now()
	applied, err := p.Transition(to, tc)
	if err != nil || !applied {
		return err
	}

	if err = repo.Update(ctx, p); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

// DeliverOrderCommandHandler completes a package in transit and releases the courier.
type DeliverOrderCommandHandler struct {
	uowFactory UoWFactory
	clock      kernel.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewDeliverOrderCommandHandler(
	uowFactory UoWFactory,
	clock kernel.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) DeliverOrderCommandHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return DeliverOrderCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "deliver_order"),
	}
}

// Handle drives InTransit to Delivered or NotDelivered, decrements the courier load and
// records the outcome for the courier rating. Reporting a successful delivery for an
// already delivered package succeeds without changes.
func (h DeliverOrderCommandHandler) Handle(ctx context.Context, command DeliverOrderCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	return retryOnConflict(ctx, "deliver_order", h.metrics, h.logger, func() error {
		return h.complete(ctx, command)
	})
}

func (h DeliverOrderCommandHandler) complete(ctx context.Context, command DeliverOrderCommand) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer rollback(ctx, uow)

	packageRepo := uow.PackageRepository()
	courierRepo := uow.CourierRepository()

	p, err := packageRepo.Get(ctx, command.PackageID())
	if err != nil {
		return err
	}

	to := parcel.StatusNotDelivered
	if command.Delivered() {
		to = parcel.StatusDelivered
	}
	now := h.clock.Now()
	applied, err := p.Transition(to, parcel.TransitionContext{
		Now:           now,
		CourierID:     command.CourierID(),
		Recipient:     command.Recipient(),
		FailureReason: command.FailureReason(),
	})
	if err != nil {
		return err
	}
	if !applied {
		h.logger.InfoContext(ctx, "package already delivered", "package_id", p.ID().String())
		return nil
	}

	c, err := courierRepo.Get(ctx, command.CourierID())
	if err != nil {
		return err
	}
	if err = c.DecrementLoad(now); err != nil {
		logLoadInvariant(ctx, h.logger, err, p, c)
		return err
	}
	c.RecordDeliveryOutcome(now, command.Delivered())

	if err = packageRepo.Update(ctx, p); err != nil {
		return err
	}
	if err = courierRepo.Update(ctx, c); err != nil {
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "package completed",
		"package_id", p.ID().String(),
		"courier_id", c.ID().String(),
		"status", p.Status().String(),
	)
	return nil
}

// RevokeAssignmentCommandHandler returns an assigned package to the pool and releases
// the courier.
type RevokeAssignmentCommandHandler struct {
	uowFactory UoWFactory
	clock      kernel.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

func NewRevokeAssignmentCommandHandler(
	uowFactory UoWFactory,
	clock kernel.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) RevokeAssignmentCommandHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return RevokeAssignmentCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "revoke_assignment"),
	}
}

func (h RevokeAssignmentCommandHandler) Handle(ctx context.Context, command RevokeAssignmentCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	return retryOnConflict(ctx, "revoke_assignment", h.metrics, h.logger, func() error {
		return h.revoke(ctx, command)
	})
}

func (h RevokeAssignmentCommandHandler) revoke(ctx context.Context, command RevokeAssignmentCommand) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer rollback(ctx, uow)

	packageRepo := uow.PackageRepository()
	courierRepo := uow.CourierRepository()

	p, err := packageRepo.Get(ctx, command.PackageID())
	if err != nil {
		return err
	}
	holder := p.CourierID()
	if p.Status() != parcel.StatusAssigned || holder == nil {
		return &parcel.IllegalTransitionError{From: p.Status(), To: parcel.StatusInPool}
	}

	now := h.clock.Now()
	if _, err = p.Transition(parcel.StatusInPool, parcel.TransitionContext{
		Now:          now,
		RevokeReason: command.Reason(),
	}); err != nil {
		return err
	}

	c, err := courierRepo.Get(ctx, *holder)
	if err != nil {
		return err
	}
	if err = c.DecrementLoad(now); err != nil {
		logLoadInvariant(ctx, h.logger, err, p, c)
		return err
	}

	if err = packageRepo.Update(ctx, p); err != nil {
		return err
	}
	if err = courierRepo.Update(ctx, c); err != nil {
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "assignment revoked",
		"package_id", p.ID().String(), "courier_id", c.ID().String(), "reason", command.Reason())
	return nil
}

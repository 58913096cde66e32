package commands

import (
	"context"
	"errors"
	"log/slog"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/pkg/errs"
)

// AcceptOrderCommandHandler creates the package for an order and puts it into the pool.
// Accepting the same order twice returns the package created the first time.
type AcceptOrderCommandHandler struct {
	uowFactory PackageUoWFactory
	clock      kernel.Clock
	logger     *slog.Logger
}

// NewAcceptOrderCommandHandler creates a handler for order acceptance.
func NewAcceptOrderCommandHandler(
	uowFactory PackageUoWFactory,
	clock kernel.Clock,
	logger *slog.Logger,
) AcceptOrderCommandHandler {
	return AcceptOrderCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		logger:     logger.With("component", "accept_order"),
	}
}

// Handle persists the package in status InPool and records PackageAccepted.
// It returns the id of the package serving the order.
func (h AcceptOrderCommandHandler) Handle(ctx context.Context, command AcceptOrderCommand) (kernel.UUID, error) {
	if err := command.Validate(); err != nil {
		return kernel.UUID{}, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return kernel.UUID{}, err
	}
	defer rollback(ctx, uow)

	repo := uow.PackageRepository()

	existing, err := repo.FindByOrderID(ctx, command.Details().OrderID)
	if err == nil {
		h.logger.InfoContext(ctx, "order already accepted",
			"order_id", command.Details().OrderID.String(), "package_id", existing.ID().String())
		return existing.ID(), nil
	}
	if !errors.Is(err, errs.ErrObjectNotFound) {
		return kernel.UUID{}, err
	}

	now := h.clock.Now()
	p, err := parcel.NewPackage(command.PackageID(), command.Details(), now)
	if err != nil {
		return kernel.UUID{}, err
	}
	if _, err = p.Transition(parcel.StatusInPool, parcel.TransitionContext{Now: now}); err != nil {
		return kernel.UUID{}, err
	}

	if err = repo.Add(ctx, p); err != nil {
		return kernel.UUID{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return kernel.UUID{}, err
	}

	h.logger.InfoContext(ctx, "order accepted",
		"order_id", p.OrderID().String(), "package_id", p.ID().String(), "zone", p.Zone())
	return p.ID(), nil
}

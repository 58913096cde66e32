package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/domain/services"
	"courier-dispatch/internal/core/ports"
)

// AssignOrderCommandHandler runs dispatch and the reservation of the chosen pair.
//
// Every attempt reads the package, the candidate couriers and their locations afresh,
// re-checks eligibility and commits package and courier together under their version
// checks. A lost race restarts from filtering; auto assignment that keeps losing reports
// services.ErrNoCourierAvailable, manual assignment reports ErrConflict.
//
// Example:
//
//	handler := NewAssignOrderCommandHandler(uowFactory, dispatcher, geoStore, notifier, clock, metrics, logger)
//	courierID, err := handler.Handle(ctx, cmd)
//	var notEligible *services.NotEligibleError
//	switch {
//	case errors.As(err, &notEligible):
//	    log.Printf("courier rejected: %s", notEligible.Reason)
//	case errors.Is(err, services.ErrNoCourierAvailable):
//	    log.Println("package stays in the pool")
//	}
type AssignOrderCommandHandler struct {
	uowFactory UoWFactory
	dispatcher services.Dispatcher
	locations  ports.LocationReader
	notifier   ports.CourierNotifier
	clock      kernel.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

// NewAssignOrderCommandHandler creates a handler for package assignment.
func NewAssignOrderCommandHandler(
	uowFactory UoWFactory,
	dispatcher services.Dispatcher,
	locations ports.LocationReader,
	notifier ports.CourierNotifier,
	clock kernel.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
) AssignOrderCommandHandler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return AssignOrderCommandHandler{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		locations:  locations,
		notifier:   notifier,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "assign_order"),
	}
}

type reservation struct {
	pkg     *parcel.Package
	courier *courier.Courier
	at      time.Time
}

// Handle assigns the package and returns the id of the reserved courier.
func (h AssignOrderCommandHandler) Handle(ctx context.Context, command AssignOrderCommand) (kernel.UUID, error) {
	if err := command.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	mode := string(command.Mode())

	var res reservation
	err := retryOnConflict(ctx, "assign_order", h.metrics, h.logger, func() error {
		var err error
		res, err = h.reserve(ctx, command)
		return err
	})

	var notEligible *services.NotEligibleError
	switch {
	case err == nil:
		h.metrics.DispatchOutcome(mode, "assigned")
	case errors.Is(err, ErrConflict):
		h.metrics.DispatchOutcome(mode, "conflict")
		h.logger.WarnContext(ctx, "assignment lost every reservation race",
			"package_id", command.PackageID().String(), "mode", mode)
		if command.Mode() == AssignModeAuto {
			return kernel.UUID{}, fmt.Errorf("%w: reservation kept conflicting", services.ErrNoCourierAvailable)
		}
		return kernel.UUID{}, err
	case errors.Is(err, services.ErrNoCourierAvailable):
		h.metrics.DispatchOutcome(mode, "no_courier")
		return kernel.UUID{}, err
	case errors.As(err, &notEligible):
		h.metrics.DispatchOutcome(mode, "not_eligible")
		return kernel.UUID{}, err
	default:
		h.metrics.DispatchOutcome(mode, "error")
		return kernel.UUID{}, err
	}

	h.logger.InfoContext(ctx, "package assigned",
		"package_id", res.pkg.ID().String(),
		"courier_id", res.courier.ID().String(),
		"mode", mode,
		"courier_load", res.courier.CurrentLoad(),
	)
	h.notify(ctx, res)
	return res.courier.ID(), nil
}

func (h AssignOrderCommandHandler) reserve(ctx context.Context, command AssignOrderCommand) (reservation, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return reservation{}, err
	}
	defer rollback(ctx, uow)

	packageRepo := uow.PackageRepository()
	courierRepo := uow.CourierRepository()

	p, err := packageRepo.Get(ctx, command.PackageID())
	if err != nil {
		return reservation{}, err
	}
	if !p.Status().CanTransitionTo(parcel.StatusAssigned) {
		return reservation{}, &parcel.IllegalTransitionError{From: p.Status(), To: parcel.StatusAssigned}
	}

	now := h.clock.Now()
	var c *courier.Courier
	if command.Mode() == AssignModeManual {
		c, err = h.checkRequested(ctx, courierRepo, p, command.CourierID(), now)
	} else {
		c, err = h.selectBest(ctx, courierRepo, p, now)
	}
	if err != nil {
		return reservation{}, err
	}

	if _, err = p.Transition(parcel.StatusAssigned, parcel.TransitionContext{Now: now, CourierID: c.ID()}); err != nil {
		return reservation{}, err
	}
	if err = c.IncrementLoad(now); err != nil {
		logLoadInvariant(ctx, h.logger, err, p, c)
		return reservation{}, err
	}

	if err = packageRepo.Update(ctx, p); err != nil {
		return reservation{}, err
	}
	if err = courierRepo.Update(ctx, c); err != nil {
		return reservation{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return reservation{}, err
	}

	return reservation{pkg: p, courier: c, at: now}, nil
}

func (h AssignOrderCommandHandler) selectBest(
	ctx context.Context,
	repo ports.CourierRepository,
	p *parcel.Package,
	now time.Time,
) (*courier.Courier, error) {
	pool, err := repo.FindDispatchable(ctx, p.Zone())
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, services.ErrNoCourierAvailable
	}

	ids := make([]kernel.UUID, 0, len(pool))
	for _, c := range pool {
		ids = append(ids, c.ID())
	}
	locations, err := h.locations.CurrentMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read courier locations: %w", err)
	}

	ranked, rejected := h.dispatcher.Rank(p, pool, locations, now)
	for _, r := range rejected {
		h.metrics.CandidateRejected(string(r.Reason))
	}
	if len(ranked) == 0 {
		h.logger.DebugContext(ctx, "no eligible courier",
			"package_id", p.ID().String(), "zone", p.Zone(), "rejected", len(rejected))
		return nil, services.ErrNoCourierAvailable
	}

	best := ranked[0]
	h.logger.DebugContext(ctx, "courier selected",
		"package_id", p.ID().String(),
		"courier_id", best.Courier.ID().String(),
		"score", best.Score,
		"eta_minutes", best.EtaMinutes,
		"candidates", len(ranked),
	)
	return best.Courier, nil
}

func (h AssignOrderCommandHandler) checkRequested(
	ctx context.Context,
	repo ports.CourierRepository,
	p *parcel.Package,
	courierID kernel.UUID,
	now time.Time,
) (*courier.Courier, error) {
	c, err := repo.Get(ctx, courierID)
	if err != nil {
		return nil, err
	}

	var loc *geolocation.Snapshot
	snapshot, ok, err := h.locations.Current(ctx, courierID)
	if err != nil {
		return nil, fmt.Errorf("read courier location: %w", err)
	}
	if ok {
		loc = &snapshot
	}

	if err = h.dispatcher.CheckManual(p, c, loc, now); err != nil {
		return nil, err
	}
	return c, nil
}

// notify runs after commit; the assignment stands whatever happens here.
func (h AssignOrderCommandHandler) notify(ctx context.Context, res reservation) {
	if h.notifier == nil {
		return
	}
	err := h.notifier.NotifyAssignment(ctx, ports.Assignment{
		CourierID:    res.courier.ID(),
		PushToken:    res.courier.Contact().PushToken(),
		PackageID:    res.pkg.ID(),
		Pickup:       res.pkg.Pickup(),
		Delivery:     res.pkg.Delivery(),
		Priority:     res.pkg.Priority(),
		Instructions: res.pkg.Instructions(),
		AssignedAt:   res.at,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "courier notification failed",
			"package_id", res.pkg.ID().String(), "courier_id", res.courier.ID().String(), "error", err)
	}
}

// logLoadInvariant reports a broken load invariant with everything needed to repair it.
func logLoadInvariant(ctx context.Context, logger *slog.Logger, err error, p *parcel.Package, c *courier.Courier) {
	if !errors.Is(err, courier.ErrLoadInvariantViolated) {
		return
	}
	logger.ErrorContext(ctx, "courier load invariant violated",
		"error", err,
		"package_id", p.ID().String(),
		"package_status", p.Status().String(),
		"package_version", p.Version(),
		"courier_id", c.ID().String(),
		"courier_status", c.Status().String(),
		"courier_load", c.CurrentLoad(),
		"courier_max_load", c.MaxLoad(),
		"courier_version", c.Version(),
	)
}

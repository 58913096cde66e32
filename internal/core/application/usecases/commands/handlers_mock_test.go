package commands_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/domain/services"
	"courier-dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pooled(t *testing.T, id kernel.UUID) func() *parcel.Package {
	t.Helper()
	pickup, err := kernel.NewLocationFromLatLon(52.52, 13.405, "")
	require.NoError(t, err)
	details := parcel.Details{
		OrderID:    kernel.NewUUID(),
		CustomerID: kernel.NewUUID(),
		Pickup:     pickup,
		Delivery:   pickup,
		Zone:       "berlin",
		WeightKg:   1,
		Priority:   3,
	}
	return func() *parcel.Package {
		p, err := parcel.NewPackage(id, details, now)
		require.NoError(t, err)
		_, err = p.Transition(parcel.StatusInPool, parcel.TransitionContext{Now: now})
		require.NoError(t, err)
		return p
	}
}

func freeCourier(t *testing.T, id kernel.UUID) func() *courier.Courier {
	t.Helper()
	contact, err := courier.NewContact("+4915112345678", "c@example.com", "")
	require.NoError(t, err)
	return func() *courier.Courier {
		c, err := courier.NewCourier(id, "C", contact, courier.TransportCar, 20, "berlin", courier.AlwaysOn(), now)
		require.NoError(t, err)
		require.NoError(t, c.Activate(now))
		return c
	}
}

func TestDeliverOrderCommandHandler_WritesPackageBeforeCourier(t *testing.T) {
	ctx := t.Context()
	packageID, courierID := kernel.NewUUID(), kernel.NewUUID()

	p := pooled(t, packageID)()
	_, err := p.Transition(parcel.StatusAssigned, parcel.TransitionContext{Now: now, CourierID: courierID})
	require.NoError(t, err)
	_, err = p.Transition(parcel.StatusInTransit, parcel.TransitionContext{Now: now, CourierID: courierID})
	require.NoError(t, err)
	c := freeCourier(t, courierID)()
	require.NoError(t, c.IncrementLoad(now))

	packageRepo := new(MockPackageRepository)
	courierRepo := new(MockCourierRepository)
	uow := new(MockUoW)
	factory := new(MockUoWFactory)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("PackageRepository").Return(packageRepo).Once(),
		uow.On("CourierRepository").Return(courierRepo).Once(),
		packageRepo.On("Get", ctx, packageID).Return(p, nil).Once(),
		courierRepo.On("Get", ctx, courierID).Return(c, nil).Once(),
		packageRepo.On("Update", ctx, p).Return(nil).Once(),
		courierRepo.On("Update", ctx, c).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	handler := commands.NewDeliverOrderCommandHandler(
		factory, kernelClock(), nil, slog.New(slog.DiscardHandler))
	cmd, err := commands.NewDeliverOrderCommand(packageID, courierID, parcel.Recipient{})
	require.NoError(t, err)

	require.NoError(t, handler.Handle(ctx, cmd))
	assert.Equal(t, uint16(0), c.CurrentLoad())
	factory.AssertExpectations(t)
	uow.AssertExpectations(t)
	packageRepo.AssertExpectations(t)
	courierRepo.AssertExpectations(t)
}

func TestDeliverOrderCommandHandler_LoadInvariantIsFatal(t *testing.T) {
	ctx := t.Context()
	packageID, courierID := kernel.NewUUID(), kernel.NewUUID()

	p := pooled(t, packageID)()
	_, err := p.Transition(parcel.StatusAssigned, parcel.TransitionContext{Now: now, CourierID: courierID})
	require.NoError(t, err)
	_, err = p.Transition(parcel.StatusInTransit, parcel.TransitionContext{Now: now, CourierID: courierID})
	require.NoError(t, err)

	packageRepo := new(MockPackageRepository)
	courierRepo := new(MockCourierRepository)
	uow := new(MockUoW)
	factory := new(MockUoWFactory)

	factory.On("Create").Return(uow).Once()
	uow.On("Begin", ctx).Return(nil).Once()
	uow.On("PackageRepository").Return(packageRepo).Once()
	uow.On("CourierRepository").Return(courierRepo).Once()
	packageRepo.On("Get", ctx, packageID).Return(p, nil).Once()
	courierRepo.On("Get", ctx, courierID).Return(freeCourier(t, courierID)(), nil).Once()
	uow.On("Rollback", ctx).Return(nil).Once()

	handler := commands.NewDeliverOrderCommandHandler(
		factory, kernelClock(), nil, slog.New(slog.DiscardHandler))
	cmd, err := commands.NewDeliverOrderCommand(packageID, courierID, parcel.Recipient{})
	require.NoError(t, err)

	err = handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, courier.ErrLoadInvariantViolated)
	factory.AssertNumberOfCalls(t, "Create", 1)
	uow.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestAssignOrderCommandHandler_ConflictExhaustion(t *testing.T) {
	versionErr := errs.NewVersionIsInvalidError("package", errors.New("stored 3, loaded 2"))

	setup := func(t *testing.T, ctx context.Context) (*MockUoWFactory, *MockLocationReader, kernel.UUID, kernel.UUID) {
		packageID, courierID := kernel.NewUUID(), kernel.NewUUID()
		packageRepo := new(MockPackageRepository)
		courierRepo := new(MockCourierRepository)
		uow := new(MockUoW)
		factory := new(MockUoWFactory)
		locations := new(MockLocationReader)

		snapshot, err := geolocation.NewSnapshot(courierID, kernel.MustNewCoordinates(52.521, 13.405), now, 5, nil, nil)
		require.NoError(t, err)

		factory.On("Create").Return(uow)
		uow.On("Begin", ctx).Return(nil)
		uow.On("Rollback", ctx).Return(nil)
		uow.On("PackageRepository").Return(packageRepo)
		uow.On("CourierRepository").Return(courierRepo)
		packageRepo.On("Get", ctx, packageID).Return(pooled(t, packageID), nil)
		packageRepo.On("Update", ctx, mock.AnythingOfType("*parcel.Package")).Return(versionErr)
		courierRepo.On("Get", ctx, courierID).Return(freeCourier(t, courierID), nil)
		courierRepo.On("FindDispatchable", ctx, "berlin").Return(func() []*courier.Courier {
			return []*courier.Courier{freeCourier(t, courierID)()}
		}, nil)
		locations.On("CurrentMany", ctx, []kernel.UUID{courierID}).
			Return(map[kernel.UUID]geolocation.Snapshot{courierID: snapshot}, nil)
		locations.On("Current", ctx, courierID).Return(snapshot, true, nil)
		return factory, locations, packageID, courierID
	}

	t.Run("should report no courier for auto mode", func(t *testing.T) {
		ctx := t.Context()
		factory, locations, packageID, _ := setup(t, ctx)
		metrics := &recordingMetrics{}
		handler := commands.NewAssignOrderCommandHandler(factory, services.NewDispatcher(0),
			locations, nil, kernelClock(), metrics, slog.New(slog.DiscardHandler))
		cmd, err := commands.NewAssignOrderCommand(packageID, commands.AssignModeAuto, nil)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, services.ErrNoCourierAvailable)
		factory.AssertNumberOfCalls(t, "Create", 4)
		assert.Equal(t, 3, metrics.retries)
		assert.Equal(t, []string{"auto:conflict"}, metrics.outcomes)
	})

	t.Run("should report conflict for manual mode", func(t *testing.T) {
		ctx := t.Context()
		factory, locations, packageID, courierID := setup(t, ctx)
		handler := commands.NewAssignOrderCommandHandler(factory, services.NewDispatcher(0),
			locations, nil, kernelClock(), nil, slog.New(slog.DiscardHandler))
		cmd, err := commands.NewAssignOrderCommand(packageID, commands.AssignModeManual, &courierID)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, commands.ErrConflict)
		require.ErrorIs(t, err, errs.ErrVersionIsInvalid)
		factory.AssertNumberOfCalls(t, "Create", 4)
	})

	t.Run("should stop when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		factory := new(MockUoWFactory)
		handler := commands.NewAssignOrderCommandHandler(factory, services.NewDispatcher(0),
			new(MockLocationReader), nil, kernelClock(), nil, slog.New(slog.DiscardHandler))
		cmd, err := commands.NewAssignOrderCommand(kernel.NewUUID(), commands.AssignModeAuto, nil)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, context.Canceled)
		factory.AssertNotCalled(t, "Create")
	})
}

func TestAssignOrderCommandHandler_BeginError(t *testing.T) {
	ctx := t.Context()
	uow := new(MockUoW)
	factory := new(MockUoWFactory)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(errors.New("begin error")).Once(),
	)

	handler := commands.NewAssignOrderCommandHandler(factory, services.NewDispatcher(0),
		new(MockLocationReader), nil, kernelClock(), nil, slog.New(slog.DiscardHandler))
	cmd, err := commands.NewAssignOrderCommand(kernel.NewUUID(), commands.AssignModeAuto, nil)
	require.NoError(t, err)

	_, err = handler.Handle(ctx, cmd)

	require.EqualError(t, err, "begin error")
}

func TestAssignOrderCommandHandler_ValidationError(t *testing.T) {
	factory := new(MockUoWFactory)
	handler := commands.NewAssignOrderCommandHandler(factory, services.NewDispatcher(0),
		new(MockLocationReader), nil, kernelClock(), nil, slog.New(slog.DiscardHandler))

	_, err := handler.Handle(t.Context(), commands.AssignOrderCommand{})

	require.ErrorIs(t, err, commands.ErrAssignOrderCommandIsNotConstructed)
	factory.AssertNotCalled(t, "Create")
}

func kernelClock() kernel.FixedClock { return kernel.FixedClock(now) }

package commands_test

import (
	"log/slog"
	"testing"
	"time"

	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/domain/services"
	"courier-dispatch/internal/testutil/inmem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-14 is a Wednesday.
var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

type env struct {
	clock    *inmem.Clock
	outbox   *inmem.Outbox
	store    *inmem.Store
	cache    *inmem.LocationCache
	notifier *inmem.Notifier
	geo      *geostore.Store

	accept   commands.AcceptOrderCommandHandler
	assign   commands.AssignOrderCommandHandler
	pickUp   commands.PickUpOrderCommandHandler
	deliver  commands.DeliverOrderCommandHandler
	cancel   commands.CancelOrderCommandHandler
	revoke   commands.RevokeAssignmentCommandHandler
	register commands.RegisterCourierCommandHandler
	status   commands.ChangeCourierStatusCommandHandler
	profile  commands.UpdateCourierProfileCommandHandler
	location commands.UpdateLocationCommandHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	clock := inmem.NewClock(now)
	outbox := inmem.NewOutbox()
	store := inmem.NewStore(outbox)
	cache := inmem.NewLocationCache(clock)
	geo := geostore.New(cache, inmem.NewLocationHistory(outbox), clock, geostore.Config{}, nil, logger)
	notifier := &inmem.Notifier{}

	factory := store.Factory()
	both := commands.NewUoWFactory(factory)
	packages := commands.NewPackageUoWFactory(factory)
	couriers := commands.NewCourierUoWFactory(factory)

	return &env{
		clock:    clock,
		outbox:   outbox,
		store:    store,
		cache:    cache,
		notifier: notifier,
		geo:      geo,
		accept:   commands.NewAcceptOrderCommandHandler(packages, clock, logger),
		assign: commands.NewAssignOrderCommandHandler(
			both, services.NewDispatcher(0), geo, notifier, clock, nil, logger),
		pickUp:   commands.NewPickUpOrderCommandHandler(packages, clock, nil, logger),
		deliver:  commands.NewDeliverOrderCommandHandler(both, clock, nil, logger),
		cancel:   commands.NewCancelOrderCommandHandler(packages, clock, nil, logger),
		revoke:   commands.NewRevokeAssignmentCommandHandler(both, clock, nil, logger),
		register: commands.NewRegisterCourierCommandHandler(couriers, clock, logger),
		status:   commands.NewChangeCourierStatusCommandHandler(couriers, clock, nil, logger),
		profile:  commands.NewUpdateCourierProfileCommandHandler(couriers, clock, nil, logger),
		location: commands.NewUpdateLocationCommandHandler(couriers, geo, logger),
	}
}

func (e *env) acceptOrder(t *testing.T, priority int) kernel.UUID {
	t.Helper()
	pickup, err := kernel.NewLocationFromLatLon(52.5200, 13.4050, "Alexanderplatz 1")
	require.NoError(t, err)
	delivery, err := kernel.NewLocationFromLatLon(52.5300, 13.4150, "")
	require.NoError(t, err)

	cmd, err := commands.NewAcceptOrderCommand(parcel.Details{
		OrderID:    kernel.NewUUID(),
		CustomerID: kernel.NewUUID(),
		Pickup:     pickup,
		Delivery:   delivery,
		Zone:       "berlin",
		WeightKg:   2,
		Priority:   priority,
	})
	require.NoError(t, err)

	id, err := e.accept.Handle(t.Context(), cmd)
	require.NoError(t, err)
	return id
}

// activeCourier registers and activates a courier in zone berlin that is always on shift.
func (e *env) activeCourier(t *testing.T, transport courier.TransportType, maxDistanceKm float64) kernel.UUID {
	t.Helper()
	contact, err := courier.NewContact("+4915112345678", "courier@example.com", "push-token")
	require.NoError(t, err)

	cmd, err := commands.NewRegisterCourierCommand("Courier", contact, transport, maxDistanceKm, "berlin", courier.AlwaysOn())
	require.NoError(t, err)
	id, err := e.register.Handle(t.Context(), cmd)
	require.NoError(t, err)

	activate, err := commands.NewActivateCourierCommand(id)
	require.NoError(t, err)
	require.NoError(t, e.status.Handle(t.Context(), activate))
	return id
}

func (e *env) report(t *testing.T, courierID kernel.UUID, lat, lon float64, age time.Duration) {
	t.Helper()
	cmd, err := commands.NewUpdateLocationCommand(courierID, lat, lon, 5, e.clock.Now().Add(-age), nil, nil)
	require.NoError(t, err)
	_, err = e.location.Handle(t.Context(), cmd)
	require.NoError(t, err)
}

func (e *env) autoAssign(t *testing.T, packageID kernel.UUID) (kernel.UUID, error) {
	t.Helper()
	cmd, err := commands.NewAssignOrderCommand(packageID, commands.AssignModeAuto, nil)
	require.NoError(t, err)
	return e.assign.Handle(t.Context(), cmd)
}

func (e *env) pkg(t *testing.T, id kernel.UUID) *parcel.Package {
	t.Helper()
	p, err := e.store.Package(id)
	require.NoError(t, err)
	return p
}

func (e *env) courier(t *testing.T, id kernel.UUID) *courier.Courier {
	t.Helper()
	c, err := e.store.Courier(id)
	require.NoError(t, err)
	return c
}

// assertLoadInvariant checks that every listed courier carries exactly the packages that
// are assigned to it or in transit with it.
func (e *env) assertLoadInvariant(t *testing.T, courierIDs ...kernel.UUID) {
	t.Helper()
	held := map[kernel.UUID]int{}
	for _, p := range e.store.Packages() {
		holder := p.CourierID()
		assert.Equal(t, holder != nil, p.Status().HasCourier(), "package %s in %s", p.ID(), p.Status())
		if holder != nil {
			held[*holder]++
		}
	}
	for _, id := range courierIDs {
		assert.Equal(t, held[id], int(e.courier(t, id).CurrentLoad()), "courier %s", id)
	}
}

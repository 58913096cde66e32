package parcel_test

import (
	"testing"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func validDetails(t *testing.T) parcel.Details {
	t.Helper()
	pickup, err := kernel.NewLocationFromLatLon(52.5200, 13.4050, "Alexanderplatz 1")
	require.NoError(t, err)
	delivery, err := kernel.NewLocationFromLatLon(52.5300, 13.4150, "")
	require.NoError(t, err)

	return parcel.Details{
		OrderID:    kernel.NewUUID(),
		CustomerID: kernel.NewUUID(),
		Pickup:     pickup,
		Delivery:   delivery,
		Zone:       "berlin",
		WeightKg:   2,
		Priority:   3,
	}
}

func newPackage(t *testing.T) *parcel.Package {
	t.Helper()
	p, err := parcel.NewPackage(kernel.NewUUID(), validDetails(t), now)
	require.NoError(t, err)
	return p
}

// packageIn drives a fresh package to the wanted status through legal edges.
func packageIn(t *testing.T, status parcel.Status, courierID kernel.UUID) *parcel.Package {
	t.Helper()
	p := newPackage(t)
	path := map[parcel.Status][]parcel.Status{
		parcel.StatusAccepted:     {},
		parcel.StatusInPool:       {parcel.StatusInPool},
		parcel.StatusAssigned:     {parcel.StatusInPool, parcel.StatusAssigned},
		parcel.StatusInTransit:    {parcel.StatusInPool, parcel.StatusAssigned, parcel.StatusInTransit},
		parcel.StatusDelivered:    {parcel.StatusInPool, parcel.StatusAssigned, parcel.StatusInTransit, parcel.StatusDelivered},
		parcel.StatusNotDelivered: {parcel.StatusInPool, parcel.StatusAssigned, parcel.StatusInTransit, parcel.StatusNotDelivered},
		parcel.StatusCancelled:    {parcel.StatusInPool, parcel.StatusCancelled},
	}[status]
	for _, to := range path {
		applied, err := p.Transition(to, parcel.TransitionContext{
			Now:           now,
			CourierID:     courierID,
			FailureReason: "nobody home",
		})
		require.NoError(t, err)
		require.True(t, applied)
	}
	p.ClearDomainEvents()
	return p
}

func TestNewPackage(t *testing.T) {
	t.Run("should create accepted package", func(t *testing.T) {
		id := kernel.NewUUID()
		p, err := parcel.NewPackage(id, validDetails(t), now)

		require.NoError(t, err)
		require.NoError(t, p.Validate())
		assert.True(t, p.ID().IsEqual(id))
		assert.Equal(t, parcel.StatusAccepted, p.Status())
		assert.Nil(t, p.CourierID())
		assert.Equal(t, uint64(1), p.Version())
		assert.Equal(t, now, p.AcceptedAt())
		assert.Empty(t, p.DomainEvents())
	})

	t.Run("should accept priority bounds", func(t *testing.T) {
		for _, priority := range []int{parcel.MinPriority, parcel.MaxPriority} {
			d := validDetails(t)
			d.Priority = priority
			_, err := parcel.NewPackage(kernel.NewUUID(), d, now)
			require.NoError(t, err)
		}
	})

	tests := []struct {
		name   string
		mutate func(d *parcel.Details)
		target error
	}{
		{"priority zero", func(d *parcel.Details) { d.Priority = 0 }, errs.ErrValueIsOutOfRange},
		{"priority six", func(d *parcel.Details) { d.Priority = 6 }, errs.ErrValueIsOutOfRange},
		{"zero weight", func(d *parcel.Details) { d.WeightKg = 0 }, errs.ErrValueIsInvalid},
		{"negative weight", func(d *parcel.Details) { d.WeightKg = -1 }, errs.ErrValueIsInvalid},
		{"blank zone", func(d *parcel.Details) { d.Zone = " " }, parcel.ErrZoneIsRequired},
		{"missing order", func(d *parcel.Details) { d.OrderID = kernel.UUID{} }, errs.ErrValueIsRequired},
		{"missing pickup", func(d *parcel.Details) { d.Pickup = kernel.Location{} }, errs.ErrValueIsRequired},
	}
	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			d := validDetails(t)
			tt.mutate(&d)

			p, err := parcel.NewPackage(kernel.NewUUID(), d, now)

			require.ErrorIs(t, err, tt.target)
			assert.Nil(t, p)
		})
	}
}

func TestPackageTransitionEdges(t *testing.T) {
	courierID := kernel.NewUUID()
	all := []parcel.Status{
		parcel.StatusAccepted, parcel.StatusInPool, parcel.StatusAssigned, parcel.StatusInTransit,
		parcel.StatusDelivered, parcel.StatusNotDelivered, parcel.StatusCancelled,
	}
	legal := map[[2]parcel.Status]bool{
		{parcel.StatusAccepted, parcel.StatusInPool}:        true,
		{parcel.StatusAccepted, parcel.StatusCancelled}:     true,
		{parcel.StatusInPool, parcel.StatusAssigned}:        true,
		{parcel.StatusInPool, parcel.StatusCancelled}:       true,
		{parcel.StatusAssigned, parcel.StatusInTransit}:     true,
		{parcel.StatusAssigned, parcel.StatusInPool}:        true,
		{parcel.StatusInTransit, parcel.StatusDelivered}:    true,
		{parcel.StatusInTransit, parcel.StatusNotDelivered}: true,
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				p := packageIn(t, from, courierID)
				version := p.Version()

				applied, err := p.Transition(to, parcel.TransitionContext{
					Now:           now.Add(time.Minute),
					CourierID:     courierID,
					FailureReason: "damaged",
				})

				switch {
				case legal[[2]parcel.Status{from, to}]:
					require.NoError(t, err)
					assert.True(t, applied)
					assert.Equal(t, to, p.Status())
					assert.Equal(t, version+1, p.Version())
					assert.Len(t, p.DomainEvents(), 1)
					assert.Equal(t, to.HasCourier(), p.CourierID() != nil)
				case from == parcel.StatusDelivered && to == parcel.StatusDelivered:
					require.NoError(t, err)
					assert.False(t, applied)
					assert.Equal(t, version, p.Version())
					assert.Empty(t, p.DomainEvents())
				default:
					var illegal *parcel.IllegalTransitionError
					require.ErrorAs(t, err, &illegal)
					assert.ErrorIs(t, err, parcel.ErrIllegalTransition)
					assert.Equal(t, from, illegal.From)
					assert.Equal(t, to, illegal.To)
					assert.False(t, applied)
					assert.Equal(t, from, p.Status())
					assert.Equal(t, version, p.Version())
				}
			})
		}
	}
}

func TestPackageLifecycle(t *testing.T) {
	courierID := kernel.NewUUID()
	p := newPackage(t)

	_, err := p.Transition(parcel.StatusInPool, parcel.TransitionContext{Now: now})
	require.NoError(t, err)

	assignAt := now.Add(time.Minute)
	_, err = p.Transition(parcel.StatusAssigned, parcel.TransitionContext{Now: assignAt, CourierID: courierID})
	require.NoError(t, err)
	require.NotNil(t, p.CourierID())
	assert.True(t, p.IsAssignedTo(courierID))
	assert.Equal(t, assignAt, *p.AssignedAt())

	where, err := kernel.NewLocationFromLatLon(52.5201, 13.4051, "")
	require.NoError(t, err)
	_, err = p.Transition(parcel.StatusInTransit, parcel.TransitionContext{
		Now: now.Add(2 * time.Minute), CourierID: courierID, PickupLocation: &where,
	})
	require.NoError(t, err)
	require.NotNil(t, p.PickupLocation())
	assert.True(t, where.IsEqual(*p.PickupLocation()))
	require.NotNil(t, p.PickedUpAt())

	recipient, err := parcel.NewRecipient("Max", "", "max@example.com")
	require.NoError(t, err)
	_, err = p.Transition(parcel.StatusDelivered, parcel.TransitionContext{
		Now: now.Add(10 * time.Minute), CourierID: courierID, Recipient: recipient,
	})
	require.NoError(t, err)

	assert.Equal(t, parcel.StatusDelivered, p.Status())
	assert.Nil(t, p.CourierID())
	require.NotNil(t, p.CompletedBy())
	assert.True(t, p.CompletedBy().IsEqual(courierID))
	assert.Equal(t, "Max", p.Recipient().Name())
	require.NotNil(t, p.CompletedAt())
	assert.Equal(t, uint64(5), p.Version())

	var names []string
	for _, e := range p.DomainEvents() {
		names = append(names, e.EventName())
		assert.Equal(t, parcel.AggregateType, e.AggregateType())
		assert.True(t, e.AggregateID().IsEqual(p.ID()))
	}
	assert.Equal(t, []string{
		parcel.EventAccepted, parcel.EventAssigned, parcel.EventPickedUp, parcel.EventDelivered,
	}, names)

	accepted := p.DomainEvents()[0].(parcel.StatusChangedEvent)
	require.NotNil(t, accepted.Details)
	assert.Equal(t, "berlin", accepted.Details.Zone)
}

func TestPackageTransitionInputs(t *testing.T) {
	courierID := kernel.NewUUID()

	t.Run("should require courier for assignment", func(t *testing.T) {
		p := packageIn(t, parcel.StatusInPool, courierID)

		applied, err := p.Transition(parcel.StatusAssigned, parcel.TransitionContext{Now: now})

		require.ErrorIs(t, err, parcel.ErrCourierIsRequired)
		assert.False(t, applied)
		assert.Equal(t, parcel.StatusInPool, p.Status())
	})

	t.Run("should reject pickup by another courier", func(t *testing.T) {
		p := packageIn(t, parcel.StatusAssigned, courierID)

		_, err := p.Transition(parcel.StatusInTransit, parcel.TransitionContext{Now: now, CourierID: kernel.NewUUID()})

		require.ErrorIs(t, err, parcel.ErrCourierMismatch)
		assert.Equal(t, parcel.StatusAssigned, p.Status())
	})

	t.Run("should require failure reason", func(t *testing.T) {
		p := packageIn(t, parcel.StatusInTransit, courierID)

		_, err := p.Transition(parcel.StatusNotDelivered, parcel.TransitionContext{Now: now, CourierID: courierID})

		require.ErrorIs(t, err, parcel.ErrFailureReasonIsRequired)
		assert.Equal(t, parcel.StatusInTransit, p.Status())
	})

	t.Run("should require now", func(t *testing.T) {
		p := packageIn(t, parcel.StatusAccepted, courierID)

		_, err := p.Transition(parcel.StatusInPool, parcel.TransitionContext{})

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("should clear courier on revocation", func(t *testing.T) {
		p := packageIn(t, parcel.StatusAssigned, courierID)

		_, err := p.Transition(parcel.StatusInPool, parcel.TransitionContext{Now: now, RevokeReason: "courier rejected"})

		require.NoError(t, err)
		assert.Nil(t, p.CourierID())
		assert.Nil(t, p.AssignedAt())
		revoked := p.DomainEvents()[0].(parcel.StatusChangedEvent)
		assert.Equal(t, parcel.EventRevoked, revoked.EventName())
		require.NotNil(t, revoked.CourierID)
		assert.True(t, revoked.CourierID.IsEqual(courierID))
		assert.Equal(t, "courier rejected", revoked.Reason)
	})

	t.Run("should keep cancel reason", func(t *testing.T) {
		p := packageIn(t, parcel.StatusInPool, courierID)

		_, err := p.Transition(parcel.StatusCancelled, parcel.TransitionContext{Now: now, CancelReason: " customer request "})

		require.NoError(t, err)
		assert.Equal(t, "customer request", p.CancelReason())
		assert.NotNil(t, p.CompletedAt())
	})
}

func TestRestorePackage(t *testing.T) {
	courierID := kernel.NewUUID()
	state := parcel.State{
		ID:         kernel.NewUUID(),
		Details:    validDetails(t),
		Status:     parcel.StatusAssigned,
		CourierID:  &courierID,
		AcceptedAt: now,
		UpdatedAt:  now,
		Version:    3,
	}

	t.Run("should restore assigned package", func(t *testing.T) {
		p, err := parcel.RestorePackage(state)

		require.NoError(t, err)
		assert.Equal(t, uint64(3), p.PersistedVersion())
		assert.True(t, p.IsAssignedTo(courierID))
	})

	t.Run("should reject courier on pooled package", func(t *testing.T) {
		broken := state
		broken.Status = parcel.StatusInPool

		_, err := parcel.RestorePackage(broken)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject assigned package without courier", func(t *testing.T) {
		broken := state
		broken.CourierID = nil

		_, err := parcel.RestorePackage(broken)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestStatus(t *testing.T) {
	s, err := parcel.ParseStatus("intransit")
	require.NoError(t, err)
	assert.Equal(t, parcel.StatusInTransit, s)

	_, err = parcel.ParseStatus("lost")
	require.Error(t, err)
	require.Error(t, parcel.StatusUnknown.Validate())

	assert.True(t, parcel.StatusCancelled.IsTerminal())
	assert.False(t, parcel.StatusAssigned.IsTerminal())
}

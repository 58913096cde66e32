package queries

import (
	"errors"
	"strings"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

var (
	ErrGetCourierQueryIsNotConstructed = errors.New(
		"GetCourierQuery must be created via NewGetCourierQuery constructor",
	)
	ErrGetCourierPoolQueryIsNotConstructed = errors.New(
		"GetCourierPoolQuery must be created via NewGetCourierPoolQuery constructor",
	)
)

// CourierView is the read model of a courier. Location is filled only when requested and
// known.
type CourierView struct {
	ID                   kernel.UUID
	Name                 string
	Phone                string
	Email                string
	Transport            courier.TransportType
	MaxDistanceKm        float64
	WorkZone             string
	WorkStart            courier.TimeOfDay
	WorkEnd              courier.TimeOfDay
	WorkDays             []int
	Status               courier.Status
	CurrentLoad          uint16
	MaxLoad              uint16
	Rating               float64
	SuccessfulDeliveries uint32
	FailedDeliveries     uint32
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              uint64
	Location             *LocationView
}

// GetCourierQuery reads one courier, optionally with its current position.
type GetCourierQuery struct {
	courierID       kernel.UUID
	includeLocation bool
	guard           guard.ConstructorGuard
}

// NewGetCourierQuery creates a query for a single courier.
func NewGetCourierQuery(courierID kernel.UUID, includeLocation bool) (GetCourierQuery, error) {
	if err := courierID.Validate(); err != nil {
		return GetCourierQuery{}, errs.NewValueIsInvalidErrorWithCause("courier_id", err)
	}
	return GetCourierQuery{
		courierID:       courierID,
		includeLocation: includeLocation,
		guard:           guard.NewConstructorGuard(),
	}, nil
}

func (q GetCourierQuery) CourierID() kernel.UUID { return q.courierID }
func (q GetCourierQuery) IncludeLocation() bool  { return q.includeLocation }

// Validate ensures the query was created through the constructor.
func (q GetCourierQuery) Validate() error {
	return q.guard.Validate(ErrGetCourierQueryIsNotConstructed)
}

// CourierFilter narrows the courier pool. Zone matches couriers serving it, including
// wildcard couriers. AvailableOnly keeps Free couriers with spare capacity.
type CourierFilter struct {
	Status        *courier.Status
	Zone          string
	Transport     *courier.TransportType
	AvailableOnly bool
}

// GetCourierPoolQuery lists couriers ordered by name.
type GetCourierPoolQuery struct {
	filter CourierFilter
	guard  guard.ConstructorGuard
}

// NewGetCourierPoolQuery validates the filter.
func NewGetCourierPoolQuery(filter CourierFilter) (GetCourierPoolQuery, error) {
	filter.Zone = strings.TrimSpace(filter.Zone)

	var problems []error
	if filter.Status != nil {
		problems = append(problems, filter.Status.Validate())
	}
	if filter.Transport != nil {
		problems = append(problems, filter.Transport.Validate())
	}
	if err := errors.Join(problems...); err != nil {
		return GetCourierPoolQuery{}, err
	}

	return GetCourierPoolQuery{filter: filter, guard: guard.NewConstructorGuard()}, nil
}

func (q GetCourierPoolQuery) Filter() CourierFilter { return q.filter }

// Validate ensures the query was created through the constructor.
func (q GetCourierPoolQuery) Validate() error {
	return q.guard.Validate(ErrGetCourierPoolQueryIsNotConstructed)
}

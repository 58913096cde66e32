// Package queries contains the read operations of the service. Package and courier reads
// run raw SQL against the tables written by the command side; location reads go through
// the geolocation store. Queries never change state.
package queries

import (
	"errors"
	"strings"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/pkg/errs"
	"courier-dispatch/internal/pkg/guard"
)

// Page bounds of the package pool.
const (
	DefaultPoolLimit = 50
	MaxPoolLimit     = 500
)

var (
	ErrGetPackageQueryIsNotConstructed = errors.New(
		"GetPackageQuery must be created via NewGetPackageQuery constructor",
	)
	ErrGetPackagePoolQueryIsNotConstructed = errors.New(
		"GetPackagePoolQuery must be created via NewGetPackagePoolQuery constructor",
	)
)

// PackageView is the read model of a package.
type PackageView struct {
	ID            kernel.UUID
	OrderID       kernel.UUID
	CustomerID    kernel.UUID
	Status        parcel.Status
	Zone          string
	Priority      int
	WeightKg      float64
	Pickup        kernel.Location
	Delivery      kernel.Location
	Instructions  string
	RecipientName string
	CourierID     *kernel.UUID
	CompletedBy   *kernel.UUID
	CancelReason  string
	FailureReason string
	AcceptedAt    time.Time
	AssignedAt    *time.Time
	PickedUpAt    *time.Time
	CompletedAt   *time.Time
	UpdatedAt     time.Time
	Version       uint64
}

// GetPackageQuery reads one package by id.
type GetPackageQuery struct {
	packageID kernel.UUID
	guard     guard.ConstructorGuard
}

// NewGetPackageQuery creates a query for a single package.
func NewGetPackageQuery(packageID kernel.UUID) (GetPackageQuery, error) {
	if err := packageID.Validate(); err != nil {
		return GetPackageQuery{}, errs.NewValueIsInvalidErrorWithCause("package_id", err)
	}
	return GetPackageQuery{packageID: packageID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetPackageQuery) PackageID() kernel.UUID { return q.packageID }

// Validate ensures the query was created through the constructor.
func (q GetPackageQuery) Validate() error {
	return q.guard.Validate(ErrGetPackageQueryIsNotConstructed)
}

// PackageFilter narrows the package pool. Zero fields do not filter.
type PackageFilter struct {
	Status    *parcel.Status
	Zone      string
	CourierID *kernel.UUID
	Limit     int
	Offset    int
}

// GetPackagePoolQuery lists packages, most urgent first and then oldest.
//
// Example:
//
//	status := parcel.StatusInPool
//	query, err := NewGetPackagePoolQuery(PackageFilter{Status: &status, Zone: "berlin"})
//	if err != nil {
//	    return err
//	}
//	page, err := handler.Handle(ctx, query)
type GetPackagePoolQuery struct {
	filter PackageFilter
	guard  guard.ConstructorGuard
}

// NewGetPackagePoolQuery validates the filter. A zero limit selects DefaultPoolLimit.
func NewGetPackagePoolQuery(filter PackageFilter) (GetPackagePoolQuery, error) {
	filter.Zone = strings.TrimSpace(filter.Zone)
	if filter.Limit == 0 {
		filter.Limit = DefaultPoolLimit
	}

	var problems []error
	if filter.Limit < 1 || filter.Limit > MaxPoolLimit {
		problems = append(problems, errs.NewValueIsOutOfRangeError("limit", filter.Limit, 1, MaxPoolLimit))
	}
	if filter.Offset < 0 {
		problems = append(problems, errs.NewValueIsOutOfRangeError("offset", filter.Offset, 0, "unbounded"))
	}
	if filter.Status != nil {
		problems = append(problems, filter.Status.Validate())
	}
	if filter.CourierID != nil {
		problems = append(problems, filter.CourierID.Validate())
	}
	if err := errors.Join(problems...); err != nil {
		return GetPackagePoolQuery{}, err
	}

	return GetPackagePoolQuery{filter: filter, guard: guard.NewConstructorGuard()}, nil
}

func (q GetPackagePoolQuery) Filter() PackageFilter { return q.filter }

// Validate ensures the query was created through the constructor.
func (q GetPackagePoolQuery) Validate() error {
	return q.guard.Validate(ErrGetPackagePoolQueryIsNotConstructed)
}

// PackagePage is one page of the package pool and the number of all matching packages.
type PackagePage struct {
	Packages   []PackageView
	TotalCount int64
}

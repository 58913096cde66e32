package queries

import (
	"context"
	"errors"
	"strings"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const packageColumns = `
	id, order_id, customer_id, status, zone, priority, weight_kg,
	pickup_lat, pickup_lon, pickup_address, delivery_lat, delivery_lon, delivery_address,
	instructions, recipient_name, courier_id, completed_by, cancel_reason, failure_reason,
	accepted_at, assigned_at, picked_up_at, completed_at, updated_at, version`

type packageRow struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	CustomerID      uuid.UUID
	Status          string
	Zone            string
	Priority        int
	WeightKg        float64
	PickupLat       float64
	PickupLon       float64
	PickupAddress   string
	DeliveryLat     float64
	DeliveryLon     float64
	DeliveryAddress string
	Instructions    string
	RecipientName   string
	CourierID       *uuid.UUID
	CompletedBy     *uuid.UUID
	CancelReason    string
	FailureReason   string
	AcceptedAt      time.Time
	AssignedAt      *time.Time
	PickedUpAt      *time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
	Version         int64
}

func (r packageRow) view() (PackageView, error) {
	id, idErr := kernel.UUIDFromBytes(r.ID[:])
	orderID, orderErr := kernel.UUIDFromBytes(r.OrderID[:])
	customerID, customerErr := kernel.UUIDFromBytes(r.CustomerID[:])
	status, statusErr := parcel.ParseStatus(r.Status)
	pickup, pickupErr := kernel.NewLocationFromLatLon(r.PickupLat, r.PickupLon, r.PickupAddress)
	delivery, deliveryErr := kernel.NewLocationFromLatLon(r.DeliveryLat, r.DeliveryLon, r.DeliveryAddress)
	courierID, courierErr := optionalUUID(r.CourierID)
	completedBy, completedErr := optionalUUID(r.CompletedBy)
	if err := errors.Join(idErr, orderErr, customerErr, statusErr, pickupErr, deliveryErr,
		courierErr, completedErr); err != nil {
		return PackageView{}, err
	}

	return PackageView{
		ID:            id,
		OrderID:       orderID,
		CustomerID:    customerID,
		Status:        status,
		Zone:          r.Zone,
		Priority:      r.Priority,
		WeightKg:      r.WeightKg,
		Pickup:        pickup,
		Delivery:      delivery,
		Instructions:  r.Instructions,
		RecipientName: r.RecipientName,
		CourierID:     courierID,
		CompletedBy:   completedBy,
		CancelReason:  r.CancelReason,
		FailureReason: r.FailureReason,
		AcceptedAt:    r.AcceptedAt,
		AssignedAt:    r.AssignedAt,
		PickedUpAt:    r.PickedUpAt,
		CompletedAt:   r.CompletedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       uint64(r.Version),
	}, nil
}

func optionalUUID(raw *uuid.UUID) (*kernel.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := kernel.UUIDFromBytes(raw[:])
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// GetPackageQueryHandler reads a package from the packages table.
type GetPackageQueryHandler struct {
	db *gorm.DB
}

// NewGetPackageQueryHandler creates a handler for single package reads.
func NewGetPackageQueryHandler(db *gorm.DB) GetPackageQueryHandler {
	return GetPackageQueryHandler{db: db}
}

// Handle returns the package or errs.ErrObjectNotFound.
func (h GetPackageQueryHandler) Handle(ctx context.Context, query GetPackageQuery) (PackageView, error) {
	if err := query.Validate(); err != nil {
		return PackageView{}, err
	}

	var rows []packageRow
	if err := h.db.WithContext(ctx).
		Raw(`SELECT `+packageColumns+` FROM packages WHERE id = ?`, query.PackageID().Bytes()).
		Scan(&rows).Error; err != nil {
		return PackageView{}, err
	}
	if len(rows) == 0 {
		return PackageView{}, errs.NewObjectNotFoundError("package", query.PackageID().String())
	}

	return rows[0].view()
}

// GetPackagePoolQueryHandler lists packages with filters and paging.
//
// Example:
//
//	handler := NewGetPackagePoolQueryHandler(db)
//	query, _ := NewGetPackagePoolQuery(PackageFilter{Zone: "berlin", Limit: 20})
//
//	page, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return fmt.Errorf("failed to list packages: %w", err)
//	}
//	fmt.Printf("showing %d of %d packages\n", len(page.Packages), page.TotalCount)
type GetPackagePoolQueryHandler struct {
	db *gorm.DB
}

// NewGetPackagePoolQueryHandler creates a handler for package listings.
func NewGetPackagePoolQueryHandler(db *gorm.DB) GetPackagePoolQueryHandler {
	return GetPackagePoolQueryHandler{db: db}
}

// Handle returns the requested page, ordered by priority, acceptance time and id.
func (h GetPackagePoolQueryHandler) Handle(ctx context.Context, query GetPackagePoolQuery) (PackagePage, error) {
	if err := query.Validate(); err != nil {
		return PackagePage{}, err
	}
	f := query.Filter()

	conditions := []string{"TRUE"}
	var args []any
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status.String())
	}
	if f.Zone != "" {
		conditions = append(conditions, "zone = ?")
		args = append(args, f.Zone)
	}
	if f.CourierID != nil {
		conditions = append(conditions, "courier_id = ?")
		args = append(args, f.CourierID.Bytes())
	}
	where := strings.Join(conditions, " AND ")

	db := h.db.WithContext(ctx)

	var total int64
	if err := db.Raw(`SELECT count(*) FROM packages WHERE `+where, args...).Scan(&total).Error; err != nil {
		return PackagePage{}, err
	}

	var rows []packageRow
	if err := db.Raw(`SELECT `+packageColumns+` FROM packages WHERE `+where+`
		ORDER BY priority, accepted_at, id
		LIMIT ? OFFSET ?`, append(args, f.Limit, f.Offset)...).
		Scan(&rows).Error; err != nil {
		return PackagePage{}, err
	}

	page := PackagePage{Packages: make([]PackageView, 0, len(rows)), TotalCount: total}
	for _, r := range rows {
		v, err := r.view()
		if err != nil {
			return PackagePage{}, err
		}
		page.Packages = append(page.Packages, v)
	}
	return page, nil
}

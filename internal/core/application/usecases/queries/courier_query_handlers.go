package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/ports"
	"courier-dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const courierColumns = `
	id, name, phone, email, transport, max_distance_km, work_zone,
	work_start, work_end, work_days, status, current_load, max_load,
	successful_deliveries, failed_deliveries, created_at, updated_at, version`

type courierRow struct {
	ID                   uuid.UUID
	Name                 string
	Phone                string
	Email                string
	Transport            string
	MaxDistanceKm        float64
	WorkZone             string
	WorkStart            int
	WorkEnd              int
	WorkDays             pq.Int64Array `gorm:"type:smallint[]"`
	Status               string
	CurrentLoad          int
	MaxLoad              int
	SuccessfulDeliveries int64
	FailedDeliveries     int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64
}

func (r courierRow) view() (CourierView, error) {
	id, idErr := kernel.UUIDFromBytes(r.ID[:])
	transport, transportErr := courier.ParseTransportType(r.Transport)
	status, statusErr := courier.ParseStatus(r.Status)
	if err := errors.Join(idErr, transportErr, statusErr); err != nil {
		return CourierView{}, err
	}

	days := make([]int, 0, len(r.WorkDays))
	for _, d := range r.WorkDays {
		days = append(days, int(d))
	}

	return CourierView{
		ID:                   id,
		Name:                 r.Name,
		Phone:                r.Phone,
		Email:                r.Email,
		Transport:            transport,
		MaxDistanceKm:        r.MaxDistanceKm,
		WorkZone:             r.WorkZone,
		WorkStart:            courier.TimeOfDay(r.WorkStart),
		WorkEnd:              courier.TimeOfDay(r.WorkEnd),
		WorkDays:             days,
		Status:               status,
		CurrentLoad:          uint16(r.CurrentLoad),
		MaxLoad:              uint16(r.MaxLoad),
		Rating:               courier.RatingOf(uint32(r.SuccessfulDeliveries), uint32(r.FailedDeliveries)),
		SuccessfulDeliveries: uint32(r.SuccessfulDeliveries),
		FailedDeliveries:     uint32(r.FailedDeliveries),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		Version:              uint64(r.Version),
	}, nil
}

// GetCourierQueryHandler reads a courier profile and, on request, its current position.
//
// Example:
//
//	handler := NewGetCourierQueryHandler(db, geoStore)
//	query, _ := NewGetCourierQuery(courierID, true)
//
//	view, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return err
//	}
//	if view.Location != nil {
//	    fmt.Printf("%s is at %.5f, %.5f\n", view.Name, view.Location.Lat, view.Location.Lon)
//	}
type GetCourierQueryHandler struct {
	db        *gorm.DB
	locations ports.LocationReader
}

// NewGetCourierQueryHandler creates a handler for single courier reads.
func NewGetCourierQueryHandler(db *gorm.DB, locations ports.LocationReader) GetCourierQueryHandler {
	return GetCourierQueryHandler{db: db, locations: locations}
}

// Handle returns the courier or errs.ErrObjectNotFound.
func (h GetCourierQueryHandler) Handle(ctx context.Context, query GetCourierQuery) (CourierView, error) {
	if err := query.Validate(); err != nil {
		return CourierView{}, err
	}

	var rows []courierRow
	if err := h.db.WithContext(ctx).
		Raw(`SELECT `+courierColumns+` FROM couriers WHERE id = ?`, query.CourierID().Bytes()).
		Scan(&rows).Error; err != nil {
		return CourierView{}, err
	}
	if len(rows) == 0 {
		return CourierView{}, errs.NewObjectNotFoundError("courier", query.CourierID().String())
	}

	view, err := rows[0].view()
	if err != nil {
		return CourierView{}, err
	}
	if !query.IncludeLocation() {
		return view, nil
	}

	snapshot, ok, err := h.locations.Current(ctx, view.ID)
	if err != nil {
		return CourierView{}, fmt.Errorf("read courier location: %w", err)
	}
	if ok {
		loc := NewLocationView(snapshot)
		view.Location = &loc
	}
	return view, nil
}

// GetCourierPoolQueryHandler lists couriers matching a filter.
type GetCourierPoolQueryHandler struct {
	db *gorm.DB
}

// NewGetCourierPoolQueryHandler creates a handler for courier listings.
func NewGetCourierPoolQueryHandler(db *gorm.DB) GetCourierPoolQueryHandler {
	return GetCourierPoolQueryHandler{db: db}
}

// Handle returns the matching couriers sorted by name and id.
func (h GetCourierPoolQueryHandler) Handle(ctx context.Context, query GetCourierPoolQuery) ([]CourierView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	f := query.Filter()

	conditions := []string{"TRUE"}
	var args []any
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status.String())
	}
	if f.Zone != "" {
		conditions = append(conditions, "work_zone IN ?")
		args = append(args, []string{f.Zone, courier.WildcardZone})
	}
	if f.Transport != nil {
		conditions = append(conditions, "transport = ?")
		args = append(args, f.Transport.String())
	}
	if f.AvailableOnly {
		conditions = append(conditions, "status = ?", "current_load < max_load")
		args = append(args, courier.StatusFree.String())
	}

	var rows []courierRow
	if err := h.db.WithContext(ctx).
		Raw(`SELECT `+courierColumns+` FROM couriers WHERE `+strings.Join(conditions, " AND ")+`
			ORDER BY name, id`, args...).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	couriers := make([]CourierView, 0, len(rows))
	for _, r := range rows {
		v, err := r.view()
		if err != nil {
			return nil, err
		}
		couriers = append(couriers, v)
	}
	return couriers, nil
}

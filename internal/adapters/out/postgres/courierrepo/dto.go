// Package courierrepo persists the courier aggregate in the couriers table and maps rows
// back through courier.RestoreCourier.
package courierrepo

import (
	"errors"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CourierDTO represents the database structure for persisting courier aggregates.
// Status and transport are stored by name so the read side can filter on them directly.
type CourierDTO struct {
	ID                   uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Name                 string       `gorm:"type:varchar(255);not null"`
	Phone                string       `gorm:"type:varchar(32);not null"`
	Email                string       `gorm:"type:varchar(320);not null"`
	PushToken            string       `gorm:"type:text;not null;default:''"`
	Transport            string       `gorm:"type:varchar(16);not null"`
	MaxDistanceKm        float64      `gorm:"not null"`
	WorkZone             string       `gorm:"type:varchar(64);not null;index:idx_couriers_dispatch,priority:2"`
	WorkHours            WorkHoursDTO `gorm:"embedded;embeddedPrefix:work_"`
	Status               string       `gorm:"type:varchar(16);not null;index:idx_couriers_dispatch,priority:1"`
	CurrentLoad          int          `gorm:"type:smallint;not null"`
	MaxLoad              int          `gorm:"type:smallint;not null"`
	SuccessfulDeliveries int64        `gorm:"not null;default:0"`
	FailedDeliveries     int64        `gorm:"not null;default:0"`
	CreatedAt            time.Time    `gorm:"not null;autoCreateTime:false"`
	UpdatedAt            time.Time    `gorm:"not null;autoUpdateTime:false"`
	Version              int64        `gorm:"not null"`
}

// TableName specifies the database table name for courier entities.
func (CourierDTO) TableName() string {
	return "couriers"
}

// WorkHoursDTO is the embedded shift window. Start and end are minutes since midnight,
// days are ISO weekdays.
type WorkHoursDTO struct {
	Start int           `gorm:"type:smallint;not null"`
	End   int           `gorm:"type:smallint;not null"`
	Days  pq.Int64Array `gorm:"type:smallint[];not null"`
}

func fromDomain(c *courier.Courier) CourierDTO {
	s := c.State()

	days := make(pq.Int64Array, 0, len(s.WorkHours.Days()))
	for _, d := range s.WorkHours.Days() {
		days = append(days, int64(d))
	}

	return CourierDTO{
		ID:            s.ID.Bytes(),
		Name:          s.Name,
		Phone:         s.Contact.Phone(),
		Email:         s.Contact.Email(),
		PushToken:     s.Contact.PushToken(),
		Transport:     s.Transport.String(),
		MaxDistanceKm: s.MaxDistanceKm,
		WorkZone:      s.WorkZone,
		WorkHours: WorkHoursDTO{
			Start: int(s.WorkHours.Start()),
			End:   int(s.WorkHours.End()),
			Days:  days,
		},
		Status:               s.Status.String(),
		CurrentLoad:          int(s.CurrentLoad),
		MaxLoad:              int(s.MaxLoad),
		SuccessfulDeliveries: int64(s.SuccessfulDeliveries),
		FailedDeliveries:     int64(s.FailedDeliveries),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
		Version:              int64(s.Version),
	}
}

func toDomain(dto CourierDTO) (*courier.Courier, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	contact, contactErr := courier.NewContact(dto.Phone, dto.Email, dto.PushToken)
	transport, transportErr := courier.ParseTransportType(dto.Transport)
	status, statusErr := courier.ParseStatus(dto.Status)

	days := make([]int, 0, len(dto.WorkHours.Days))
	for _, d := range dto.WorkHours.Days {
		days = append(days, int(d))
	}
	hours, hoursErr := courier.NewWorkHours(
		courier.TimeOfDay(dto.WorkHours.Start), courier.TimeOfDay(dto.WorkHours.End), days)

	if err = errors.Join(contactErr, transportErr, statusErr, hoursErr); err != nil {
		return nil, err
	}

	return courier.RestoreCourier(courier.State{
		ID:                   id,
		Name:                 dto.Name,
		Contact:              contact,
		Transport:            transport,
		MaxDistanceKm:        dto.MaxDistanceKm,
		WorkZone:             dto.WorkZone,
		WorkHours:            hours,
		Status:               status,
		CurrentLoad:          uint16(dto.CurrentLoad),
		MaxLoad:              uint16(dto.MaxLoad),
		SuccessfulDeliveries: uint32(dto.SuccessfulDeliveries),
		FailedDeliveries:     uint32(dto.FailedDeliveries),
		CreatedAt:            dto.CreatedAt,
		UpdatedAt:            dto.UpdatedAt,
		Version:              uint64(dto.Version),
	})
}

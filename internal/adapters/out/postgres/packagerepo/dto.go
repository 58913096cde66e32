// Package packagerepo persists the package aggregate in the packages table.
package packagerepo

import (
	"errors"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"

	"github.com/google/uuid"
)

// PackageDTO represents the database structure for persisting package aggregates.
// Status and zone are indexed for the pool reads, courier_id for a courier's work list.
type PackageDTO struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	CustomerID    uuid.UUID    `gorm:"type:uuid;not null"`
	Pickup        LocationDTO  `gorm:"embedded;embeddedPrefix:pickup_"`
	Delivery      LocationDTO  `gorm:"embedded;embeddedPrefix:delivery_"`
	Zone          string       `gorm:"type:varchar(64);not null;index"`
	WeightKg      float64      `gorm:"not null"`
	Priority      int          `gorm:"type:smallint;not null"`
	Instructions  string       `gorm:"type:text;not null;default:''"`
	Recipient     RecipientDTO `gorm:"embedded;embeddedPrefix:recipient_"`
	Status        string       `gorm:"type:varchar(16);not null;index"`
	CourierID     *uuid.UUID   `gorm:"type:uuid;index"`
	CompletedBy   *uuid.UUID   `gorm:"type:uuid"`
	ConfirmedLat  *float64     `gorm:"column:pickup_confirmed_lat"`
	ConfirmedLon  *float64     `gorm:"column:pickup_confirmed_lon"`
	CancelReason  string       `gorm:"type:text;not null;default:''"`
	FailureReason string       `gorm:"type:text;not null;default:''"`
	AcceptedAt    time.Time    `gorm:"not null;autoCreateTime:false"`
	AssignedAt    *time.Time   `gorm:"type:timestamptz"`
	PickedUpAt    *time.Time   `gorm:"type:timestamptz"`
	CompletedAt   *time.Time   `gorm:"type:timestamptz"`
	UpdatedAt     time.Time    `gorm:"not null;autoUpdateTime:false"`
	Version       int64        `gorm:"not null"`
}

// TableName specifies the database table name for package entities.
func (PackageDTO) TableName() string {
	return "packages"
}

// LocationDTO is an embedded point with its optional display address.
type LocationDTO struct {
	Lat     float64 `gorm:"not null"`
	Lon     float64 `gorm:"not null"`
	Address string  `gorm:"type:text;not null;default:''"`
}

// RecipientDTO is the embedded recipient; an empty name means none was given.
type RecipientDTO struct {
	Name  string `gorm:"type:varchar(255);not null;default:''"`
	Phone string `gorm:"type:varchar(32);not null;default:''"`
	Email string `gorm:"type:varchar(320);not null;default:''"`
}

func locationFromDomain(l kernel.Location) LocationDTO {
	return LocationDTO{Lat: l.Point().Lat(), Lon: l.Point().Lon(), Address: l.Address()}
}

func uuidFromDomain(id *kernel.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}

func uuidToDomain(raw *uuid.UUID) (*kernel.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := kernel.UUIDFromBytes(raw[:])
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func fromDomain(p *parcel.Package) PackageDTO {
	s := p.State()

	dto := PackageDTO{
		ID:           s.ID.Bytes(),
		OrderID:      s.Details.OrderID.Bytes(),
		CustomerID:   s.Details.CustomerID.Bytes(),
		Pickup:       locationFromDomain(s.Details.Pickup),
		Delivery:     locationFromDomain(s.Details.Delivery),
		Zone:         s.Details.Zone,
		WeightKg:     s.Details.WeightKg,
		Priority:     s.Details.Priority,
		Instructions: s.Details.Instructions,
		Recipient: RecipientDTO{
			Name:  s.Details.Recipient.Name(),
			Phone: s.Details.Recipient.Phone(),
			Email: s.Details.Recipient.Email(),
		},
		Status:        s.Status.String(),
		CourierID:     uuidFromDomain(s.CourierID),
		CompletedBy:   uuidFromDomain(s.CompletedBy),
		CancelReason:  s.CancelReason,
		FailureReason: s.FailureReason,
		AcceptedAt:    s.AcceptedAt,
		AssignedAt:    s.AssignedAt,
		PickedUpAt:    s.PickedUpAt,
		CompletedAt:   s.CompletedAt,
		UpdatedAt:     s.UpdatedAt,
		Version:       int64(s.Version),
	}
	if s.PickupLocation != nil {
		lat, lon := s.PickupLocation.Point().Lat(), s.PickupLocation.Point().Lon()
		dto.ConfirmedLat, dto.ConfirmedLon = &lat, &lon
	}
	return dto
}

func toDomain(dto PackageDTO) (*parcel.Package, error) {
	id, idErr := kernel.UUIDFromBytes(dto.ID[:])
	orderID, orderErr := kernel.UUIDFromBytes(dto.OrderID[:])
	customerID, customerErr := kernel.UUIDFromBytes(dto.CustomerID[:])
	pickup, pickupErr := kernel.NewLocationFromLatLon(dto.Pickup.Lat, dto.Pickup.Lon, dto.Pickup.Address)
	delivery, deliveryErr := kernel.NewLocationFromLatLon(dto.Delivery.Lat, dto.Delivery.Lon, dto.Delivery.Address)
	status, statusErr := parcel.ParseStatus(dto.Status)
	courierID, courierErr := uuidToDomain(dto.CourierID)
	completedBy, completedErr := uuidToDomain(dto.CompletedBy)

	var recipient parcel.Recipient
	var recipientErr error
	if dto.Recipient.Name != "" {
		recipient, recipientErr = parcel.NewRecipient(dto.Recipient.Name, dto.Recipient.Phone, dto.Recipient.Email)
	}

	var pickupLocation *kernel.Location
	var confirmedErr error
	if dto.ConfirmedLat != nil && dto.ConfirmedLon != nil {
		var l kernel.Location
		l, confirmedErr = kernel.NewLocationFromLatLon(*dto.ConfirmedLat, *dto.ConfirmedLon, "")
		pickupLocation = &l
	}

	if err := errors.Join(idErr, orderErr, customerErr, pickupErr, deliveryErr, statusErr,
		courierErr, completedErr, recipientErr, confirmedErr); err != nil {
		return nil, err
	}

	return parcel.RestorePackage(parcel.State{
		ID: id,
		Details: parcel.Details{
			OrderID:      orderID,
			CustomerID:   customerID,
			Pickup:       pickup,
			Delivery:     delivery,
			Zone:         dto.Zone,
			WeightKg:     dto.WeightKg,
			Priority:     dto.Priority,
			Instructions: dto.Instructions,
			Recipient:    recipient,
		},
		Status:         status,
		CourierID:      courierID,
		CompletedBy:    completedBy,
		PickupLocation: pickupLocation,
		CancelReason:   dto.CancelReason,
		FailureReason:  dto.FailureReason,
		AcceptedAt:     dto.AcceptedAt,
		AssignedAt:     dto.AssignedAt,
		PickedUpAt:     dto.PickedUpAt,
		CompletedAt:    dto.CompletedAt,
		UpdatedAt:      dto.UpdatedAt,
		Version:        uint64(dto.Version),
	})
}

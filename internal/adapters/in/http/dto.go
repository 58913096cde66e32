package http

import (
	"errors"
	"time"

	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/application/usecases/queries"
	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/pkg/errs"
)

// defaultPriority is used when an order does not carry one.
const defaultPriority = 3

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Point) coordinates() (kernel.Coordinates, error) {
	return kernel.NewCoordinates(p.Latitude, p.Longitude)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

func (l Location) location(param string) (kernel.Location, error) {
	loc, err := kernel.NewLocationFromLatLon(l.Latitude, l.Longitude, l.Address)
	if err != nil {
		return kernel.Location{}, errs.NewValueIsInvalidErrorWithCause(param, err)
	}
	return loc, nil
}

func newLocation(l kernel.Location) Location {
	return Location{Latitude: l.Point().Lat(), Longitude: l.Point().Lon(), Address: l.Address()}
}

type Recipient struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (r *Recipient) recipient() (parcel.Recipient, error) {
	if r == nil {
		return parcel.Recipient{}, nil
	}
	return parcel.NewRecipient(r.Name, r.Phone, r.Email)
}

type NewPackage struct {
	OrderID      kernel.UUID `json:"order_id"`
	CustomerID   kernel.UUID `json:"customer_id"`
	Pickup       Location    `json:"pickup"`
	Delivery     Location    `json:"delivery"`
	Zone         string      `json:"zone"`
	WeightKg     float64     `json:"weight_kg"`
	Priority     *int        `json:"priority,omitempty"`
	Instructions string      `json:"instructions,omitempty"`
	Recipient    *Recipient  `json:"recipient,omitempty"`
}

func (n NewPackage) details() (parcel.Details, error) {
	pickup, pickupErr := n.Pickup.location("pickup")
	delivery, deliveryErr := n.Delivery.location("delivery")
	recipient, recipientErr := n.Recipient.recipient()
	if err := errors.Join(pickupErr, deliveryErr, recipientErr); err != nil {
		return parcel.Details{}, err
	}

	priority := defaultPriority
	if n.Priority != nil {
		priority = *n.Priority
	}
	return parcel.Details{
		OrderID:      n.OrderID,
		CustomerID:   n.CustomerID,
		Pickup:       pickup,
		Delivery:     delivery,
		Zone:         n.Zone,
		WeightKg:     n.WeightKg,
		Priority:     priority,
		Instructions: n.Instructions,
		Recipient:    recipient,
	}, nil
}

type Created struct {
	ID kernel.UUID `json:"id"`
}

type Package struct {
	ID            kernel.UUID  `json:"id"`
	OrderID       kernel.UUID  `json:"order_id"`
	CustomerID    kernel.UUID  `json:"customer_id"`
	Status        string       `json:"status"`
	Zone          string       `json:"zone"`
	Priority      int          `json:"priority"`
	WeightKg      float64      `json:"weight_kg"`
	Pickup        Location     `json:"pickup"`
	Delivery      Location     `json:"delivery"`
	Instructions  string       `json:"instructions,omitempty"`
	RecipientName string       `json:"recipient_name,omitempty"`
	CourierID     *kernel.UUID `json:"courier_id,omitempty"`
	CompletedBy   *kernel.UUID `json:"completed_by,omitempty"`
	CancelReason  string       `json:"cancel_reason,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	AcceptedAt    time.Time    `json:"accepted_at"`
	AssignedAt    *time.Time   `json:"assigned_at,omitempty"`
	PickedUpAt    *time.Time   `json:"picked_up_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Version       uint64       `json:"version"`
}

func newPackage(v queries.PackageView) Package {
	return Package{
		ID:            v.ID,
		OrderID:       v.OrderID,
		CustomerID:    v.CustomerID,
		Status:        v.Status.String(),
		Zone:          v.Zone,
		Priority:      v.Priority,
		WeightKg:      v.WeightKg,
		Pickup:        newLocation(v.Pickup),
		Delivery:      newLocation(v.Delivery),
		Instructions:  v.Instructions,
		RecipientName: v.RecipientName,
		CourierID:     v.CourierID,
		CompletedBy:   v.CompletedBy,
		CancelReason:  v.CancelReason,
		FailureReason: v.FailureReason,
		AcceptedAt:    v.AcceptedAt,
		AssignedAt:    v.AssignedAt,
		PickedUpAt:    v.PickedUpAt,
		CompletedAt:   v.CompletedAt,
		UpdatedAt:     v.UpdatedAt,
		Version:       v.Version,
	}
}

type PackagePage struct {
	Packages   []Package `json:"packages"`
	TotalCount int64     `json:"total_count"`
}

type AssignRequest struct {
	Mode      string       `json:"mode"`
	CourierID *kernel.UUID `json:"courier_id,omitempty"`
}

type Assignment struct {
	PackageID kernel.UUID `json:"package_id"`
	CourierID kernel.UUID `json:"courier_id"`
}

type PickUpRequest struct {
	CourierID kernel.UUID `json:"courier_id"`
	Location  Location    `json:"location"`
}

type DeliverRequest struct {
	CourierID     kernel.UUID `json:"courier_id"`
	Delivered     bool        `json:"delivered"`
	Recipient     *Recipient  `json:"recipient,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type Contact struct {
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	PushToken string `json:"push_token,omitempty"`
}

func (c Contact) contact() (courier.Contact, error) {
	return courier.NewContact(c.Phone, c.Email, c.PushToken)
}

type Schedule struct {
	WorkStart     string  `json:"work_start"`
	WorkEnd       string  `json:"work_end"`
	WorkDays      []int   `json:"work_days"`
	WorkZone      string  `json:"work_zone"`
	MaxDistanceKm float64 `json:"max_distance_km"`
}

func (s Schedule) hours() (courier.WorkHours, error) {
	start, startErr := courier.ParseTimeOfDay(s.WorkStart)
	end, endErr := courier.ParseTimeOfDay(s.WorkEnd)
	if err := errors.Join(startErr, endErr); err != nil {
		return courier.WorkHours{}, err
	}
	return courier.NewWorkHours(start, end, s.WorkDays)
}

type NewCourier struct {
	Name      string   `json:"name"`
	Contact   Contact  `json:"contact"`
	Transport string   `json:"transport"`
	Schedule  Schedule `json:"schedule"`
}

type TransportChange struct {
	Transport string `json:"transport"`
}

type StatusChange struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

type Courier struct {
	ID                   kernel.UUID      `json:"id"`
	Name                 string           `json:"name"`
	Phone                string           `json:"phone,omitempty"`
	Email                string           `json:"email,omitempty"`
	Transport            string           `json:"transport"`
	MaxDistanceKm        float64          `json:"max_distance_km"`
	WorkZone             string           `json:"work_zone"`
	WorkStart            string           `json:"work_start"`
	WorkEnd              string           `json:"work_end"`
	WorkDays             []int            `json:"work_days"`
	Status               string           `json:"status"`
	CurrentLoad          uint16           `json:"current_load"`
	MaxLoad              uint16           `json:"max_load"`
	Rating               float64          `json:"rating"`
	SuccessfulDeliveries uint32           `json:"successful_deliveries"`
	FailedDeliveries     uint32           `json:"failed_deliveries"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	Version              uint64           `json:"version"`
	Location             *CourierLocation `json:"location,omitempty"`
}

func newCourier(v queries.CourierView) Courier {
	c := Courier{
		ID:                   v.ID,
		Name:                 v.Name,
		Phone:                v.Phone,
		Email:                v.Email,
		Transport:            v.Transport.String(),
		MaxDistanceKm:        v.MaxDistanceKm,
		WorkZone:             v.WorkZone,
		WorkStart:            v.WorkStart.String(),
		WorkEnd:              v.WorkEnd.String(),
		WorkDays:             v.WorkDays,
		Status:               v.Status.String(),
		CurrentLoad:          v.CurrentLoad,
		MaxLoad:              v.MaxLoad,
		Rating:               v.Rating,
		SuccessfulDeliveries: v.SuccessfulDeliveries,
		FailedDeliveries:     v.FailedDeliveries,
		CreatedAt:            v.CreatedAt,
		UpdatedAt:            v.UpdatedAt,
		Version:              v.Version,
	}
	if v.Location != nil {
		loc := newCourierLocation(*v.Location)
		c.Location = &loc
	}
	return c
}

type LocationReport struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
}

type CourierLocation struct {
	CourierID  kernel.UUID `json:"courier_id"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Accuracy   float64     `json:"accuracy"`
	Speed      *float64    `json:"speed,omitempty"`
	Heading    *float64    `json:"heading,omitempty"`
	RecordedAt time.Time   `json:"recorded_at"`
	Suspicious bool        `json:"suspicious"`
}

func newCourierLocation(v queries.LocationView) CourierLocation {
	return CourierLocation{
		CourierID:  v.CourierID,
		Latitude:   v.Lat,
		Longitude:  v.Lon,
		Accuracy:   v.AccuracyM,
		Speed:      v.SpeedKmh,
		Heading:    v.HeadingDeg,
		RecordedAt: v.RecordedAt,
		Suspicious: v.Suspicious,
	}
}

func newCourierLocations(views []queries.LocationView) []CourierLocation {
	out := make([]CourierLocation, 0, len(views))
	for _, v := range views {
		out = append(out, newCourierLocation(v))
	}
	return out
}

type RecordedLocation struct {
	Location  CourierLocation `json:"location"`
	Duplicate bool            `json:"duplicate"`
	Cached    bool            `json:"cached"`
}

func newRecordedLocation(r geostore.RecordResult) RecordedLocation {
	return RecordedLocation{
		Location:  newCourierLocation(queries.NewLocationView(r.Snapshot)),
		Duplicate: r.Duplicate,
		Cached:    r.Cached,
	}
}

type Geofence struct {
	Kind      string  `json:"kind"`
	Center    *Point  `json:"center,omitempty"`
	RadiusKm  float64 `json:"radius_km,omitempty"`
	SouthWest *Point  `json:"south_west,omitempty"`
	NorthEast *Point  `json:"north_east,omitempty"`
	Vertices  []Point `json:"vertices,omitempty"`
}

func (g Geofence) geofence() (kernel.Geofence, error) {
	switch kernel.GeofenceKind(g.Kind) {
	case kernel.GeofenceCircle:
		if g.Center == nil {
			return nil, errs.NewValueIsRequiredError("center")
		}
		center, err := g.Center.coordinates()
		if err != nil {
			return nil, err
		}
		circle, err := kernel.NewCircleGeofence(center, g.RadiusKm)
		if err != nil {
			return nil, err
		}
		return circle, nil
	case kernel.GeofenceRectangle:
		if g.SouthWest == nil || g.NorthEast == nil {
			return nil, errs.NewValueIsRequiredError("south_west and north_east")
		}
		sw, swErr := g.SouthWest.coordinates()
		ne, neErr := g.NorthEast.coordinates()
		if err := errors.Join(swErr, neErr); err != nil {
			return nil, err
		}
		rect, err := kernel.NewRectangleGeofence(sw, ne)
		if err != nil {
			return nil, err
		}
		return rect, nil
	case kernel.GeofencePolygon:
		vertices := make([]kernel.Coordinates, 0, len(g.Vertices))
		for _, v := range g.Vertices {
			c, err := v.coordinates()
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, c)
		}
		polygon, err := kernel.NewPolygonGeofence(vertices)
		if err != nil {
			return nil, err
		}
		return polygon, nil
	default:
		return nil, errs.NewValueIsInvalidError("kind")
	}
}

type GeofenceCheck struct {
	Inside   bool            `json:"inside"`
	Kind     string          `json:"kind"`
	Location CourierLocation `json:"location"`
}

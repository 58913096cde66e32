package parcel

import "courier-dispatch/internal/core/domain/model/kernel"

// AggregateType labels package events in the outbox.
const AggregateType = "package"

// Event names as published downstream.
const (
	EventAccepted     = "PackageAccepted"
	EventAssigned     = "PackageAssigned"
	EventPickedUp     = "PackagePickedUp"
	EventDelivered    = "PackageDelivered"
	EventNotDelivered = "PackageNotDelivered"
	EventCancelled    = "PackageCancelled"
	EventRevoked      = "PackageRevoked"
)

// Point is the JSON form of a location inside event payloads.
type Point struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

func pointOf(l kernel.Location) Point {
	return Point{Lat: l.Point().Lat(), Lon: l.Point().Lon(), Address: l.Address()}
}

// AcceptedDetails is the order data published once, with PackageAccepted.
type AcceptedDetails struct {
	OrderID    kernel.UUID `json:"order_id"`
	CustomerID kernel.UUID `json:"customer_id"`
	Pickup     Point       `json:"pickup"`
	Delivery   Point       `json:"delivery"`
	Zone       string      `json:"zone"`
	WeightKg   float64     `json:"weight_kg"`
	Priority   int         `json:"priority"`
}

// StatusChangedEvent is raised by every applied transition. Name tells which one.
type StatusChangedEvent struct {
	kernel.EventMeta
	Name      string           `json:"-"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	CourierID *kernel.UUID     `json:"courier_id,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Location  *Point           `json:"location,omitempty"`
	Details   *AcceptedDetails `json:"details,omitempty"`
	Version   uint64           `json:"version"`
}

func (e StatusChangedEvent) EventName() string  { return e.Name }
func (StatusChangedEvent) AggregateType() string { return AggregateType }

func eventNameFor(from, to Status) string {
	switch to {
	case StatusInPool:
		if from == StatusAssigned {
			return EventRevoked
		}
		return EventAccepted
	case StatusAssigned:
		return EventAssigned
	case StatusInTransit:
		return EventPickedUp
	case StatusDelivered:
		return EventDelivered
	case StatusNotDelivered:
		return EventNotDelivered
	case StatusCancelled:
		return EventCancelled
	default:
		return ""
	}
}

package geolocation

import (
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
)

// EventLocationUpdated is published for every accepted report, keyed by the courier id.
const (
	EventLocationUpdated = "CourierLocationUpdated"
	AggregateType        = "courier_location"
)

// LocationUpdatedEvent carries one accepted report.
type LocationUpdatedEvent struct {
	kernel.EventMeta
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	RecordedAt time.Time `json:"recorded_at"`
	AccuracyM  float64   `json:"accuracy_m"`
	SpeedKmh   *float64  `json:"speed_kmh,omitempty"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	Suspicious bool      `json:"suspicious"`
}

// NewLocationUpdatedEvent builds the event for a stored snapshot.
func NewLocationUpdatedEvent(s Snapshot) LocationUpdatedEvent {
	return LocationUpdatedEvent{
		EventMeta:  kernel.NewEventMeta(s.courierID, s.recordedAt),
		Lat:        s.point.Lat(),
		Lon:        s.point.Lon(),
		RecordedAt: s.recordedAt,
		AccuracyM:  s.accuracyM,
		SpeedKmh:   copyFloat(s.speedKmh),
		HeadingDeg: copyFloat(s.headingDeg),
		Suspicious: s.suspicious,
	}
}

func (LocationUpdatedEvent) EventName() string     { return EventLocationUpdated }
func (LocationUpdatedEvent) AggregateType() string { return AggregateType }

package courier

import "courier-dispatch/internal/core/domain/model/kernel"

// AggregateType labels courier events in the outbox.
const AggregateType = "courier"

// Event names as published downstream.
const (
	EventRegistered     = "CourierRegistered"
	EventActivated      = "CourierActivated"
	EventDeactivated    = "CourierDeactivated"
	EventArchived       = "CourierArchived"
	EventProfileUpdated = "CourierProfileUpdated"
)

// RegisteredEvent is raised once when a courier joins the fleet.
type RegisteredEvent struct {
	kernel.EventMeta
	Name      string `json:"name"`
	Transport string `json:"transport"`
	WorkZone  string `json:"work_zone"`
	MaxLoad   uint16 `json:"max_load"`
	Version   uint64 `json:"version"`
}

func (RegisteredEvent) EventName() string     { return EventRegistered }
func (RegisteredEvent) AggregateType() string { return AggregateType }

// StatusChangedEvent is raised by activation, deactivation and archival.
type StatusChangedEvent struct {
	kernel.EventMeta
	Name        string `json:"-"`
	From        string `json:"from"`
	To          string `json:"to"`
	Reason      string `json:"reason,omitempty"`
	CurrentLoad uint16 `json:"current_load"`
	Version     uint64 `json:"version"`
}

func (e StatusChangedEvent) EventName() string  { return e.Name }
func (StatusChangedEvent) AggregateType() string { return AggregateType }

// ProfileUpdatedEvent is raised when contact, transport or schedule data changes.
type ProfileUpdatedEvent struct {
	kernel.EventMeta
	Fields  []string `json:"fields"`
	Version uint64   `json:"version"`
}

func (ProfileUpdatedEvent) EventName() string     { return EventProfileUpdated }
func (ProfileUpdatedEvent) AggregateType() string { return AggregateType }

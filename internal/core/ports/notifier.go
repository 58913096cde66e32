package ports

import (
	"context"
	"time"

	"courier-dispatch/internal/core/domain/model/kernel"
)

// Assignment is the message a courier receives when a package is reserved for it.
type Assignment struct {
	CourierID    kernel.UUID
	PushToken    string
	PackageID    kernel.UUID
	Pickup       kernel.Location
	Delivery     kernel.Location
	Priority     int
	Instructions string
	AssignedAt   time.Time
}

// CourierNotifier delivers assignment notifications. Delivery is best effort: the
// assignment is already committed when Notify is called.
type CourierNotifier interface {
	NotifyAssignment(ctx context.Context, a Assignment) error
}

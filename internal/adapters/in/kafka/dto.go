package kafka

import (
	"errors"
	"strings"
	"time"

	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"
)

// LocationReport is the JSON a courier app writes to the location topic.
type LocationReport struct {
	CourierID string    `json:"courier_id"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
}

// Command validates the report and converts it into an UpdateLocationCommand.
func (r LocationReport) Command() (commands.UpdateLocationCommand, error) {
	var problems []error
	if strings.TrimSpace(r.CourierID) == "" {
		problems = append(problems, errs.NewValueIsRequiredError("courier_id"))
	}
	if r.Latitude == nil {
		problems = append(problems, errs.NewValueIsRequiredError("latitude"))
	}
	if r.Longitude == nil {
		problems = append(problems, errs.NewValueIsRequiredError("longitude"))
	}
	if r.Timestamp.IsZero() {
		problems = append(problems, errs.NewValueIsRequiredError("timestamp"))
	}
	if err := errors.Join(problems...); err != nil {
		return commands.UpdateLocationCommand{}, err
	}

	courierID, err := kernel.UUIDFromString(r.CourierID)
	if err != nil {
		return commands.UpdateLocationCommand{}, err
	}
	return commands.NewUpdateLocationCommand(
		courierID, *r.Latitude, *r.Longitude, r.Accuracy, r.Timestamp, r.Speed, r.Heading,
	)
}

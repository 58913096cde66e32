package courier

import (
	"fmt"
	"strings"

	"courier-dispatch/internal/pkg/errs"
)

// TransportType is the vehicle class of a courier. It fixes the default capacity and the
// speed used to estimate arrival times.
type TransportType int

const (
	TransportUnknown TransportType = iota
	TransportFoot
	TransportBicycle
	TransportMotorcycle
	TransportCar
)

type transportSpec struct {
	name     string
	maxLoad  uint16
	speedKmh float64
}

var transportSpecs = map[TransportType]transportSpec{
	TransportFoot:       {name: "foot", maxLoad: 1, speedKmh: 5},
	TransportBicycle:    {name: "bicycle", maxLoad: 3, speedKmh: 15},
	TransportMotorcycle: {name: "motorcycle", maxLoad: 5, speedKmh: 40},
	TransportCar:        {name: "car", maxLoad: 10, speedKmh: 50},
}

// ParseTransportType converts "foot", "bicycle", "motorcycle" or "car" (any case).
func ParseTransportType(s string) (TransportType, error) {
	for t, spec := range transportSpecs {
		if strings.EqualFold(spec.name, s) {
			return t, nil
		}
	}
	return TransportUnknown, errs.NewValueIsInvalidErrorWithCause(
		"transport", fmt.Errorf("%q is not one of foot, bicycle, motorcycle, car", s))
}

// Validate rejects TransportUnknown and unknown values.
func (t TransportType) Validate() error {
	if _, ok := transportSpecs[t]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("transport", fmt.Errorf("%d is not a valid transport type", t))
	}
	return nil
}

func (t TransportType) String() string {
	if spec, ok := transportSpecs[t]; ok {
		return spec.name
	}
	return "unknown"
}

// DefaultMaxLoad is the number of packages the transport can carry at once.
func (t TransportType) DefaultMaxLoad() uint16 {
	return transportSpecs[t].maxLoad
}

// SpeedKmh is the average speed used for arrival estimates.
func (t TransportType) SpeedKmh() float64 {
	return transportSpecs[t].speedKmh
}

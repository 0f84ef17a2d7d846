package enums

import (
	"fmt"
	"strings"
)

// TransportMode is a way of getting between destinations.
type TransportMode string

const (
	TransportFlight TransportMode = "flight"
	TransportTrain  TransportMode = "train"
	TransportBus    TransportMode = "bus"
	TransportCar    TransportMode = "car"
	TransportCruise TransportMode = "cruise"
)

var validTransportModes = []TransportMode{
	TransportFlight,
	TransportTrain,
	TransportBus,
	TransportCar,
	TransportCruise,
}

// String implements fmt.Stringer.
func (v TransportMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TransportMode.
func (v TransportMode) IsValid() bool {
	for _, candidate := range validTransportModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTransportMode converts raw input into a TransportMode, ignoring case.
func ParseTransportMode(value string) (TransportMode, error) {
	for _, candidate := range validTransportModes {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transport mode %q", value)
}

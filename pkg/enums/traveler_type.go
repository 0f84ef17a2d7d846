package enums

import (
	"fmt"
	"strings"
)

// TravelerType describes who the trip is planned for.
type TravelerType string

const (
	TravelerSolo     TravelerType = "solo"
	TravelerCouple   TravelerType = "couple"
	TravelerFamily   TravelerType = "family"
	TravelerFriends  TravelerType = "friends"
	TravelerBusiness TravelerType = "business"
)

var validTravelerTypes = []TravelerType{
	TravelerSolo,
	TravelerCouple,
	TravelerFamily,
	TravelerFriends,
	TravelerBusiness,
}

// String implements fmt.Stringer.
func (v TravelerType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TravelerType.
func (v TravelerType) IsValid() bool {
	for _, candidate := range validTravelerTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTravelerType converts raw input into a TravelerType, ignoring case.
func ParseTravelerType(value string) (TravelerType, error) {
	for _, candidate := range validTravelerTypes {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid traveler type %q", value)
}

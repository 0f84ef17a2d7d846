package enums

import (
	"fmt"
	"strings"
)

// CommunityRole is a member's standing inside a community.
type CommunityRole string

const (
	CommunityRoleOwner  CommunityRole = "owner"
	CommunityRoleMember CommunityRole = "member"
)

var validCommunityRoles = []CommunityRole{
	CommunityRoleOwner,
	CommunityRoleMember,
}

// String implements fmt.Stringer.
func (v CommunityRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CommunityRole.
func (v CommunityRole) IsValid() bool {
	for _, candidate := range validCommunityRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCommunityRole converts raw input into a CommunityRole, ignoring case.
func ParseCommunityRole(value string) (CommunityRole, error) {
	for _, candidate := range validCommunityRoles {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid community role %q", value)
}

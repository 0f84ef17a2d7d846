package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims represents the identity provider's token as seen by the API.
// The traveler id travels in the standard subject claim.
type AccessTokenClaims struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the traveler id carried by the token.
func (c *AccessTokenClaims) UserID() string {
	return c.Subject
}

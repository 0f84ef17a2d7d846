// Package authtest mints access tokens shaped like the identity provider's.
// Production tokens are never issued by this service.
package authtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/wayfarer-backend/pkg/auth"
	"github.com/angelmondragon/wayfarer-backend/pkg/config"
)

// Payload is the identity carried by a minted token.
type Payload struct {
	UserID      string
	Email       string
	DisplayName string
	JTI         string
}

// MintAccessToken signs an HS256 token that auth.ParseAccessToken accepts.
func MintAccessToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, payload Payload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("jwt ttl must be positive")
	}
	if strings.TrimSpace(payload.UserID) == "" {
		return "", fmt.Errorf("user id is required")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := auth.AccessTokenClaims{
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

package authtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/pkg/auth"
	"github.com/angelmondragon/wayfarer-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "wayfarer-identity"}
}

func TestMintAccessTokenRoundTrips(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, 30*time.Minute, Payload{UserID: "traveler-42", JTI: "jti-1"})
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "traveler-42", claims.UserID())
	assert.Equal(t, "jti-1", claims.ID)
}

func TestMintAccessTokenValidatesInputs(t *testing.T) {
	_, err := MintAccessToken(config.JWTConfig{Issuer: "x"}, time.Now(), time.Minute, Payload{UserID: "u"})
	assert.Error(t, err)
	_, err = MintAccessToken(config.JWTConfig{Secret: "x"}, time.Now(), time.Minute, Payload{UserID: "u"})
	assert.Error(t, err)
	_, err = MintAccessToken(testJWTConfig(), time.Now(), 0, Payload{UserID: "u"})
	assert.Error(t, err)
	_, err = MintAccessToken(testJWTConfig(), time.Now(), time.Minute, Payload{})
	assert.Error(t, err)
}

package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayplan-api/internal/models"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService(nil, TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "dayplan"})

	token, expiresAt, err := svc.Issue("cli", []models.Scope{models.ScopePlansWrite})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.ClientID)
	assert.True(t, claims.HasScope(models.ScopePlansWrite))
	assert.False(t, claims.HasScope(models.ScopeTaskListsWrite))
}

func TestTokenServiceRejectsBadTokens(t *testing.T) {
	svc := NewTokenService(nil, TokenConfig{Secret: "secret", Issuer: "dayplan"})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	other := NewTokenService(nil, TokenConfig{Secret: "other", Issuer: "dayplan"})
	forged, _, err := other.Issue("cli", nil)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	require.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.TokenClaims{
		ClientID: "cli",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "dayplan",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, &models.TokenClaims{ClientID: "cli"})
	unsigned, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	require.Error(t, err)
}

func TestTokenServiceIssueValidation(t *testing.T) {
	_, _, err := NewTokenService(nil, TokenConfig{Secret: "secret"}).Issue("", nil)
	require.Error(t, err)

	_, _, err = NewTokenService(nil, TokenConfig{}).Issue("cli", nil)
	require.Error(t, err)
}

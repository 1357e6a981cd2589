package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edumetrics/lms-kpi-api/internal/models"
	appErrors "github.com/edumetrics/lms-kpi-api/pkg/errors"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("super-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(nil, nil, AuthConfig{
		ClientID:         "analytics-dashboard",
		ClientSecretHash: string(hash),
		JWTSecret:        "test-signing-key",
		TokenTTL:         time.Minute,
		Issuer:           "lms-kpi-api",
	})
}

func TestIssueTokenAndValidate(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.IssueToken(models.TokenRequest{
		ClientID:     "analytics-dashboard",
		ClientSecret: "super-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(60), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "analytics-dashboard", claims.ClientID)
	assert.Equal(t, "lms-kpi-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueTokenRejectsBadCredentials(t *testing.T) {
	svc := newAuthService(t)

	tests := []struct {
		name string
		req  models.TokenRequest
	}{
		{"wrong secret", models.TokenRequest{ClientID: "analytics-dashboard", ClientSecret: "nope"}},
		{"unknown client", models.TokenRequest{ClientID: "intruder", ClientSecret: "super-secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IssueToken(tt.req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
		})
	}
}

func TestIssueTokenValidatesPayload(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.IssueToken(models.TokenRequest{ClientID: "analytics-dashboard"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForgedToken(t *testing.T) {
	svc := newAuthService(t)
	other := NewAuthService(nil, nil, AuthConfig{
		ClientID:  "analytics-dashboard",
		JWTSecret: "different-key",
		TokenTTL:  time.Minute,
	})

	resp, err := svc.IssueToken(models.TokenRequest{
		ClientID:     "analytics-dashboard",
		ClientSecret: "super-secret",
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)
	_, err := svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

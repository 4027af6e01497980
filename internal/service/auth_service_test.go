package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(AuthConfig{Secret: "test-secret", Issuer: "tsi", TTL: time.Hour}, nil)
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	issued, err := svc.IssueToken("ops-bot", models.RoleOperator, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, models.RoleOperator, issued.Role)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops-bot", claims.Subject)
	assert.Equal(t, models.RoleOperator, claims.Role)
	assert.Equal(t, "tsi", claims.Issuer)
}

func TestAuthServiceIssueRejectsBadInput(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.IssueToken("  ", models.RoleAdmin, 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.IssueToken("alice", models.UserRole("ROOT"), 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := newTestAuthService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	issued, err := svc.IssueToken("alice", models.RoleViewer, time.Minute)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsForeignSecretAndIssuer(t *testing.T) {
	svc := newTestAuthService()

	other := NewAuthService(AuthConfig{Secret: "another-secret", Issuer: "tsi"}, nil)
	issued, err := other.IssueToken("alice", models.RoleAdmin, 0)
	require.NoError(t, err)
	_, err = svc.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	foreign := NewAuthService(AuthConfig{Secret: "test-secret", Issuer: "elsewhere"}, nil)
	issued, err = foreign.IssueToken("alice", models.RoleAdmin, 0)
	require.NoError(t, err)
	_, err = svc.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsOtherAlgorithms(t *testing.T) {
	svc := newTestAuthService()
	claims := &models.JWTClaims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tsi",
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

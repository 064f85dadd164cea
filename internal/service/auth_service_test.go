package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "timetable-sync"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	token, expiresAt, err := svc.IssueToken("cron", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cron", claims.Subject)
	assert.Equal(t, models.ScopeSchedule, claims.Scope)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := newTestAuthService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.IssueToken("cron", time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	svc := newTestAuthService()

	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other", Issuer: "timetable-sync"})
	token, _, err := other.IssueToken("cron", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)

	unscoped, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.APIClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", Issuer: "timetable-sync", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(unscoped)
	require.Error(t, err)

	_, _, err = svc.IssueToken("", time.Hour)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

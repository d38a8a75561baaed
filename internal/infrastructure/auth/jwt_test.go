package auth

import (
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Username: "dispatcher",
	}
}

func TestNewJWTService(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:                "test-secret",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	}

	svc := NewJWTService(cfg)

	assert.Equal(t, []byte(cfg.Secret), svc.secret)
	assert.Equal(t, cfg.AccessTokenExpiration, svc.GetAccessTokenExpiration())
	assert.Equal(t, cfg.Issuer, svc.issuer)
}

func TestValidateAccessToken_Success(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	token, expiresAt, err := svc.GenerateAccessToken(input)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	tenantID, err := claims.GetTenantUUID()
	require.NoError(t, err)
	assert.Equal(t, input.TenantID, tenantID)
	userID, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, userID)
	assert.Equal(t, "dispatcher", claims.Username)
	assert.False(t, claims.Superuser)
	assert.False(t, claims.IsPrivileged())
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Greater(t, claims.GetRemainingTTL(), 14*time.Minute)
}

func TestGenerateAccessToken_Superuser(t *testing.T) {
	svc := newTestJWTService()

	token, _, err := svc.GenerateAccessToken(GenerateTokenInput{UserID: uuid.New(), Username: "root", Superuser: true})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Superuser)
	assert.Empty(t, claims.TenantID)
}

func TestGenerateAccessToken_Staff(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()
	input.Staff = true

	token, _, err := svc.GenerateAccessToken(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Staff)
	assert.False(t, claims.Superuser)
	assert.True(t, claims.IsPrivileged())
	assert.True(t, (&Claims{Superuser: true}).IsPrivileged())
}

func TestGenerateAccessToken_RequiresTenantForRegularUsers(t *testing.T) {
	_, _, err := newTestJWTService().GenerateAccessToken(GenerateTokenInput{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrMissingTenantID)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateAccessToken(newTestInput())
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, _, err := newTestJWTService().GenerateAccessToken(newTestInput())
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-32-chars!!", AccessTokenExpiration: time.Minute, Issuer: "test-issuer"})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	token, _, err := newTestJWTService().GenerateAccessToken(newTestInput())
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", AccessTokenExpiration: time.Minute, Issuer: "someone-else"})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_Malformed(t *testing.T) {
	_, err := newTestJWTService().ValidateAccessToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		TenantID:         uuid.NewString(),
		UserID:           uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_MissingClaims(t *testing.T) {
	svc := newTestJWTService()
	sign := func(c *Claims) string {
		c.Issuer = "test-issuer"
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(svc.secret)
		require.NoError(t, err)
		return token
	}

	_, err := svc.ValidateAccessToken(sign(&Claims{TenantID: uuid.NewString()}))
	assert.ErrorIs(t, err, ErrMissingUserID)

	_, err = svc.ValidateAccessToken(sign(&Claims{UserID: uuid.NewString()}))
	assert.ErrorIs(t, err, ErrMissingTenantID)

	_, err = svc.ValidateAccessToken(sign(&Claims{UserID: uuid.NewString(), TenantID: "acme"}))
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

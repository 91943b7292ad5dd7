package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing without revocation
func createTestTokenService(t *testing.T) *TokenServiceImpl {
	t.Helper()
	service, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", testJWTSecret, nil, "test:")
	require.NoError(t, err)
	return service
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		secretKey   string
		expectError bool
	}{
		{name: "valid configuration", ttl: time.Hour, secretKey: testJWTSecret},
		{name: "missing secret key", ttl: time.Hour, secretKey: "", expectError: true},
		{name: "non-positive ttl", ttl: 0, secretKey: testJWTSecret, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(tt.ttl, "iss", "aud", tt.secretKey, nil, "")
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, service)
		})
	}
}

func TestTokenService_GenerateAndValidate(t *testing.T) {
	service := createTestTokenService(t)

	token, expiresAt, err := service.GenerateOperatorToken("ops-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := service.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.OperatorID)
	assert.Equal(t, operatorTokenType, claims.TokenType)
	assert.Len(t, claims.TokenID, 32)

	other, _, err := service.GenerateOperatorToken("ops-1")
	require.NoError(t, err)
	otherClaims, err := service.ValidateToken(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, claims.TokenID, otherClaims.TokenID)

	_, _, err = service.GenerateOperatorToken("")
	assert.Error(t, err)
}

func TestTokenService_ValidateRejects(t *testing.T) {
	service := createTestTokenService(t)
	ctx := context.Background()
	now := time.Now()

	sign := func(claims operatorJWTClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() operatorJWTClaims {
		return operatorJWTClaims{
			TokenType: operatorTokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "ops-1",
				ID:        "abc",
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test-audience"},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	expired := base()
	expired.IssuedAt = jwt.NewNumericDate(now.Add(-2 * time.Hour))
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	_, err := service.ValidateToken(ctx, sign(expired, jwt.SigningMethodHS256, []byte(testJWTSecret)))
	assert.ErrorIs(t, err, ErrTokenExpired)

	wrongType := base()
	wrongType.TokenType = "refresh"
	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := base()
	wrongAudience.Audience = jwt.ClaimStrings{"customers"}
	noSubject := base()
	noSubject.Subject = ""

	invalid := map[string]string{
		"garbage":        "not-a-jwt",
		"wrong secret":   sign(base(), jwt.SigningMethodHS256, []byte("another-secret-another-secret-123")),
		"wrong method":   sign(base(), jwt.SigningMethodHS512, []byte(testJWTSecret)),
		"wrong type":     sign(wrongType, jwt.SigningMethodHS256, []byte(testJWTSecret)),
		"wrong issuer":   sign(wrongIssuer, jwt.SigningMethodHS256, []byte(testJWTSecret)),
		"wrong audience": sign(wrongAudience, jwt.SigningMethodHS256, []byte(testJWTSecret)),
		"no subject":     sign(noSubject, jwt.SigningMethodHS256, []byte(testJWTSecret)),
	}
	for name, token := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := service.ValidateToken(ctx, token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenService_RevocationWithoutRedis(t *testing.T) {
	service := createTestTokenService(t)
	token, _, err := service.GenerateOperatorToken("ops-1")
	require.NoError(t, err)

	assert.Error(t, service.RevokeToken(context.Background(), token))
	assert.False(t, service.IsTokenRevoked(context.Background(), "anything"))
}

// Package services provides external integrations and technical concerns: Graph API executors, media and content generation, tokens
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

const operatorTokenType = "operator"

// TokenService issues and validates operator bearer tokens
type TokenService interface {
	GenerateOperatorToken(operatorID string) (token string, expiresAt time.Time, err error)
	ValidateToken(ctx context.Context, token string) (*OperatorClaims, error)
	RevokeToken(ctx context.Context, token string) error
	IsTokenRevoked(ctx context.Context, tokenID string) bool
}

// OperatorClaims represents the claims in an operator JWT
type OperatorClaims struct {
	OperatorID string    `json:"operator_id"`
	TokenType  string    `json:"token_type"`
	TokenID    string    `json:"jti"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type operatorJWTClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenServiceImpl implements TokenService with HS256 tokens. Revoked token
// ids are kept in Redis until the token would have expired anyway.
type TokenServiceImpl struct {
	accessTokenTTL time.Duration
	secretKey      []byte
	issuer         string
	audience       string
	rc             *redis.Client
	prefix         string
}

// NewTokenService creates a new token service; rc may be nil, which disables revocation
func NewTokenService(accessTokenTTL time.Duration, issuer, audience, secretKey string, rc *redis.Client, prefix string) (*TokenServiceImpl, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if accessTokenTTL <= 0 {
		return nil, fmt.Errorf("access token TTL must be positive")
	}
	return &TokenServiceImpl{
		accessTokenTTL: accessTokenTTL,
		secretKey:      []byte(secretKey),
		issuer:         issuer,
		audience:       audience,
		rc:             rc,
		prefix:         prefix,
	}, nil
}

// GenerateOperatorToken signs an access token for operatorID
func (s *TokenServiceImpl) GenerateOperatorToken(operatorID string) (string, time.Time, error) {
	if operatorID == "" {
		return "", time.Time{}, fmt.Errorf("operator id is required")
	}

	tokenID, err := generateTokenID()
	if err != nil {
		return "", time.Time{}, err
	}

	now := utils.UTCNow()
	expiresAt := now.Add(s.accessTokenTTL)
	claims := operatorJWTClaims{
		TokenType: operatorTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			ID:        tokenID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns claims
func (s *TokenServiceImpl) ValidateToken(ctx context.Context, token string) (*OperatorClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims operatorJWTClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.TokenType != operatorTokenType || claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}

	if s.IsTokenRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}

	return &OperatorClaims{
		OperatorID: claims.Subject,
		TokenType:  claims.TokenType,
		TokenID:    claims.ID,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// RevokeToken adds the token id to the revocation list for the rest of its lifetime
func (s *TokenServiceImpl) RevokeToken(ctx context.Context, token string) error {
	if s.rc == nil {
		return fmt.Errorf("token revocation requires redis")
	}
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.rc.Set(ctx, s.revokedKey(claims.TokenID), "1", ttl).Err()
}

// IsTokenRevoked checks the revocation list. Lookup errors are treated as not revoked.
func (s *TokenServiceImpl) IsTokenRevoked(ctx context.Context, tokenID string) bool {
	if s.rc == nil {
		return false
	}
	n, err := s.rc.Exists(ctx, s.revokedKey(tokenID)).Result()
	return err == nil && n > 0
}

func (s *TokenServiceImpl) revokedKey(tokenID string) string {
	return s.prefix + "revoked_token:" + tokenID
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}

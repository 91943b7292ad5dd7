package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrTokensNotFound      = errors.New("tokens not found")
	ErrTokensNotConfigured = errors.New("tokens not configured")
)

// tokenError carries a user facing message while matching a sentinel with errors.Is
type tokenError struct {
	kind error
	msg  string
}

func (e *tokenError) Error() string { return e.msg }
func (e *tokenError) Unwrap() error { return e.kind }

func tokenErrorf(kind error, format string, args ...any) error {
	return &tokenError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// FacebookCredentials are the decrypted page credentials of an initiative
type FacebookCredentials struct {
	PageID      string
	PageName    string
	AccessToken string
}

// InstagramCredentials are the decrypted business account credentials of an initiative
type InstagramCredentials struct {
	BusinessID  string
	Username    string
	AccessToken string
}

// TokenStatus reports which platforms have usable credentials
type TokenStatus struct {
	Facebook  bool `json:"facebook"`
	Instagram bool `json:"instagram"`
}

// CredentialProvider resolves platform credentials for an initiative
type CredentialProvider interface {
	FacebookCredentials(ctx context.Context, initiativeID string) (FacebookCredentials, error)
	InstagramCredentials(ctx context.Context, initiativeID string) (InstagramCredentials, error)
}

// TokenManager loads encrypted token rows, caches them in Redis and
// decrypts on every read. Plain tokens are never cached.
type TokenManager struct {
	repo     repository.InitiativeTokenRepository
	cipher   *TokenCipher
	rc       *redis.Client
	prefix   string
	cacheTTL time.Duration
	group    singleflight.Group
	logger   *zap.Logger
}

// NewTokenManager creates a token manager; rc may be nil to disable caching
func NewTokenManager(repo repository.InitiativeTokenRepository, cipher *TokenCipher, rc *redis.Client, prefix string, logger *zap.Logger) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		repo:     repo,
		cipher:   cipher,
		rc:       rc,
		prefix:   prefix,
		cacheTTL: utils.TokenCacheTTL,
		logger:   logger.Named("token_manager"),
	}
}

func (m *TokenManager) FacebookCredentials(ctx context.Context, initiativeID string) (FacebookCredentials, error) {
	row, err := m.tokens(ctx, initiativeID)
	if err != nil {
		return FacebookCredentials{}, err
	}

	creds := FacebookCredentials{
		PageID:   deref(row.FBPageID),
		PageName: deref(row.FBPageName),
	}
	if row.FBPageAccessTokenEncrypted != nil {
		creds.AccessToken, err = m.cipher.Decrypt(*row.FBPageAccessTokenEncrypted)
		if err != nil {
			m.logger.Error("Failed to decrypt Facebook page access token", zap.String("initiative_id", initiativeID), zap.Error(err))
			m.dropCached(ctx, initiativeID)
			return FacebookCredentials{}, err
		}
	}
	if creds.PageID == "" || creds.AccessToken == "" {
		return FacebookCredentials{}, tokenErrorf(ErrTokensNotConfigured, "Facebook tokens not configured for initiative %s", initiativeID)
	}
	return creds, nil
}

func (m *TokenManager) InstagramCredentials(ctx context.Context, initiativeID string) (InstagramCredentials, error) {
	row, err := m.tokens(ctx, initiativeID)
	if err != nil {
		return InstagramCredentials{}, err
	}

	creds := InstagramCredentials{
		BusinessID: deref(row.InstaBusinessID),
		Username:   deref(row.InstaUsername),
	}
	if row.InstaAccessTokenEncrypted != nil {
		creds.AccessToken, err = m.cipher.Decrypt(*row.InstaAccessTokenEncrypted)
		if err != nil {
			m.logger.Error("Failed to decrypt Instagram access token", zap.String("initiative_id", initiativeID), zap.Error(err))
			m.dropCached(ctx, initiativeID)
			return InstagramCredentials{}, err
		}
	}
	if creds.BusinessID == "" || creds.AccessToken == "" {
		return InstagramCredentials{}, tokenErrorf(ErrTokensNotConfigured, "Instagram tokens not configured for initiative %s", initiativeID)
	}
	return creds, nil
}

// Status reports which platforms have an encrypted token stored. Lookup
// failures are reported as all false.
func (m *TokenManager) Status(ctx context.Context, initiativeID string) TokenStatus {
	row, err := m.tokens(ctx, initiativeID)
	if err != nil {
		m.logger.Warn("Token validation failed", zap.String("initiative_id", initiativeID), zap.Error(err))
		return TokenStatus{}
	}
	return TokenStatus{
		Facebook:  deref(row.FBPageAccessTokenEncrypted) != "",
		Instagram: deref(row.InstaAccessTokenEncrypted) != "",
	}
}

// ClearCache drops the cached token row of an initiative
func (m *TokenManager) ClearCache(ctx context.Context, initiativeID string) error {
	if m.rc == nil {
		return nil
	}
	return m.rc.Del(ctx, m.cacheKey(initiativeID)).Err()
}

// dropCached evicts a row that failed to decrypt so the next read reloads it
// from the database, e.g. after the stored token was re-encrypted.
func (m *TokenManager) dropCached(ctx context.Context, initiativeID string) {
	if err := m.ClearCache(ctx, initiativeID); err != nil {
		m.logger.Warn("Failed to drop cached tokens", zap.String("initiative_id", initiativeID), zap.Error(err))
	}
}

func (m *TokenManager) tokens(ctx context.Context, initiativeID string) (*models.InitiativeToken, error) {
	if row := m.cached(ctx, initiativeID); row != nil {
		return row, nil
	}

	v, err, _ := m.group.Do(initiativeID, func() (any, error) {
		return m.load(ctx, initiativeID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.InitiativeToken), nil
}

func (m *TokenManager) load(ctx context.Context, initiativeID string) (*models.InitiativeToken, error) {
	id, err := utils.ParseUUID(initiativeID)
	if err != nil {
		return nil, tokenErrorf(ErrTokensNotFound, "No tokens found for initiative %s", initiativeID)
	}

	row, err := m.repo.ByInitiativeID(ctx, id)
	if err != nil {
		m.logger.Error("Failed to fetch tokens from database", zap.String("initiative_id", initiativeID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch tokens: %w", err)
	}
	if row == nil {
		return nil, tokenErrorf(ErrTokensNotFound, "No tokens found for initiative %s", initiativeID)
	}

	if m.rc != nil {
		if raw, err := json.Marshal(newCachedTokenRow(row)); err == nil {
			if err := m.rc.Set(ctx, m.cacheKey(initiativeID), raw, m.cacheTTL).Err(); err != nil {
				m.logger.Warn("Failed to cache tokens", zap.String("initiative_id", initiativeID), zap.Error(err))
			}
		}
	}
	return row, nil
}

func (m *TokenManager) cached(ctx context.Context, initiativeID string) *models.InitiativeToken {
	if m.rc == nil {
		return nil
	}
	raw, err := m.rc.Get(ctx, m.cacheKey(initiativeID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.logger.Warn("Token cache read failed", zap.String("initiative_id", initiativeID), zap.Error(err))
		}
		return nil
	}
	var row cachedTokenRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil
	}
	return row.model()
}

func (m *TokenManager) cacheKey(initiativeID string) string {
	return m.prefix + "tokens:" + initiativeID
}

// cachedTokenRow mirrors InitiativeToken including the fields hidden from JSON
type cachedTokenRow struct {
	FBPageID                   *string `json:"fb_page_id"`
	FBPageName                 *string `json:"fb_page_name"`
	FBPageAccessTokenEncrypted *string `json:"fb_page_access_token_encrypted"`
	InstaBusinessID            *string `json:"insta_business_id"`
	InstaUsername              *string `json:"insta_username"`
	InstaAccessTokenEncrypted  *string `json:"insta_access_token_encrypted"`
}

func newCachedTokenRow(t *models.InitiativeToken) cachedTokenRow {
	return cachedTokenRow{
		FBPageID:                   t.FBPageID,
		FBPageName:                 t.FBPageName,
		FBPageAccessTokenEncrypted: t.FBPageAccessTokenEncrypted,
		InstaBusinessID:            t.InstaBusinessID,
		InstaUsername:              t.InstaUsername,
		InstaAccessTokenEncrypted:  t.InstaAccessTokenEncrypted,
	}
}

func (r cachedTokenRow) model() *models.InitiativeToken {
	return &models.InitiativeToken{
		FBPageID:                   r.FBPageID,
		FBPageName:                 r.FBPageName,
		FBPageAccessTokenEncrypted: r.FBPageAccessTokenEncrypted,
		InstaBusinessID:            r.InstaBusinessID,
		InstaUsername:              r.InstaUsername,
		InstaAccessTokenEncrypted:  r.InstaAccessTokenEncrypted,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *ProductionConfig {
	return &ProductionConfig{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Name: "susanoo", User: "postgres", Password: "secret"},
		Server:   ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Security: SecurityConfig{EncryptionKey: "short-key"},
		JWT: JWTConfig{
			SecretKey:      "0123456789abcdef0123456789abcdef",
			AccessTokenTTL: time.Hour,
			Issuer:         "susanoo",
			Audience:       "susanoo-operators",
		},
		Logging: LoggingConfig{Level: "info"},
		Cache:   CacheConfig{Enabled: true, RedisURL: "redis://localhost:6379"},
		Quota: QuotaConfig{
			MaxFacebookPostsPerAdSet:  4,
			MaxInstagramPostsPerAdSet: 4,
			MaxPhotosPerAdSet:         10,
			MaxVideosPerAdSet:         2,
			MaxPhotosPerPost:          10,
			MaxVideosPerPost:          1,
		},
		Meta:     MetaConfig{APIVersion: "v23.0", PollInterval: 5 * time.Second, MaxPolls: 60},
		Media:    MediaConfig{GeminiAPIKey: "key", PublicBaseURL: "https://cdn.example.com"},
		Pipeline: PipelineConfig{GenerationAttempts: 3},
	}
}

func TestValidateProductionConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProductionConfig)
		wantErr []string
	}{
		{
			name:   "valid",
			mutate: func(*ProductionConfig) {},
		},
		{
			name: "missing database password and short jwt secret",
			mutate: func(c *ProductionConfig) {
				c.Database.Password = ""
				c.JWT.SecretKey = "short"
			},
			wantErr: []string{"DB_PASSWORD is required", "JWT_SECRET_KEY must be at least 32 characters long"},
		},
		{
			name:    "negative quota",
			mutate:  func(c *ProductionConfig) { c.Quota.MaxVideosPerAdSet = -1 },
			wantErr: []string{"MAX_VIDEOS_PER_AD_SET must not be negative"},
		},
		{
			name:    "zero polls",
			mutate:  func(c *ProductionConfig) { c.Meta.MaxPolls = 0 },
			wantErr: []string{"META_MAX_POLLS must be positive"},
		},
		{
			name: "scheduler without initiatives",
			mutate: func(c *ProductionConfig) {
				c.Scheduler.Enabled = true
				c.Scheduler.Interval = time.Hour
			},
			wantErr: []string{"SCHEDULER_INITIATIVE_IDS is required when scheduler is enabled"},
		},
		{
			name:    "bad log level",
			mutate:  func(c *ProductionConfig) { c.Logging.Level = "trace" },
			wantErr: []string{"LOG_LEVEL must be one of"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateProductionConfig(cfg)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration validation failed")
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SUSANOO_TEST_INT", "42")
	t.Setenv("SUSANOO_TEST_BAD_INT", "forty")
	t.Setenv("SUSANOO_TEST_BOOL", "true")
	t.Setenv("SUSANOO_TEST_DURATION", "90s")
	t.Setenv("SUSANOO_TEST_SLICE", " a, b ,,c ")

	assert.Equal(t, 42, getEnvInt("SUSANOO_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("SUSANOO_TEST_BAD_INT", 1))
	assert.True(t, getEnvBool("SUSANOO_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, getEnvDuration("SUSANOO_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvStringSlice("SUSANOO_TEST_SLICE", nil))
	assert.Equal(t, "fallback", getEnvString("SUSANOO_TEST_MISSING", "fallback"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nSUSANOO_FILE_A=\"quoted\"\nSUSANOO_FILE_B=plain\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SUSANOO_FILE_B", "from-env")
	t.Setenv("SUSANOO_FILE_A", "")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "quoted", os.Getenv("SUSANOO_FILE_A"))
	assert.Equal(t, "from-env", os.Getenv("SUSANOO_FILE_B"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestMetaConfigGraphURLs(t *testing.T) {
	m := MetaConfig{
		APIVersion:       "v23.0",
		FacebookBaseURL:  "https://graph.facebook.com/",
		InstagramBaseURL: "https://graph.instagram.com",
	}
	assert.Equal(t, "https://graph.facebook.com/v23.0", m.FacebookGraphURL())
	assert.Equal(t, "https://graph.instagram.com/v23.0", m.InstagramGraphURL())
}

// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Security  SecurityConfig  `json:"security"`
	JWT       JWTConfig       `json:"jwt"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Cache     CacheConfig     `json:"cache"`
	Quota     QuotaConfig     `json:"quota"`
	Meta      MetaConfig      `json:"meta"`
	Media     MediaConfig     `json:"media"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
}

type SecurityConfig struct {
	// EncryptionKey decrypts platform tokens stored in initiative_tokens.
	// A 44 character value is used as a Fernet key directly, anything shorter is stretched.
	EncryptionKey string `json:"-"`

	// CORS
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per minute
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

type JWTConfig struct {
	SecretKey      string        `json:"-"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

type LoggingConfig struct {
	Level            string `json:"level"`  // debug, info, warn, error
	Format           string `json:"format"` // json, console
	Output           string `json:"output"` // stdout, file, both
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"` // MB
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"` // days
	Compress         bool   `json:"compress"`
	EnableCaller     bool   `json:"enable_caller"`
	EnableStacktrace bool   `json:"enable_stacktrace"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

// QuotaConfig holds the per ad set publishing ceilings. Loaded once per process.
type QuotaConfig struct {
	MaxFacebookPostsPerAdSet  int `json:"max_facebook_posts_per_ad_set"`
	MaxInstagramPostsPerAdSet int `json:"max_instagram_posts_per_ad_set"`
	MaxPhotosPerAdSet         int `json:"max_photos_per_ad_set"`
	MaxVideosPerAdSet         int `json:"max_videos_per_ad_set"`
	MaxPhotosPerPost          int `json:"max_photos_per_post"`
	MaxVideosPerPost          int `json:"max_videos_per_post"`
}

type MetaConfig struct {
	APIVersion       string        `json:"api_version"`
	FacebookBaseURL  string        `json:"facebook_base_url"`
	InstagramBaseURL string        `json:"instagram_base_url"`
	PollInterval     time.Duration `json:"poll_interval"`
	MaxPolls         int           `json:"max_polls"`
	HTTPTimeout      time.Duration `json:"http_timeout"`
}

type MediaConfig struct {
	GeminiAPIKey        string `json:"-"`
	ImageModel          string `json:"image_model"`
	VideoModel          string `json:"video_model"`
	TextModel           string `json:"text_model"`
	StorageDir          string `json:"storage_dir"`
	PublicBaseURL       string `json:"public_base_url"`
	MaxImageWidth       int    `json:"max_image_width"`
	PlaceholderFallback bool   `json:"placeholder_fallback"`
}

type PipelineConfig struct {
	GenerationAttempts int           `json:"generation_attempts"`
	PostsPerAdSet      int           `json:"posts_per_ad_set"`
	MaxHashtags        int           `json:"max_hashtags"`
	MaxPostLength      int           `json:"max_post_length"`
	ReportDir          string        `json:"report_dir"`
	LockTTL            time.Duration `json:"lock_ttl"`
}

type SchedulerConfig struct {
	Enabled       bool          `json:"enabled"`
	Interval      time.Duration `json:"interval"`
	InitiativeIDs []string      `json:"initiative_ids"`
	RunTimeout    time.Duration `json:"run_timeout"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "susanoo"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Minute), // synchronous runs wait on video generation
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
		},
		Security: SecurityConfig{
			EncryptionKey:   getEnvString("ENCRYPTION_KEY", ""),
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:  getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:  getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			GlobalRateLimit: getEnvInt("GLOBAL_RATE_LIMIT", 300),
			RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "susanoo"),
			Audience:       getEnvString("JWT_AUDIENCE", "susanoo-operators"),
		},
		Logging: LoggingConfig{
			Level:            getEnvString("LOG_LEVEL", "info"),
			Format:           getEnvString("LOG_FORMAT", "json"),
			Output:           getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:         getEnvString("LOG_FILE_PATH", "/var/log/susanoo/app.log"),
			MaxSize:          getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:           getEnvInt("LOG_MAX_AGE", 30),
			Compress:         getEnvBool("LOG_COMPRESS", true),
			EnableCaller:     getEnvBool("LOG_ENABLE_CALLER", true),
			EnableStacktrace: getEnvBool("LOG_ENABLE_STACKTRACE", false),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", true),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "susanoo:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Quota: QuotaConfig{
			MaxFacebookPostsPerAdSet:  getEnvInt("MAX_FACEBOOK_POSTS_PER_AD_SET", 4),
			MaxInstagramPostsPerAdSet: getEnvInt("MAX_INSTAGRAM_POSTS_PER_AD_SET", 4),
			MaxPhotosPerAdSet:         getEnvInt("MAX_PHOTOS_PER_AD_SET", 10),
			MaxVideosPerAdSet:         getEnvInt("MAX_VIDEOS_PER_AD_SET", 2),
			MaxPhotosPerPost:          getEnvInt("MAX_PHOTOS_PER_POST", 10),
			MaxVideosPerPost:          getEnvInt("MAX_VIDEOS_PER_POST", 1),
		},
		Meta: MetaConfig{
			APIVersion:       getEnvString("META_API_VERSION", "v23.0"),
			FacebookBaseURL:  getEnvString("META_FACEBOOK_BASE_URL", "https://graph.facebook.com"),
			InstagramBaseURL: getEnvString("META_INSTAGRAM_BASE_URL", "https://graph.instagram.com"),
			PollInterval:     getEnvDuration("META_POLL_INTERVAL", 5*time.Second),
			MaxPolls:         getEnvInt("META_MAX_POLLS", 60),
			HTTPTimeout:      getEnvDuration("META_HTTP_TIMEOUT", 60*time.Second),
		},
		Media: MediaConfig{
			GeminiAPIKey:        getEnvString("GEMINI_API_KEY", ""),
			ImageModel:          getEnvString("MEDIA_IMAGE_MODEL", "imagen-4.0-generate-001"),
			VideoModel:          getEnvString("MEDIA_VIDEO_MODEL", "veo-3.0-fast-generate-001"),
			TextModel:           getEnvString("MEDIA_TEXT_MODEL", "gemini-2.5-flash"),
			StorageDir:          getEnvString("MEDIA_STORAGE_DIR", "/var/lib/susanoo/media"),
			PublicBaseURL:       getEnvString("MEDIA_PUBLIC_BASE_URL", ""),
			MaxImageWidth:       getEnvInt("MEDIA_MAX_IMAGE_WIDTH", 1080),
			PlaceholderFallback: getEnvBool("MEDIA_PLACEHOLDER_FALLBACK", false),
		},
		Pipeline: PipelineConfig{
			GenerationAttempts: getEnvInt("PIPELINE_GENERATION_ATTEMPTS", 3),
			PostsPerAdSet:      getEnvInt("PIPELINE_POSTS_PER_AD_SET", 4),
			MaxHashtags:        getEnvInt("PIPELINE_MAX_HASHTAGS", 30),
			MaxPostLength:      getEnvInt("PIPELINE_MAX_POST_LENGTH", 2200),
			ReportDir:          getEnvString("PIPELINE_REPORT_DIR", ""),
			LockTTL:            getEnvDuration("PIPELINE_LOCK_TTL", 2*time.Hour),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getEnvBool("SCHEDULER_ENABLED", false),
			Interval:      getEnvDuration("SCHEDULER_INTERVAL", 6*time.Hour),
			InitiativeIDs: getEnvStringSlice("SCHEDULER_INITIATIVE_IDS", []string{}),
			RunTimeout:    getEnvDuration("SCHEDULER_RUN_TIMEOUT", 2*time.Hour),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FacebookGraphURL returns the versioned Facebook Graph API root
func (m MetaConfig) FacebookGraphURL() string {
	return strings.TrimRight(m.FacebookBaseURL, "/") + "/" + m.APIVersion
}

// InstagramGraphURL returns the versioned Instagram Graph API root
func (m MetaConfig) InstagramGraphURL() string {
	return strings.TrimRight(m.InstagramBaseURL, "/") + "/" + m.APIVersion
}

// loadEnvFile loads environment variables from an env file if it exists
func loadEnvFile(envFile string) error {
	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 &&
			((strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
				(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`))) {
			value = value[1 : len(value)-1]
		}

		// Real environment wins over the file
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate JWT configuration
	if len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.Issuer == "" {
		errors = append(errors, "JWT_ISSUER is required")
	}
	if cfg.JWT.Audience == "" {
		errors = append(errors, "JWT_AUDIENCE is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	if cfg.Security.EncryptionKey == "" {
		errors = append(errors, "ENCRYPTION_KEY is required")
	}

	// Validate quota configuration
	quotas := map[string]int{
		"MAX_FACEBOOK_POSTS_PER_AD_SET":  cfg.Quota.MaxFacebookPostsPerAdSet,
		"MAX_INSTAGRAM_POSTS_PER_AD_SET": cfg.Quota.MaxInstagramPostsPerAdSet,
		"MAX_PHOTOS_PER_AD_SET":          cfg.Quota.MaxPhotosPerAdSet,
		"MAX_VIDEOS_PER_AD_SET":          cfg.Quota.MaxVideosPerAdSet,
		"MAX_PHOTOS_PER_POST":            cfg.Quota.MaxPhotosPerPost,
		"MAX_VIDEOS_PER_POST":            cfg.Quota.MaxVideosPerPost,
	}
	names := make([]string, 0, len(quotas))
	for name := range quotas {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if quotas[name] < 0 {
			errors = append(errors, fmt.Sprintf("%s must not be negative", name))
		}
	}

	// Validate Meta configuration
	if cfg.Meta.PollInterval <= 0 {
		errors = append(errors, "META_POLL_INTERVAL must be positive")
	}
	if cfg.Meta.MaxPolls <= 0 {
		errors = append(errors, "META_MAX_POLLS must be positive")
	}
	if cfg.Meta.APIVersion == "" {
		errors = append(errors, "META_API_VERSION is required")
	}

	// Validate media configuration
	if cfg.Media.GeminiAPIKey == "" {
		errors = append(errors, "GEMINI_API_KEY is required")
	}
	if cfg.Media.PublicBaseURL == "" {
		errors = append(errors, "MEDIA_PUBLIC_BASE_URL is required")
	}

	if cfg.Pipeline.GenerationAttempts <= 0 {
		errors = append(errors, "PIPELINE_GENERATION_ATTEMPTS must be positive")
	}

	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.Interval <= 0 {
			errors = append(errors, "SCHEDULER_INTERVAL must be positive when scheduler is enabled")
		}
		if len(cfg.Scheduler.InitiativeIDs) == 0 {
			errors = append(errors, "SCHEDULER_INITIATIVE_IDS is required when scheduler is enabled")
		}
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, cfg.Logging.Level) {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Package main provides the main entry point for the Susanoo content pipeline
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Susanoo/app/handlers"
	"github.com/amirphl/Susanoo/app/middleware"
	"github.com/amirphl/Susanoo/app/router"
	"github.com/amirphl/Susanoo/app/scheduler"
	"github.com/amirphl/Susanoo/app/services"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	issueToken := flag.String("issue-token", "", "print an operator access token for the given operator id and exit")
	flag.Parse()

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *issueToken != "" {
		if err := printOperatorToken(cfg, *issueToken); err != nil {
			logger.Fatal("Failed to issue operator token", zap.Error(err))
		}
		return
	}

	logger.Info("Starting Susanoo content pipeline")

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully")

	// Stop background workers first so no run starts mid-shutdown
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// printOperatorToken signs a token without touching the database. Revocation
// still needs Redis, so tokens issued here can be revoked later.
func printOperatorToken(cfg *config.ProductionConfig, operatorID string) error {
	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey, nil, cfg.Cache.RedisPrefix)
	if err != nil {
		return err
	}
	token, expiresAt, err := tokenService.GenerateOperatorToken(operatorID)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n# expires at %s\n", token, expiresAt.Format(time.RFC3339))
	return nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

// initializeCache returns nil when the cache is disabled
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		logger.Warn("Redis disabled: runs are not locked and token revocation is off")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis. The returned function stops it.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()
	ctx := context.Background()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(ctx, rc, 0, logger))
	}

	// Repositories
	initiativeRepo := repository.NewInitiativeRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	adSetRepo := repository.NewAdSetRepository(db)
	postRepo := repository.NewPostRepository(db)
	tokenRepo := repository.NewInitiativeTokenRepository(db)
	mediaFileRepo := repository.NewMediaFileRepository(db)

	// Platform credentials
	cipher, err := services.NewTokenCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token cipher: %w", err)
	}
	tokenManager := services.NewTokenManager(tokenRepo, cipher, rc, cfg.Cache.RedisPrefix, logger)

	// Graph API
	httpClient := &http.Client{Timeout: cfg.Meta.HTTPTimeout}
	facebookGraph := services.NewGraphClient(services.FacebookGraph(cfg.Meta.FacebookGraphURL()), httpClient)
	instagramGraph := services.NewGraphClient(services.InstagramGraph(cfg.Meta.InstagramGraphURL()), httpClient)
	poller := services.NewPoller(cfg.Meta.PollInterval, cfg.Meta.MaxPolls)

	// Media
	backend, err := services.NewGenAIBackend(ctx, cfg.Media.GeminiAPIKey, cfg.Media.ImageModel, cfg.Media.VideoModel, poller)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media backend: %w", err)
	}
	storage := services.NewMediaStorage(cfg.Media.StorageDir, cfg.Media.PublicBaseURL, cfg.Media.MaxImageWidth)
	mediaService := services.NewMediaService(backend, storage, mediaFileRepo, cfg.Media.PlaceholderFallback, logger)

	// Executors and orchestrator
	executors := []services.PlatformExecutor{
		services.NewFacebookExecutor(facebookGraph, tokenManager, mediaService, poller, logger),
		services.NewInstagramExecutor(instagramGraph, tokenManager, mediaService, poller, logger),
	}
	orchestrator := businessflow.NewPostingOrchestrator(executors, logger)

	// Content generation
	textModel, err := services.NewGenAITextModel(ctx, cfg.Media.GeminiAPIKey, cfg.Media.TextModel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text model: %w", err)
	}
	generator := services.NewPostGenerator(textModel, cfg.Pipeline.MaxHashtags, cfg.Pipeline.MaxPostLength, logger)

	loader := businessflow.NewInitiativeLoader(initiativeRepo, campaignRepo, adSetRepo, postRepo, logger)

	var reporter businessflow.RunReporter
	if cfg.Pipeline.ReportDir != "" {
		reporter = businessflow.NewXLSXRunReporter(cfg.Pipeline.ReportDir, logger)
	}

	pipeline := businessflow.NewContentPipelineFlow(
		loader,
		generator,
		orchestrator,
		postRepo,
		businessflow.QuotaLimitsFromConfig(cfg.Quota),
		cfg.Pipeline,
		rc,
		&cfg.Cache,
		reporter,
		tokenManager,
		logger,
	)

	// Operator API
	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey, rc, cfg.Cache.RedisPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Info("Token service initialized", zap.String("issuer", cfg.JWT.Issuer), zap.String("audience", cfg.JWT.Audience))

	pipelineHandler := handlers.NewPipelineHandler(pipeline, cfg.Scheduler.RunTimeout, logger)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	appRouter := router.NewFiberRouter(pipelineHandler, authMiddleware, cfg, logger)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewContentScheduler(pipeline, cfg.Scheduler, logger)
		stopFuncs = append(stopFuncs, sched.Start(ctx))
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}

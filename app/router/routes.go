// Package router provides HTTP routing, middleware configuration, and server setup for the operator API
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/handlers"
	"github.com/amirphl/Susanoo/app/middleware"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	healthPath = "/api/v1/health"

	// corsMaxAge is the maximum age for CORS preflight requests (24 hours)
	corsMaxAge = 86400
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	pipelineHandler handlers.PipelineHandlerInterface
	authMiddleware  *middleware.AuthMiddleware
	serverConfig    config.ServerConfig
	securityConfig  config.SecurityConfig
	metricsConfig   config.MetricsConfig
	logger          *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	pipelineHandler handlers.PipelineHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.ProductionConfig,
	logger *zap.Logger,
) *FiberRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &FiberRouter{
		pipelineHandler: pipelineHandler,
		authMiddleware:  authMiddleware,
		serverConfig:    cfg.Server,
		securityConfig:  cfg.Security,
		metricsConfig:   cfg.Metrics,
		logger:          logger.Named("http"),
	}

	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1024 * 1024
	}
	r.app = fiber.New(fiber.Config{
		AppName:      "Susanoo Operator API",
		ServerHeader: "Susanoo",
		ErrorHandler: r.errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		// runs are synchronous, the write deadline must outlive the longest run
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.metricsConfig.Enabled || r.serverConfig.EnableMetrics {
		path := r.metricsConfig.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting, no auth)
	api.Get("/health", r.healthCheck)

	rateLimit := r.securityConfig.GlobalRateLimit
	if rateLimit <= 0 {
		rateLimit = 120
	}
	window := r.securityConfig.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	api.Use(limiter.New(limiter.Config{
		Max:        rateLimit,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	protected := api.Group("", r.authMiddleware.OperatorAuthenticate())

	initiatives := protected.Group("/initiatives")
	initiatives.Post("/:id/runs", r.pipelineHandler.TriggerRun)
	initiatives.Get("/:id/quota", r.pipelineHandler.QuotaPreview)

	adSets := protected.Group("/ad-sets")
	adSets.Get("/:id/posts", r.pipelineHandler.ListAdSetPosts)

	r.app.Use(r.notFoundHandler)
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "no-referrer",
		CrossOriginResourcePolicy: "same-origin",
		XDNSPrefetchControl:       "off",
		XPermittedCrossDomain:     "none",
	}))

	if len(r.securityConfig.AllowedOrigins) > 0 {
		methods := r.securityConfig.AllowedMethods
		if len(methods) == 0 {
			methods = []string{"GET", "POST", "OPTIONS"}
		}
		headers := r.securityConfig.AllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
		}
		r.app.Use(cors.New(cors.Config{
			AllowOrigins:  r.securityConfig.AllowedOrigins,
			AllowMethods:  methods,
			AllowHeaders:  headers,
			ExposeHeaders: []string{"X-Request-ID"},
			MaxAge:        corsMaxAge,
		}))
	}

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	r.app.Use(middleware.Metrics())

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic while serving request",
				zap.Any("panic", e),
				zap.Any("request_id", c.Locals("requestid")),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "susanoo",
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	r.logger.Error("Request failed", zap.Int("status", code), zap.String("path", c.Path()), zap.Error(err))

	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"
	if code < fiber.StatusInternalServerError {
		message = err.Error()
		errCode = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(statusText(code)), " ", "_"))
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

func statusText(code int) string {
	if msg := fiber.NewError(code).Message; msg != "" {
		return msg
	}
	return "error"
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

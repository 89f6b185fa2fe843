package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-msgqueue/internal/api/handlers"
	"github.com/welldanyogia/webrana-msgqueue/internal/api/middleware"
	"github.com/welldanyogia/webrana-msgqueue/internal/cache"
	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/delivery"
	"github.com/welldanyogia/webrana-msgqueue/internal/logger"
	"github.com/welldanyogia/webrana-msgqueue/internal/queue"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Queue      *queue.Queue
	Driver     *delivery.Driver
	Deliveries cache.DeliveryLog
	Checks     []handlers.Check
	Logger     *slog.Logger
	Security   *logger.SecurityLogger
	// APIKey guards /api; empty disables authentication
	APIKey    string
	RateLimit config.RateLimitConfig
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	e.Use(middleware.Recover())
	e.Use(middleware.NoStore())
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		e.Use(middleware.RateLimiter(limiter, log))
	}
	e.Use(middleware.RequestLogger(log))

	driver := cfg.Driver
	if driver == nil {
		driver = delivery.NewDriver(cfg.Queue, log)
	}

	healthHandler := handlers.NewHealthHandler(cfg.Checks...)
	messageHandler := handlers.NewMessageHandler(cfg.Queue, cfg.Deliveries)
	attachmentHandler := handlers.NewAttachmentHandler(cfg.Queue)
	statsHandler := handlers.NewStatsHandler(cfg.Queue, driver)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.Security))

	messages := api.Group("/messages")
	messages.POST("", messageHandler.Create)
	messages.GET("", messageHandler.List)
	messages.GET("/:id", messageHandler.Get)
	messages.DELETE("/:id", messageHandler.Delete)
	messages.POST("/:id/send", messageHandler.Send)
	messages.GET("/:id/attachments", attachmentHandler.List)
	messages.GET("/:id/attachments/:index", attachmentHandler.Download)

	api.GET("/queue/stats", statsHandler.Stats)

	return e
}

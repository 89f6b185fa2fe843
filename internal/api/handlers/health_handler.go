package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/welldanyogia/webrana-msgqueue/internal/database"
)

// Check probes one dependency of the service
type Check struct {
	Name string
	Ping func(ctx context.Context) error
	// Required checks gate readiness; the others only show up in /health
	Required bool
}

// DatabaseCheck is the required check of the queue database
func DatabaseCheck(db *gorm.DB) Check {
	return Check{
		Name:     "database",
		Required: true,
		Ping: func(ctx context.Context) error {
			return database.Ping(db)
		},
	}
}

// RedisCheck reports the delivery log store
func RedisCheck(rdb *redis.Client) Check {
	return Check{
		Name: "redis",
		Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	checks []Check
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	services := make(map[string]string, len(h.checks))
	status := "healthy"

	for _, check := range h.checks {
		if err := check.Ping(c.Request().Context()); err != nil {
			services[check.Name] = "unhealthy"
			status = "unhealthy"
			continue
		}
		services[check.Name] = "healthy"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	for _, check := range h.checks {
		if !check.Required {
			continue
		}
		if err := check.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": check.Name + " ping failed",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}

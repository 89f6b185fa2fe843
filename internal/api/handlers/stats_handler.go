package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-msgqueue/internal/api/response"
	"github.com/welldanyogia/webrana-msgqueue/internal/delivery"
	"github.com/welldanyogia/webrana-msgqueue/internal/queue"
	"github.com/welldanyogia/webrana-msgqueue/internal/repository"
)

// StatsHandler reports queue counters
type StatsHandler struct {
	queue  *queue.Queue
	driver *delivery.Driver
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(q *queue.Queue, driver *delivery.Driver) *StatsHandler {
	return &StatsHandler{queue: q, driver: driver}
}

// StatsResponse holds the queue counters
type StatsResponse struct {
	Total       int64 `json:"total"`
	Eligible    int64 `json:"eligible"`
	MaxAttempts int   `json:"max_attempts"`
}

// Stats handles GET /api/queue/stats. Eligible counts the messages the next
// unforced delivery pass would select.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	total, err := h.queue.CountMatching(ctx, repository.Filter{})
	if err != nil {
		return response.InternalError(c, "failed to count messages")
	}

	eligible, err := h.queue.CountMatching(ctx, h.driver.Filter(delivery.Options{}))
	if err != nil {
		return response.InternalError(c, "failed to count messages")
	}

	return response.Success(c, StatsResponse{
		Total:       total,
		Eligible:    eligible,
		MaxAttempts: h.driver.MaxAttempts(delivery.Options{}),
	})
}

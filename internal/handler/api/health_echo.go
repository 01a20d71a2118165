package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "SigDerive/internal/domain/models"
	xhttp "SigDerive/pkg/http"
	xlogger "SigDerive/pkg/logger"
)

// Pinger is anything whose liveness the health endpoint reports.
type Pinger interface {
	Health(ctx context.Context) error
}

type HealthEchoHandler struct {
	logger  *xlogger.Logger
	store   Pinger
	service string
	version string
}

func NewHealthEchoHandler(logger *xlogger.Logger, store Pinger, service, version string) *HealthEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HealthEchoHandler{logger: logger, store: store, service: service, version: version}
}

func (h *HealthEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// Health pings the time-series store and answers 503 when it is unreachable.
func (h *HealthEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	res := models.HealthResponse{
		Status:    "ok",
		Service:   h.service,
		Version:   h.version,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := h.store.Health(ctx); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		res.Status = "error"
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, res)
	}
	return xhttp.SuccessResponse(c, res)
}

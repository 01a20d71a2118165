package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	"SigDerive/internal/service/metrics"
	"SigDerive/internal/service/ratelimit"
	"SigDerive/internal/services/derived"
	"SigDerive/internal/services/formula"
	"SigDerive/internal/usecase"
	xhttp "SigDerive/pkg/http"
	xlogger "SigDerive/pkg/logger"
)

// DerivedEchoHandler serves the derived signal API.
type DerivedEchoHandler struct {
	logger   *xlogger.Logger
	eval     *usecase.DerivedSignalUseCase
	registry *usecase.RegistryUseCase
	rl       *ratelimit.Limiter
}

// NewDerivedEchoHandler creates the handler. rl may be nil to disable rate limiting.
func NewDerivedEchoHandler(logger *xlogger.Logger, eval *usecase.DerivedSignalUseCase, registry *usecase.RegistryUseCase, rl *ratelimit.Limiter) *DerivedEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	metrics.Register()
	return &DerivedEchoHandler{logger: logger, eval: eval, registry: registry, rl: rl}
}

func (h *DerivedEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/analytics/derived")
	g.POST("/evaluate", h.Evaluate, h.rateLimit("evaluate"))
	g.POST("/signals", h.CreateSignal)
	g.GET("/signals", h.ListSignals)
	g.GET("/signals/:id", h.GetSignal)
	g.DELETE("/signals/:id", h.DeleteSignal)
	g.POST("/signals/:id/evaluate", h.EvaluateSignal, h.rateLimit("evaluate_saved"))
}

func (h *DerivedEchoHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.Observe("evaluate", start, "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	points, err := h.eval.Evaluate(c.Request().Context(), usecase.EvaluateParams{
		Formula:  req.Formula,
		Channels: req.Channels,
		StartMs:  req.StartTime,
		EndMs:    req.EndTime,
	})
	if err != nil {
		return h.fail(c, "evaluate", start, err)
	}
	metrics.Observe("evaluate", start, "")
	return xhttp.SuccessResponse(c, models.EvaluateResponse{
		Data:     nonNil(points),
		Formula:  req.Formula,
		Channels: req.Channels,
	})
}

func (h *DerivedEchoHandler) CreateSignal(c echo.Context) error {
	start := time.Now()
	req := &models.CreateSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.Observe("create_signal", start, "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	s, err := h.registry.Create(c.Request().Context(), usecase.CreateSignalParams{
		ID:             req.ID,
		Name:           req.Name,
		Formula:        req.Formula,
		Units:          req.Units,
		Description:    req.Description,
		SourceChannels: req.SourceChannels,
	})
	if err != nil {
		return h.fail(c, "create_signal", start, err)
	}
	metrics.Observe("create_signal", start, "")
	return xhttp.CreatedResponse(c, s)
}

func (h *DerivedEchoHandler) ListSignals(c echo.Context) error {
	start := time.Now()
	list, err := h.registry.List(c.Request().Context())
	if err != nil {
		return h.fail(c, "list_signals", start, err)
	}
	out := make([]models.DerivedSignal, 0, len(list))
	for _, s := range list {
		out = append(out, *s)
	}
	metrics.Observe("list_signals", start, "")
	return xhttp.SuccessResponse(c, models.SignalListResponse{Signals: out})
}

func (h *DerivedEchoHandler) GetSignal(c echo.Context) error {
	start := time.Now()
	s, err := h.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "get_signal", start, err)
	}
	metrics.Observe("get_signal", start, "")
	return xhttp.SuccessResponse(c, s)
}

func (h *DerivedEchoHandler) DeleteSignal(c echo.Context) error {
	start := time.Now()
	if err := h.registry.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, "delete_signal", start, err)
	}
	metrics.Observe("delete_signal", start, "")
	return xhttp.NoContentResponse(c)
}

func (h *DerivedEchoHandler) EvaluateSignal(c echo.Context) error {
	start := time.Now()
	req := &models.EvaluateSavedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.Observe("evaluate_saved", start, "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	s, points, err := h.registry.EvaluateSaved(c.Request().Context(), req.ID, req.StartTime, req.EndTime)
	if err != nil {
		return h.fail(c, "evaluate_saved", start, err)
	}
	metrics.Observe("evaluate_saved", start, "")
	return xhttp.SuccessResponse(c, models.EvaluateResponse{
		Data:     nonNil(points),
		Formula:  s.Formula,
		Channels: s.SourceChannels,
	})
}

func (h *DerivedEchoHandler) fail(c echo.Context, endpoint string, start time.Time, err error) error {
	appErr := toAppError(err)
	metrics.Observe(endpoint, start, appErr.Code)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("derived request failed",
			xlogger.String("endpoint", endpoint),
			xlogger.Error(err),
		)
	} else {
		h.logger.Debug("derived request rejected",
			xlogger.String("endpoint", endpoint),
			xlogger.String("code", appErr.Code),
			xlogger.Error(err),
		)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *DerivedEchoHandler) rateLimit(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.rl == nil || h.rl.Allow(c.RealIP()+":"+endpoint) {
				return next(c)
			}
			h.logger.Warn("derived rate_limited",
				xlogger.String("endpoint", endpoint),
				xlogger.String("remote", c.RealIP()),
			)
			metrics.Observe(endpoint, time.Now(), "ERR_RATE_LIMITED")
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
	}
}

// toAppError maps domain errors to HTTP errors. Unknown errors become a generic 500 so
// store details are not leaked.
func toAppError(err error) *xhttp.AppError {
	var (
		appErr *xhttp.AppError
		ife    *formula.InvalidFormulaError
		rte    *formula.EvaluationRuntimeError
		dnf    *derived.DataNotFoundError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &ife):
		e := xhttp.NewAppError("ERR_INVALID_FORMULA", "formula", ife.Error(), http.StatusBadRequest).WithError(err)
		if ife.Token != "" {
			e.WithParam("token", ife.Token)
		}
		if ife.Pos >= 0 && ife.Token != "" {
			e.WithParam("position", ife.Pos)
		}
		return e
	case errors.As(err, &rte):
		return xhttp.NewAppError("ERR_EVALUATION", "formula", rte.Error(), http.StatusBadRequest).WithError(err)
	case errors.As(err, &dnf):
		return xhttp.NewAppError("ERR_DATA_NOT_FOUND", "channels", dnf.Error(), http.StatusNotFound).
			WithParam("channels", dnf.Channels).WithError(err)
	case errors.Is(err, domrepo.ErrSignalNotFound):
		return xhttp.NotFoundError("derived signal not found").WithError(err)
	case errors.Is(err, domrepo.ErrSignalExists):
		return xhttp.ConflictError("derived signal already exists").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func nonNil(points []models.Point) []models.Point {
	if points == nil {
		return []models.Point{}
	}
	return points
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	"github.com/antonbeski0/Predflux/internal/service/ratelimit"
	"github.com/antonbeski0/Predflux/internal/services/forecast"
	"github.com/antonbeski0/Predflux/internal/usecase"
	xhttp "github.com/antonbeski0/Predflux/pkg/http"
	xlogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// ArtifactReader loads a persisted model by slot.
type ArtifactReader interface {
	MustLoad(ctx context.Context, name string) (*models.ModelArtifact, error)
}

// ModelInfo describes a model slot, either the live in-memory network or
// the last persisted artifact.
type ModelInfo struct {
	Name         string                `json:"name"`
	Source       string                `json:"source"`
	Architecture models.Architecture   `json:"architecture"`
	Epochs       int                   `json:"epochs"`
	Layers       []models.LayerSummary `json:"layers,omitempty"`
	SavedAt      *time.Time            `json:"saved_at,omitempty"`
}

// ForecastEchoHandler serves the forecasting API.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	runner  *usecase.ForecastRunner
	limiter *ratelimit.Limiter
	store   ArtifactReader
}

// NewForecastEchoHandler wires the API. limiter and store may be nil.
func NewForecastEchoHandler(logger *xlogger.Logger, runner *usecase.ForecastRunner, limiter *ratelimit.Limiter, store ArtifactReader) *ForecastEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ForecastEchoHandler{logger: logger, runner: runner, limiter: limiter, store: store}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/engines", h.Engines)
	g.GET("/models/:slot", h.Model)

	f := g.Group("/forecast", h.throttle)
	f.POST("/single", h.Single)
	f.POST("/multi", h.Multi)
	f.POST("/symbols", h.Symbols)
}

// throttle limits training requests per client address.
func (h *ForecastEchoHandler) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("forecast rate limit exceeded"))
		}
		return next(c)
	}
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *ForecastEchoHandler) Engines(c echo.Context) error {
	single, multi := h.runner.Engines()
	return xhttp.SuccessResponse(c, []forecast.Status{single.Status(), multi.Status()})
}

func (h *ForecastEchoHandler) Single(c echo.Context) error {
	req := &models.SingleForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.runner.RunSingle(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "single forecast failed", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Multi(c echo.Context) error {
	req := &models.MultiForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.runner.RunMulti(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "multi forecast failed", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Symbols(c echo.Context) error {
	req := &models.SymbolsForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.runner.RunSymbols(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "symbols forecast failed", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Model reports the live network of a slot, falling back to the stored
// artifact when the engine has not trained or loaded one yet.
func (h *ForecastEchoHandler) Model(c echo.Context) error {
	slot := c.Param("slot")
	single, multi := h.runner.Engines()

	var st forecast.Status
	var handle models.ModelHandle
	var ok bool
	switch slot {
	case models.SingleAssetModel:
		st = single.Status()
		handle, ok = single.Model()
	case models.MultiAssetModel:
		st = multi.Status()
		handle, ok = multi.Model()
	default:
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown model slot %q", slot))
	}

	if ok {
		return xhttp.SuccessResponse(c, ModelInfo{
			Name:         slot,
			Source:       "memory",
			Architecture: handle.Architecture(),
			Epochs:       st.Epochs,
			Layers:       handle.Summary(),
		})
	}
	if h.store == nil {
		return h.fail(c, "model lookup failed", models.ErrModelMissing)
	}
	a, err := h.store.MustLoad(c.Request().Context(), slot)
	if err != nil {
		return h.fail(c, "model lookup failed", err)
	}
	saved := a.SavedAt
	return xhttp.SuccessResponse(c, ModelInfo{
		Name:         slot,
		Source:       "store",
		Architecture: a.Architecture,
		Epochs:       a.Epochs,
		SavedAt:      &saved,
	})
}

func (h *ForecastEchoHandler) fail(c echo.Context, msg string, err error) error {
	appErr := mapError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(msg, xlogger.Error(err))
	} else {
		h.logger.Debug(msg, xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// mapError translates forecasting errors to API errors.
func mapError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrInvalidSeries), errors.Is(err, models.ErrInvalidOptions):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrDegenerateSeries):
		return xhttp.UnprocessableError("ERR_DEGENERATE_SERIES", "", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", "", err.Error()).WithError(err)
	case errors.Is(err, models.ErrDatasetAlignment):
		return xhttp.UnprocessableError("ERR_DATASET_ALIGNMENT", "", err.Error()).WithError(err)
	case errors.Is(err, models.ErrModelMissing):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrPersistence):
		return xhttp.ServiceUnavailableError("model store unavailable").WithError(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return xhttp.ServiceUnavailableError("forecast cancelled").WithError(err)
	default:
		return xhttp.InternalError("forecast failed").WithError(err)
	}
}

package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"TrendPull/internal/domain/models"
	"TrendPull/internal/usecase"
	xhttp "TrendPull/pkg/http"
	"TrendPull/pkg/http/middleware"
	xlogger "TrendPull/pkg/logger"
)

// RunsEchoHandler starts runs and serves their cached rows.
type RunsEchoHandler struct {
	logger  *xlogger.Logger
	runs    *usecase.RunUseCase
	signals *usecase.SignalsUseCase
	queue   *usecase.RunQueue
	limiter *middleware.Limiter
}

// NewRunsEchoHandler wires the handler. A nil queue disables ?async=true.
func NewRunsEchoHandler(logger *xlogger.Logger, runs *usecase.RunUseCase, signals *usecase.SignalsUseCase, queue *usecase.RunQueue, limiter *middleware.Limiter) *RunsEchoHandler {
	return &RunsEchoHandler{logger: logger, runs: runs, signals: signals, queue: queue, limiter: limiter}
}

func (h *RunsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/runs")
	if h.limiter != nil {
		g.POST("", h.Create, middleware.RateLimit(h.limiter))
	} else {
		g.POST("", h.Create)
	}
	g.GET("/:id", h.Status)
	g.GET("/:id/rows", h.Rows)
}

// RunResponse is the body of POST /api/runs.
type RunResponse struct {
	Summary models.RunSummary       `json:"summary"`
	Records []models.BacktestRecord `json:"backtest_records,omitempty"`
	Rows    []models.Row            `json:"rows,omitempty"`
}

// Create runs the pipeline synchronously. ?rows=true includes the annotated rows;
// ?async=true queues the run and answers 202 with its status.
func (h *RunsEchoHandler) Create(c echo.Context) error {
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if c.QueryParam("async") == "true" {
		st, err := h.queue.Submit(c.Request().Context(), *req)
		if err != nil {
			return writeError(c, h.logger, "queue run", err)
		}
		return xhttp.DataResponse(c, http.StatusAccepted, st)
	}

	out, err := h.runs.Execute(c.Request().Context(), *req)
	if err != nil {
		return writeError(c, h.logger, "run", err)
	}
	resp := RunResponse{Summary: out.Summary, Records: out.Records}
	if c.QueryParam("rows") == "true" {
		resp.Rows = out.Frame.Rows()
	}
	return xhttp.CreatedResponse(c, resp)
}

type runIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// Status reports the state of a queued run.
func (h *RunsEchoHandler) Status(c echo.Context) error {
	req := &runIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, ok, err := h.queue.Status(c.Request().Context(), req.ID)
	if err != nil {
		return writeError(c, h.logger, "run status", err)
	}
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("run not found"))
	}
	return xhttp.SuccessResponse(c, st)
}

// Rows returns the annotated rows of a finished run from the cache.
func (h *RunsEchoHandler) Rows(c echo.Context) error {
	req := &runIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, ok, err := h.signals.GetRunRows(c.Request().Context(), req.ID)
	if err != nil {
		return writeError(c, h.logger, "run rows", err)
	}
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("run rows not cached"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

var _ xhttp.Handler = (*RunsEchoHandler)(nil)

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"TrendPull/internal/domain/models"
	"TrendPull/internal/usecase"
	xhttp "TrendPull/pkg/http"
	xlogger "TrendPull/pkg/logger"
)

// toAppError maps use case errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var (
		se *models.SchemaError
		ce *models.ConfigurationError
	)
	switch {
	case errors.As(err, &se):
		return xhttp.NewAppError("ERR_SCHEMA", se.Column, se.Reason, http.StatusBadRequest).
			WithParam("row", se.Row).WithError(err)
	case errors.As(err, &ce):
		return xhttp.NewAppError("ERR_CONFIGURATION", ce.Field, ce.Reason, http.StatusBadRequest).WithError(err)
	case errors.Is(err, usecase.ErrNoBarSource):
		return xhttp.UnavailableError("no bar source configured; send bars in the request").WithError(err)
	case errors.Is(err, usecase.ErrQueueUnavailable):
		return xhttp.UnavailableError("run queue not configured").WithError(err)
	case errors.Is(err, usecase.ErrNoSignalStore):
		return xhttp.UnavailableError("signal store not configured").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.TimeoutError("run timed out").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

func writeError(c echo.Context, log *xlogger.Logger, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		log.Error(op+" failed", xlogger.Error(err))
	} else {
		log.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

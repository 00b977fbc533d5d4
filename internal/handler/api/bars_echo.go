package api

import (
	"github.com/labstack/echo/v4"

	domrepo "TrendPull/internal/domain/repository"
	"TrendPull/internal/usecase"
	xhttp "TrendPull/pkg/http"
	xlogger "TrendPull/pkg/logger"
)

// BarsEchoHandler serves raw OHLCV bars.
type BarsEchoHandler struct {
	logger *xlogger.Logger
	bars   *usecase.BarsUseCase
}

func NewBarsEchoHandler(logger *xlogger.Logger, bars *usecase.BarsUseCase) *BarsEchoHandler {
	return &BarsEchoHandler{logger: logger, bars: bars}
}

func (h *BarsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/bars", h.List)
}

type barsRequest struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" default:"1h" validate:"oneof=1m 5m 1h 1d"`
	From      string `query:"from"`
	To        string `query:"to"`
	Limit     int    `query:"limit" default:"10000" validate:"gte=1,lte=50000"`
}

func (h *BarsEchoHandler) List(c echo.Context) error {
	req := &barsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := parseRange(req.From, req.To)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: domrepo.Timeframe(req.Timeframe),
		Limit:     req.Limit,
	})
	if err != nil {
		return writeError(c, h.logger, "bars", err)
	}
	return xhttp.SuccessResponse(c, res)
}

var _ xhttp.Handler = (*BarsEchoHandler)(nil)

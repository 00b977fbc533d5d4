package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"TrendPull/internal/usecase"
	xhttp "TrendPull/pkg/http"
	xlogger "TrendPull/pkg/logger"
	"TrendPull/pkg/util"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsBuffer     = 256
)

// SignalsEchoHandler serves stored signals and streams live ones over websocket.
type SignalsEchoHandler struct {
	logger   *xlogger.Logger
	signals  *usecase.SignalsUseCase
	hub      *usecase.SignalHub
	upgrader websocket.Upgrader
}

func NewSignalsEchoHandler(logger *xlogger.Logger, signals *usecase.SignalsUseCase, hub *usecase.SignalHub) *SignalsEchoHandler {
	return &SignalsEchoHandler{
		logger:  logger,
		signals: signals,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/signals")
	g.GET("", h.List)
	g.GET("/stream", h.Stream)
}

type signalsRequest struct {
	Symbol string `query:"symbol" validate:"required"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

// List returns stored signal events, newest first.
func (h *SignalsEchoHandler) List(c echo.Context) error {
	req := &signalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := parseRange(req.From, req.To)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	params := usecase.GetSignalsParams{Symbol: req.Symbol, From: from, To: to, Limit: req.Limit}

	res, err := h.signals.GetSignals(c.Request().Context(), params)
	if err != nil {
		return writeError(c, h.logger, "signals", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Stream upgrades to a websocket and pushes every broadcast signal event as JSON.
// ?symbol= filters to one symbol.
func (h *SignalsEchoHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade error", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	symbol := c.QueryParam("symbol")
	stream, unsub := h.hub.Subscribe(symbol, wsBuffer)
	defer unsub()
	h.logger.Debug("ws subscribed", xlogger.String("symbol", symbol), xlogger.Int("subscribers", h.hub.Subscribers()))

	// reader: handles pongs and notices the client going away
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("ws write error", xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// parseRange parses optional from/to query values. Empty values stay zero.
func parseRange(rawFrom, rawTo string) (from, to time.Time, appErr *xhttp.AppError) {
	for _, p := range []struct {
		name string
		raw  string
		dst  *time.Time
	}{{"from", rawFrom, &from}, {"to", rawTo, &to}} {
		if p.raw == "" {
			continue
		}
		t, ok := util.ParseTime(p.raw)
		if !ok {
			return from, to, xhttp.NewAppError("ERR_TIME", p.name, "unparseable time", http.StatusBadRequest)
		}
		*p.dst = t
	}
	return from, to, nil
}

var _ xhttp.Handler = (*SignalsEchoHandler)(nil)

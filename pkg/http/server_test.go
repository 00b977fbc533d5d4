package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct{}

type echoRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Limit  int    `json:"limit" default:"10" validate:"gte=1,lte=100"`
	Side   string `json:"side" validate:"omitempty,oneof=long short"`
}

func (echoHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		req := &echoRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("plain"))
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("nothing here").WithParam("id", 7))
	})
}

func serve(s *Server, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestReadAndValidateRequest(t *testing.T) {
	s := NewServer(nil, []Handler{echoHandler{}})

	rec := serve(s, http.MethodPost, "/echo", `{"symbol":"BTC"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, map[string]interface{}{"symbol": "BTC", "limit": float64(10), "side": ""}, resp.Data)

	rec = serve(s, http.MethodPost, "/echo", `{"limit":500,"side":"flat"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decode(t, rec)
	errs := resp.Data.([]interface{})
	require.Len(t, errs, 3)
	fields := map[string]string{}
	for _, e := range errs {
		m := e.(map[string]interface{})
		fields[m["field"].(string)] = m["code"].(string)
	}
	assert.Equal(t, map[string]string{"symbol": "ERR_REQUIRED", "limit": "ERR_LTE", "side": "ERR_ONEOF"}, fields)

	rec = serve(s, http.MethodPost, "/echo", `{"symbol":`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs = decode(t, rec).Data.([]interface{})
	assert.Equal(t, "ERR_UNKNOWN", errs[0].(map[string]interface{})["code"])
}

type badColumn string

func (b badColumn) Error() string        { return "column " + string(b) + " missing" }
func (b badColumn) InvalidField() string { return string(b) }

func TestValidatorRulesNameDecodeField(t *testing.T) {
	err := echo.NewHTTPError(http.StatusBadRequest, "decode").SetInternal(badColumn("close"))
	errs := validatorDefaultRules(err)
	require.Len(t, errs, 1)
	assert.Equal(t, ValidationError{Code: "ERR_INVALID", Field: "close", Message: "column close missing"}, errs[0])
}

func TestAppErrorResponse(t *testing.T) {
	s := NewServer(nil, []Handler{echoHandler{}})

	rec := serve(s, http.MethodGet, "/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	appErr := decode(t, rec).Data.([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "ERR_NOT_FOUND", appErr["code"])
	assert.Equal(t, float64(7), appErr["params"].(map[string]interface{})["id"])

	rec = serve(s, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(nil, []Handler{echoHandler{}}, WithMetrics(reg, "/metrics"))

	rec := serve(s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	serve(s, http.MethodPost, "/echo", `{"symbol":"BTC"}`, nil)
	rec = serve(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trendpull_http_requests_total")
}

func TestNoMetricsRouteWithoutRegistry(t *testing.T) {
	s := NewServer(nil, nil)
	rec := serve(s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	s := NewServer(nil, []Handler{echoHandler{}}, WithCORS([]string{"https://app.example.com"}))

	rec := serve(s, http.MethodOptions, "/echo", "", map[string]string{echo.HeaderOrigin: "https://app.example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(s, http.MethodPost, "/echo", `{"symbol":"X"}`, map[string]string{echo.HeaderOrigin: "https://evil.example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

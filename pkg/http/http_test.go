package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	ID       string   `param:"id" validate:"required"`
	Formula  string   `json:"formula" validate:"required,max=16"`
	Channels []string `json:"channels" validate:"required,min=1,unique"`
	Start    int64    `json:"startTime" validate:"gte=0"`
	End      int64    `json:"endTime" validate:"gtefield=Start"`
	Limit    int      `json:"limit" default:"100"`
}

func newContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("sig-1")
	return c, rec
}

func TestReadAndValidateRequest(t *testing.T) {
	c, _ := newContext(`{"formula":"a+b","channels":["a","b"],"startTime":1,"endTime":2}`)
	var req sampleRequest
	require.Nil(t, ReadAndValidateRequest(c, &req))
	assert.Equal(t, "sig-1", req.ID)
	assert.Equal(t, 100, req.Limit)

	c, _ = newContext(`{"formula":"","channels":["a","a"],"startTime":5,"endTime":2}`)
	errs := ReadAndValidateRequest(c, &sampleRequest{})
	codes := map[string]string{}
	for _, e := range errs {
		codes[e.Field] = e.Code
	}
	assert.Equal(t, "ERR_REQUIRED", codes["formula"])
	assert.Equal(t, "ERR_UNIQUE", codes["channels"])
	assert.Equal(t, "ERR_GTEFIELD", codes["endTime"])

	c, _ = newContext(`{"formula":`)
	errs = ReadAndValidateRequest(c, &sampleRequest{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_MALFORMED_BODY", errs[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext("")
	appErr := NotFoundErrorf("signal %q not found", "x").WithParam("id", "x").WithError(errors.New("db detail"))
	require.NoError(t, AppErrorResponse(c, appErr))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 404, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_NOT_FOUND", body.Data[0].Code)
	assert.Equal(t, "x", body.Data[0].Params["id"])
	assert.NotContains(t, rec.Body.String(), "db detail")

	c, rec = newContext("")
	require.NoError(t, AppErrorResponse(c, errors.New("secret")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), "ERR_INTERNAL")
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func TestServerRoutes(t *testing.T) {
	s := NewServer(nil, Handlers{pingHandler{}}, WithCORS([]string{"*"}))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":"pong"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sigderive_http_requests_total")
}

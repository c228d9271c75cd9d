package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	applogger "TrendLens/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppError_Code(t *testing.T) {
	assert.Equal(t, "ERR_NOT_FOUND", NewAppError(http.StatusNotFound, "x").Code)
	assert.Equal(t, "ERR_BAD_REQUEST", BadRequestError("x").Code)
	assert.Equal(t, "ERR_UNKNOWN", NewAppError(499, "x").Code)

	inner := errors.New("driver gone")
	err := InternalError("db").WithError(inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "db: driver gone", err.Error())
}

func TestErrorHandler_Envelope(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(applogger.Nop())
	e.GET("/secret", func(c echo.Context) error { return errors.New("dsn=clickhouse://user:pw@host") })

	for _, tc := range []struct {
		target string
		status int
		code   string
	}{
		{"/nope", http.StatusNotFound, "ERR_NOT_FOUND"},
		{"/secret", http.StatusInternalServerError, "ERR_INTERNAL_SERVER_ERROR"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		assert.Equal(t, tc.status, rec.Code, tc.target)
		assert.NotContains(t, rec.Body.String(), "pw@host")

		var body struct {
			Status int        `json:"status"`
			Data   []AppError `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.status, body.Status)
		require.Len(t, body.Data, 1)
		assert.Equal(t, tc.code, body.Data[0].Code)
	}
}

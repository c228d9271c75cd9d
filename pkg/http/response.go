package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope for health checks and generic failures.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// DataResponse writes the envelope with statusCode.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// AppErrorResponse writes err under its own status.
func AppErrorResponse(c echo.Context, err *AppError) error {
	return DataResponse(c, err.Status, []*AppError{err})
}

package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	applogger "TrendLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AppError is an error carrying the HTTP status and a stable code for the envelope.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError derives the code from status, e.g. 404 becomes ERR_NOT_FOUND.
func NewAppError(status int, message string) *AppError {
	text := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	if text == "" {
		text = "UNKNOWN"
	}
	return &AppError{Code: "ERR_" + text, Message: message, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func InternalError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, message)
}

// toAppError maps echo and unknown errors onto AppError. Unknown errors become 500 without leaking their text.
func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return NewAppError(he.Code, msg).WithError(he.Internal)
	}
	return InternalError("Something went wrong").WithError(err)
}

// ErrorHandler renders every error that reaches echo as the APIResponse envelope.
func ErrorHandler(l *applogger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			l.Error("request failed", applogger.String("route", c.Path()), applogger.Error(err))
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(appErr.Status)
		} else {
			werr = AppErrorResponse(c, appErr)
		}
		if werr != nil {
			l.Warn("write error response failed", applogger.Error(werr))
		}
	}
}

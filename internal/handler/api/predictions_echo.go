package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"TrendLens/internal/domain/models"
	"TrendLens/internal/service/metrics"
	"TrendLens/internal/usecase"
	xhttp "TrendLens/pkg/http"
	xlogger "TrendLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Predictors is the registry surface the handlers need.
type Predictors interface {
	Get(ctx context.Context, ticker string) (*usecase.TickerPredictor, error)
	Refresh(ctx context.Context, ticker string) (*usecase.TickerPredictor, error)
	Len() int
}

// PredictionsEchoHandler serves ticker info and backtest performance.
type PredictionsEchoHandler struct {
	logger *xlogger.Logger
	reg    Predictors
}

func NewPredictionsEchoHandler(logger *xlogger.Logger, reg Predictors) *PredictionsEchoHandler {
	return &PredictionsEchoHandler{logger: logger, reg: reg}
}

type infoResponse struct {
	Ticker  string `json:"ticker"`
	Exists  bool   `json:"exists"`
	MinDate string `json:"minDate,omitempty"`
	MaxDate string `json:"maxDate,omitempty"`
}

type performanceResponse struct {
	Success bool                      `json:"success"`
	Ticker  string                    `json:"ticker"`
	Result  []models.PredictionResult `json:"result"`
}

// performanceFailure carries no result key.
type performanceFailure struct {
	Success bool   `json:"success"`
	Ticker  string `json:"ticker"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Predictors int    `json:"predictors"`
}

// RegisterRoutes mounts every route at the root and again under /api.
func (h *PredictionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	for _, g := range []*echo.Group{e.Group(""), e.Group("/api")} {
		g.GET("/info/:ticker", h.Info)
		g.GET("/performance/:ticker", h.Performance)
		g.POST("/refresh/:ticker", h.Refresh)
		g.GET("/health", h.Health)
	}
}

func (h *PredictionsEchoHandler) Info(c echo.Context) error {
	defer metrics.Observe("info", time.Now())
	ticker, ok := h.ticker(c, "info")
	if !ok {
		return c.JSON(http.StatusBadRequest, infoResponse{Ticker: ticker})
	}

	p, err := h.reg.Get(c.Request().Context(), ticker)
	if err != nil {
		h.fail("info", ticker, err)
		return c.JSON(http.StatusBadRequest, infoResponse{Ticker: ticker})
	}
	return c.JSON(http.StatusOK, info(ticker, p))
}

func (h *PredictionsEchoHandler) Refresh(c echo.Context) error {
	defer metrics.Observe("refresh", time.Now())
	ticker, ok := h.ticker(c, "refresh")
	if !ok {
		return c.JSON(http.StatusBadRequest, infoResponse{Ticker: ticker})
	}

	p, err := h.reg.Refresh(c.Request().Context(), ticker)
	if err != nil {
		h.fail("refresh", ticker, err)
		return c.JSON(http.StatusBadRequest, infoResponse{Ticker: ticker})
	}
	return c.JSON(http.StatusOK, info(ticker, p))
}

func (h *PredictionsEchoHandler) Performance(c echo.Context) error {
	defer metrics.Observe("performance", time.Now())
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.logger.Warn("performance request invalid",
			xlogger.String("ticker", c.Param("ticker")),
			xlogger.Any("errors", verr),
		)
		metrics.Fail("performance", "bad_request")
		return c.JSON(http.StatusBadRequest, performanceFailure{Ticker: c.Param("ticker")})
	}

	bad := func(err error) error {
		h.fail("performance", req.Ticker, err)
		return c.JSON(http.StatusBadRequest, performanceFailure{Ticker: req.Ticker})
	}

	start, err := xhttp.ParseUnix(req.StartDate)
	if err != nil {
		return bad(errors.Join(models.ErrInvalidRange, err))
	}
	end, err := xhttp.ParseUnix(req.EndDate)
	if err != nil {
		return bad(errors.Join(models.ErrInvalidRange, err))
	}

	p, err := h.reg.Get(c.Request().Context(), req.Ticker)
	if err != nil {
		return bad(err)
	}
	res, err := p.Predict(start, end)
	if err != nil {
		return bad(err)
	}
	if res == nil {
		res = []models.PredictionResult{}
	}
	return c.JSON(http.StatusOK, performanceResponse{Success: true, Ticker: req.Ticker, Result: res})
}

func (h *PredictionsEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, healthResponse{Status: "ok", Predictors: h.reg.Len()})
}

// ticker binds the path ticker. On failure the raw parameter is returned for echoing.
func (h *PredictionsEchoHandler) ticker(c echo.Context, endpoint string) (string, bool) {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.logger.Warn("ticker request invalid", xlogger.String("endpoint", endpoint), xlogger.Any("errors", verr))
		metrics.Fail(endpoint, "bad_request")
		return c.Param("ticker"), false
	}
	return req.Ticker, true
}

func info(ticker string, p *usecase.TickerPredictor) infoResponse {
	i := p.Info()
	return infoResponse{
		Ticker:  ticker,
		Exists:  true,
		MinDate: xhttp.FormatDate(i.MinDate),
		MaxDate: xhttp.FormatDate(i.MaxDate),
	}
}

// fail logs and counts a user-facing failure. Known kinds log at warn, anything else at error.
func (h *PredictionsEchoHandler) fail(endpoint, ticker string, err error) {
	kind := errorKind(err)
	metrics.Fail(endpoint, kind)
	fields := []xlogger.Field{
		xlogger.String("endpoint", endpoint),
		xlogger.String("ticker", ticker),
		xlogger.String("kind", kind),
		xlogger.Error(err),
	}
	if kind == "internal" {
		h.logger.Error("request failed", fields...)
		return
	}
	h.logger.Warn("request failed", fields...)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidTicker):
		return "invalid_ticker"
	case errors.Is(err, models.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, models.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kilofrakh/mostaqlproj1/internal/turn"
)

// DefaultBodyLimit caps uploaded recordings.
const DefaultBodyLimit = "25M"

// NewRouter creates a configured Echo instance: slog request logging, panic
// recovery, permissive CORS and a body limit.
func NewRouter(logger *slog.Logger, bodyLimit string) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	if bodyLimit == "" {
		bodyLimit = DefaultBodyLimit
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				logger.LogAttrs(c.Request().Context(), slog.LevelWarn, "request failed", slog.Group("http", attrs...), slog.String("error", v.Error.Error()))
				return nil
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, headerSessionID},
		ExposeHeaders: []string{headerSessionID},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	return e
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a turn failure onto an HTTP status.
func statusFor(k turn.Kind) int {
	switch k {
	case turn.KindValidation:
		return http.StatusBadRequest
	case turn.KindNoSpeech:
		return http.StatusUnprocessableEntity
	case turn.KindUpstream, turn.KindConfiguration:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorHandler renders every failure as {"error": msg}. Framework errors
// keep their status; anything else is reported generically.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := turn.MsgInternal
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		} else {
			logger.Error("unhandled request error", "uri", c.Request().RequestURI, "error", err)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorBody{Error: msg})
		}
		if err != nil {
			logger.Warn("write error response", "error", err)
		}
	}
}

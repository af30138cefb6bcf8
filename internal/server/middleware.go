package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			c.Set(ctxRequestID, id)
			c.Response().Header().Set(headerRequestID, id)
			return next(c)
		}
	}
}

func requestIDFrom(c *echo.Context) string {
	id, _ := c.Get(ctxRequestID).(string)
	return id
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			err := next(c)
			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"request_id", requestIDFrom(c),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("http request", append(attrs, "err", err)...)
			} else {
				logger.Debug("http request", attrs...)
			}
			return err
		}
	}
}

// recoverer turns a handler panic into a 500 response.
func recoverer(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if r == http.ErrAbortHandler {
						panic(r)
					}
					logger.Error("handler panic",
						"path", c.Request().URL.Path,
						"request_id", requestIDFrom(c),
						"panic", fmt.Sprint(r))
					err = c.JSON(http.StatusInternalServerError, errorResponse{Error: operationFailed})
				}
			}()
			return next(c)
		}
	}
}

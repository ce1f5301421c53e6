package service

import (
	"time"

	"signal_bot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging пишет каждый запрос в общий логгер.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			logger.Debug("[%s] %s %s - %d (%s)",
				req.Method, req.RequestURI, c.RealIP(), c.Response().Status, time.Since(start))
			return err
		}
	}
}

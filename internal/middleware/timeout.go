package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// WithTimeout ограничивает время обработки запроса, если внешний дедлайн
// ещё не задан.
func WithTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if _, ok := req.Context().Deadline(); ok {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(req.Context(), d)
			defer cancel()

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
)

type ctxKey string

// RouteKey holds the matched route template in the request context.
const RouteKey ctxKey = "route"

// RouteLabel stores echo's matched route template (e.g. "/signals/:id") in the request
// context so net/http middleware can label metrics without raw ids.
func RouteLabel() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p := c.Path(); p != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(context.WithValue(req.Context(), RouteKey, p)))
			}
			return next(c)
		}
	}
}

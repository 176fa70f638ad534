// Package middleware provides Echo middleware for CORS, logging, metrics
// and security.
package middleware

import (
	"github.com/labstack/echo/v4"
)

// CORS returns an Echo middleware that attaches the permissive CORS header
// to every response, including error responses and unmatched routes. The
// whole point of the relay is that the calling page's script can always
// inspect the outcome instead of being blocked by a cross-origin failure.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Set before next so the header survives handler errors and 404s.
			c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORS returns a middleware that stamps the permissive CORS header set on
// every response, including errors, and answers OPTIONS preflights directly
// with 204. Browser players fetch playlists, segments and keys cross-origin
// and need Range plus the range-related response headers exposed for
// seeking, so the headers are set unconditionally rather than only for
// requests that carry an Origin header.
func CORS(allowedOrigins []string) echo.MiddlewareFunc {
	allowOrigin := "*"
	if len(allowedOrigins) > 0 {
		allowOrigin = strings.Join(allowedOrigins, ", ")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, allowOrigin)
			h.Set(echo.HeaderAccessControlAllowMethods, "GET, HEAD, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization, Range")
			h.Set(echo.HeaderAccessControlExposeHeaders, "Content-Length, Content-Range, Accept-Ranges")
			h.Set(echo.HeaderAccessControlMaxAge, "3600")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}

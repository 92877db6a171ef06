package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// CORS returns CORS middleware with an explicit origin allow-list. Preflight
// requests are answered here and never reach the router. Disallowed origins
// get no Access-Control-Allow-Origin header at all, which makes the browser
// block the actual request.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get("Origin")
			preflight := c.Request().Method == http.MethodOptions

			if origin != "" && originAllowed(cfg.AllowOrigins, origin) {
				h := c.Response().Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add(echo.HeaderVary, "Origin")
				if len(cfg.AllowMethods) > 0 {
					h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
				}
				if len(cfg.AllowHeaders) > 0 {
					h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
				}
			}

			if preflight {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

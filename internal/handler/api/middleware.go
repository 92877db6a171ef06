package api

import (
	"strings"

	"GridPull/internal/service/ratelimit"
	xhttp "GridPull/pkg/http"
	xlogger "GridPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Request headers carrying the caller's network and session identity,
// populated by the fronting CDN. Absent headers count as empty identity
// components.
const (
	HeaderASN       = "X-Asn"
	HeaderSessionID = "X-Session-Id"
)

// RateLimit applies the sliding-window limiter to every route except the
// operational endpoints. It runs after CORS, so preflight requests never
// consume budget; denials are 429 with no side effects.
func RateLimit(l *ratelimit.Limiter, log *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if path == "/metrics" || path == "/healthz" {
				return next(c)
			}

			allowed, err := l.CheckAndRecord(
				c.Request().Context(),
				c.RealIP(),
				c.Request().Header.Get(HeaderASN),
				c.Request().Header.Get(HeaderSessionID),
			)
			if err != nil {
				log.Error("rate limiter failure", xlogger.Error(err))
				return xhttp.InternalServerErrorResponse(c)
			}
			if !allowed {
				return xhttp.TooManyRequestsResponse(c)
			}
			return next(c)
		}
	}
}

// requireAccessToken guards data routes: a valid, non-refresh bearer token is
// required. All failures get the same 401 body.
func (h *Handler) requireAccessToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		const prefix = "Bearer "
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(auth, prefix) {
			return xhttp.UnauthorizedResponse(c, "invalid token")
		}

		claims, err := h.tokens.Verify(strings.TrimPrefix(auth, prefix), false)
		if err != nil {
			return xhttp.UnauthorizedResponse(c, "invalid token")
		}

		c.Set("client_id", claims.ClientID)
		return next(c)
	}
}

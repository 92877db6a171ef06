package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"GridPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover converts handler panics into 500 responses and logs the stack
// through the application logger. Nothing crashes the process.
func Recover(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					log.Error("panic recovered",
						logger.Error(err),
						logger.String("stack", string(debug.Stack())),
					)
					_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  http.StatusInternalServerError,
						"message": "Internal Server Error",
					})
				}
			}()
			return next(c)
		}
	}
}

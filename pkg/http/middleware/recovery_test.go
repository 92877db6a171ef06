package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"GridPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

func TestRecoverTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(logger.Nop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal Server Error") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequestLoggingPassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogging(logger.Nop()))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	// Handler errors must come back unchanged.
	e.GET("/teapot", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})
	req = httptest.NewRequest(http.MethodGet, "/teapot", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("got %d want 418", rec.Code)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func corsEcho() *echo.Echo {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"http://localhost:5173"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))
	e.GET("/range", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	return e
}

func TestCORSAllowedOrigin(t *testing.T) {
	e := corsEcho()

	req := httptest.NewRequest(http.MethodGet, "/range", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderVary); got == "" {
		t.Fatalf("Vary: Origin missing")
	}
}

func TestCORSDisallowedOriginGetsNoHeader(t *testing.T) {
	e := corsEcho()

	req := httptest.NewRequest(http.MethodGet, "/range", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// The request itself still runs; the browser enforces the block.
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin must get no allow-origin header, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	e := corsEcho()

	req := httptest.NewRequest(http.MethodOptions, "/range", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("got %d want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatalf("allow-methods missing on preflight")
	}
}

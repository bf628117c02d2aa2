package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func corsServe(origins []string, method string, withOrigin bool) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(CORS(origins))
	e.GET("/resource", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(method, "/resource", nil)
	if withOrigin {
		req.Header.Set("Origin", "https://player.example")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORS_HeadersAlwaysPresent(t *testing.T) {
	// Players fetch through plain media elements too: the headers must appear
	// even when the request carries no Origin header.
	rec := corsServe(nil, http.MethodGet, false)

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowMethods); got != "GET, HEAD, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlExposeHeaders); got != "Content-Length, Content-Range, Accept-Ranges" {
		t.Errorf("Expose-Headers = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlMaxAge); got != "3600" {
		t.Errorf("Max-Age = %q, want 3600", got)
	}
}

func TestCORS_ConfiguredOrigins(t *testing.T) {
	rec := corsServe([]string{"https://a.example", "https://b.example"}, http.MethodGet, true)

	want := "https://a.example, https://b.example"
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != want {
		t.Errorf("Allow-Origin = %q, want %q", got, want)
	}
}

func TestCORS_Preflight(t *testing.T) {
	rec := corsServe(nil, http.MethodOptions, true)

	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("preflight body = %q, want empty", rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowHeaders); got != "Content-Type, Authorization, Range" {
		t.Errorf("Allow-Headers = %q", got)
	}
}

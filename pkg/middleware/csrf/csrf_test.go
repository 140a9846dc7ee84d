package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/cart", ok)
	e.POST("/orders", ok)
	return e
}

func issuedToken(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	return token
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		origin string
		status int
	}{
		{name: "matching token same origin", header: "match", origin: "http://example.com", status: http.StatusNoContent},
		{name: "missing token", origin: "http://example.com", status: http.StatusForbidden},
		{name: "wrong token", header: "nope", origin: "http://example.com", status: http.StatusForbidden},
		{name: "foreign origin", header: "match", origin: "http://evil.test", status: http.StatusForbidden},
		{name: "no origin", header: "match", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newServer()
			token := issuedToken(t, e)

			req := httptest.NewRequest(http.MethodPost, "/orders", nil)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			switch tt.header {
			case "match":
				req.Header.Set("X-CSRF-Token", token)
			case "":
			default:
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMiddleware_KeepsExistingToken(t *testing.T) {
	t.Parallel()
	e := newServer()

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "existing"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "existing", rec.Header().Get("X-CSRF-Token"))
}

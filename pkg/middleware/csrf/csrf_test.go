package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(DefaultConfig()))
	e.GET("/form", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.POST("/submit", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	return e
}

func TestCSRF_SafeMethodIssuesToken(t *testing.T) {
	e := newServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))
}

func TestCSRF_PostRequiresMatchingToken(t *testing.T) {
	e := newServer()

	tests := []struct {
		name   string
		header string
		origin string
		want   int
	}{
		{name: "matching token", header: "tok", origin: "http://example.com", want: http.StatusCreated},
		{name: "wrong token", header: "other", origin: "http://example.com", want: http.StatusForbidden},
		{name: "foreign origin", header: "tok", origin: "http://evil.com", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/submit", nil)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
			req.Header.Set("X-CSRF-Token", tt.header)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRF_BearerRequestsSkipped(t *testing.T) {
	e := newServer()
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

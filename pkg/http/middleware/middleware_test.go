package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

func newEcho(t *testing.T, reg prometheus.Registerer) *echo.Echo {
	t.Helper()
	l := applogger.NewNop()
	e := echo.New()
	e.Use(Recover(l), RequestLogging(l), Metrics(l, reg, time.Second))
	e.GET("/api/models/:slot", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Param("slot"))
	})
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	return e
}

func TestRequestIDAndRouteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEcho(t, reg)

	for _, slot := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models/"+slot, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	}

	n, err := testutil.GatherAndCount(reg, "predflux_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecoverReturns500(t *testing.T) {
	e := newEcho(t, prometheus.NewRegistry())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowMethods: []string{http.MethodPost}, MaxAge: 600}))
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

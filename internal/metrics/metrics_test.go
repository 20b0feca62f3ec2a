package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndRecord(t *testing.T) {
	m := New()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.PushResult("delivered")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Sessions))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Pushes.WithLabelValues("delivered")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SessionOpened()
	m.SessionClosed()
	m.PushResult("error")
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/healthz", "GET", "204")))
}

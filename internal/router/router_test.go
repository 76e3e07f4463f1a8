package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduling-api/internal/handler"
	calendarHandler "github.com/jwalitptl/scheduling-api/internal/handler/calendar"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
)

func newTestRouter(t *testing.T, reg *prometheus.Registry, limit float64) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidation())

	store := memory.NewStore()
	cal := calendar.NewService(store.Calendar(), store.Resources(), scheduling.DefaultWeekConvention)
	r := NewRouter(
		handler.NewHandler(map[string]handler.Pinger{"database": store}, reg),
		[]Handler{calendarHandler.NewHandler(cal)},
		RouterConfig{
			RateLimit:      rate.Limit(limit),
			RateBurst:      1,
			RequestTimeout: time.Second,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "test",
			Registerer:     reg,
		},
	)
	r.Setup()
	return r
}

func get(r *Router, path string, tenant string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tenant != "" {
		req.Header.Set(middleware.HeaderXTenantID, tenant)
	}
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthIsNotTenantScoped(t *testing.T) {
	r := newTestRouter(t, prometheus.NewRegistry(), 0)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health/live", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health/ready", "").Code)

	w := get(r, "/api/v1/calendar", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/calendar", uuid.NewString()).Code)
}

func TestRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newTestRouter(t, reg, 0)

	get(r, "/api/v1/calendar", uuid.NewString())
	get(r, "/api/v1/calendar", "")
	get(r, "/nowhere", "")

	body := get(r, "/api/v1/health/metrics", "").Body.String()
	assert.Contains(t, body, `test_requests_total{method="GET",path="/api/v1/calendar",status="200"} 1`)
	assert.Contains(t, body, `test_errors_total{method="GET",path="/api/v1/calendar",type="client"} 1`)
	assert.Contains(t, body, `path="unmatched"`)
}

func TestRateLimitAppliesPerTenant(t *testing.T) {
	r := newTestRouter(t, prometheus.NewRegistry(), 0.001)
	tenant := uuid.NewString()

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/calendar", tenant).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/v1/calendar", tenant).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/calendar", uuid.NewString()).Code)
	// Health stays reachable.
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health/live", "").Code)
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func echoTenant(c *gin.Context) {
	tenant, _ := TenantID(c)
	c.String(http.StatusOK, tenant.String())
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	t.Run("generates", func(t *testing.T) {
		w := perform(engine, httptest.NewRequest(http.MethodGet, "/", nil))
		rid := w.Header().Get(HeaderXRequestID)
		_, err := uuid.Parse(rid)
		assert.NoError(t, err)
		assert.Equal(t, rid, w.Body.String())
	})

	t.Run("reuses caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderXRequestID, "abc-123")
		w := perform(engine, req)
		assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderXRequestID, strings.Repeat("x", 500))
		w := perform(engine, req)
		assert.Len(t, w.Header().Get(HeaderXRequestID), 36)
	})
}

func TestTenantFromHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(Tenant(TenantConfig{}))
	engine.GET("/", echoTenant)

	tenant := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXTenantID, tenant.String())
	w := perform(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenant.String(), w.Body.String())

	w = perform(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXTenantID, "not-a-uuid")
	w = perform(engine, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantFromToken(t *testing.T) {
	const secret = "test-secret"
	engine := gin.New()
	engine.Use(Tenant(TenantConfig{Secret: secret, Claim: "org"}))
	engine.GET("/", echoTenant)

	tenant := uuid.New()
	sign := func(key string, claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + sign(secret, jwt.MapClaims{"org": tenant.String()}), http.StatusOK},
		{"lowercase scheme", "bearer " + sign(secret, jwt.MapClaims{"org": tenant.String()}), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + sign("other", jwt.MapClaims{"org": tenant.String()}), http.StatusUnauthorized},
		{"missing claim", "Bearer " + sign(secret, jwt.MapClaims{"sub": "x"}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(secret, jwt.MapClaims{"org": tenant.String(), "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			// The header is ignored once tokens are required.
			req.Header.Set(HeaderXTenantID, uuid.NewString())
			w := perform(engine, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, tenant.String(), w.Body.String())
			}
		})
	}
}

func TestRateLimiterIsPerTenant(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 1})
	engine := gin.New()
	engine.Use(Tenant(TenantConfig{}), limiter.RateLimit())
	engine.GET("/", echoTenant)

	call := func(tenant uuid.UUID) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderXTenantID, tenant.String())
		return perform(engine, req).Code
	}

	a, b := uuid.New(), uuid.New()
	assert.Equal(t, http.StatusOK, call(a))
	assert.Equal(t, http.StatusTooManyRequests, call(a))
	assert.Equal(t, http.StatusOK, call(b))
}

func TestTimeout(t *testing.T) {
	engine := gin.New()
	engine.Use(Timeout(20 * time.Millisecond))
	engine.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	engine.GET("/fast", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	w = perform(engine, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), Recovery())
	engine.GET("/", func(c *gin.Context) {
		panic("boom")
	})

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(DefaultCORSConfig()))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	w := perform(engine, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderXTenantID)
}

func TestSizeLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(SizeLimit(8))
	engine.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(engine, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = perform(engine, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{}")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoggerWritesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	engine := gin.New()
	engine.Use(RequestID(), Logger(zerolog.New(&buf)))
	engine.POST("/things", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/things?x=1", bytes.NewBufferString(`{"customer_name":"Sara"}`))
	perform(engine, req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/things?x=1", entry["path"])
	assert.EqualValues(t, 400, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
	assert.NotContains(t, buf.String(), "Sara")
}

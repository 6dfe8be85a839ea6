package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncovista-opd-server/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func get(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := get(newRouter(SecurityHeaders()), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCorrelationID(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		w := get(newRouter(CorrelationID()), nil)
		assert.Len(t, w.Header().Get("X-Correlation-ID"), 36)
	})

	t.Run("propagated", func(t *testing.T) {
		var seen string
		r := gin.New()
		r.Use(CorrelationID())
		r.GET("/ping", func(c *gin.Context) {
			seen = c.GetString(CorrelationIDKey)
			c.Status(http.StatusNoContent)
		})

		w := get(r, http.Header{"X-Correlation-Id": {"req-42"}})
		assert.Equal(t, "req-42", w.Header().Get("X-Correlation-ID"))
		assert.Equal(t, "req-42", seen)
	})
}

func TestRequestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	r := gin.New()
	r.Use(RequestTimeout(time.Second))
	r.GET("/ping", func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	get(r, nil)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)

	r = gin.New()
	r.Use(RequestTimeout(0))
	r.GET("/ping", func(c *gin.Context) {
		_, ok = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})
	get(r, nil)
	assert.False(t, ok)
}

func TestAuditLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newRouter(CorrelationID(), AuditLogger(logger))

	get(r, http.Header{"X-Correlation-Id": {"audit-1"}})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "audit-1", entry.Data["correlation_id"])
	assert.Equal(t, "/ping", entry.Data["path"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}

func TestAuditLogger_RejectedRequest(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(AuditLogger(logger))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	get(r, nil)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2})
	r := newRouter(CorrelationID(), rl.Middleware())

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)

	w := get(r, http.Header{"X-Correlation-Id": {"limited"}})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, domain.ErrRateLimit, apiErr.Code)
	assert.Equal(t, "limited", apiErr.RequestID)
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(domain.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_DefaultBurst(t *testing.T) {
	rl := NewRateLimiter(domain.RateLimitConfig{RequestsPerSecond: 0.001})

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

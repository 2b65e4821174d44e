package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GoSim-25-26J-441/research-hub/internal/logging"
	"github.com/GoSim-25-26J-441/research-hub/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestIDMiddleware(zap.New(core)))

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = logging.RequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := serve(r, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", seen)
	})

	t.Run("generates one when missing", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))

		rid := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(rid)
		require.NoError(t, err)
		assert.Equal(t, rid, seen)
	})

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc-123", fields["request_id"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])
	assert.Equal(t, "/ping", fields["path"])
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/sign-in", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/sign-in", nil)
		req.RemoteAddr = ip + ":4321"
		return req
	}

	assert.Equal(t, http.StatusOK, serve(r, from("192.0.2.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, from("192.0.2.1")).Code)

	w := serve(r, from("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(r, from("192.0.2.2")).Code, "budgets are per client")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(r, from("192.0.2.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, from("192.0.2.1")).Code)
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	rl.limiterFor("a")
	rl.limiterFor("b")
	now = now.Add(limiterIdleTTL + time.Minute)
	rl.limiterFor("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := gin.New()
	r.Use(MetricsMiddleware(m))
	r.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/projects/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/projects/2", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/projects/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	var deadline time.Time
	var ok bool
	r.GET("/slow", Timeout(2*time.Second), func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
}

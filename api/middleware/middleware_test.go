package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/reelscore/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(APIKeyContextKey))
	})
	return r
}

func get(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth([]string{"k1", "", "k2"}))

	w := get(r, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	w = get(r, "X-API-Key", "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid API key")

	w = get(r, "X-API-Key", "k1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "k1", w.Body.String())

	w = get(r, "Authorization", "Bearer k2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "k2", w.Body.String())
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	r := newEngine(Auth(nil))
	assert.Equal(t, http.StatusOK, get(r, "", "").Code)
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(r, "", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "", "").Code)
	w := get(r, "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_PerAPIKey(t *testing.T) {
	r := newEngine(Auth([]string{"a", "b"}), RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}))

	assert.Equal(t, http.StatusOK, get(r, "X-API-Key", "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "X-API-Key", "a").Code)
	assert.Equal(t, http.StatusOK, get(r, "X-API-Key", "b").Code)
}

func TestRateLimit_ZeroRateDisables(t *testing.T) {
	r := newEngine(RateLimit(config.RateLimitConfig{}))
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, get(r, "", "").Code)
	}
}

func TestLimiterSet_Sweep(t *testing.T) {
	set := newLimiterSet(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	set.now = func() time.Time { return clock }

	set.allow("old")
	clock = clock.Add(2 * time.Hour)
	set.allow("new")

	set.sweep(clock.Add(-idleLimiter))
	assert.Len(t, set.limiters, 1)
	assert.Contains(t, set.limiters, "new")
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimitMiddleware()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/api/auth/login", limiter.RateLimit(2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.5"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.5"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.5"))

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, hit("10.0.0.6"))

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, hit("10.0.0.5"))
}

func TestRateLimitMiddleware_Sweep(t *testing.T) {
	limiter := NewRateLimitMiddleware()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("10.0.0.5", 5, time.Minute))
	now = now.Add(30 * time.Second)
	assert.True(t, limiter.allow("10.0.0.6", 5, time.Minute))

	now = now.Add(45 * time.Second)
	limiter.Sweep(time.Minute)

	assert.NotContains(t, limiter.requests, "10.0.0.5")
	assert.Contains(t, limiter.requests, "10.0.0.6")
}

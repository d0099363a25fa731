package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	l := NewSimpleTokenBucket(3, 60)

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d should pass", i+1)
	}
	assert.False(t, l.allow("10.0.0.1"))
}

func TestTokenBucketTracksClientsSeparately(t *testing.T) {
	l := NewSimpleTokenBucket(1, 60)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
}

func TestTokenBucketDefaultsCapacityToRate(t *testing.T) {
	l := NewSimpleTokenBucket(0, 2)

	assert.True(t, l.allow("kiosk"))
	assert.True(t, l.allow("kiosk"))
	assert.False(t, l.allow("kiosk"))
}

func TestGinMiddlewareReturns429WhenExhausted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewSimpleTokenBucket(1, 60).GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

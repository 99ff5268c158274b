package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

type memoryCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	fail    bool
}

func (m *memoryCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if m.fail {
		return redis.NewIntResult(0, errors.New("down"))
	}
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memoryCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if m.expires == nil {
		m.expires = make(map[string]time.Duration)
	}
	m.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func newLimitedRouter(store CounterStore, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", RateLimit(store, "write", limit, 30*time.Second, func(c *gin.Context) string { return c.ClientIP() }), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	store := &memoryCounter{}
	r := newLimitedRouter(store, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			require.Equal(t, "30", w.Header().Get("Retry-After"))
		}
	}
	require.Equal(t, []int{204, 204, 429}, codes)
	require.Equal(t, 30*time.Second, store.expires["rl:write:10.0.0.1"])
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newLimitedRouter(&memoryCounter{fail: true}, 1)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRateLimitDisabledWithoutStore(t *testing.T) {
	r := newLimitedRouter(nil, 1)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
}

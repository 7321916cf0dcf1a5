package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"matchmaking_server/auth"
	"matchmaking_server/config"
)

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(p.ManagerID))
	})
}

func TestRequireManager(t *testing.T) {
	h := RequireManager(echoPrincipal())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/match/sent", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/match/sent", nil)
	req.Header.Set(auth.HeaderManagerID, "  mgr-a ")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mgr-a", rec.Body.String())
}

func TestRateLimiter_PerManagerBuckets(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	h := RequireManager(limiter.Limit(echoPrincipal()))

	call := func(manager string) int {
		req := httptest.NewRequest(http.MethodPost, "/match/chat", nil)
		req.Header.Set(auth.HeaderManagerID, manager)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("mgr-a"))
	assert.Equal(t, http.StatusOK, call("mgr-a"))
	assert.Equal(t, http.StatusTooManyRequests, call("mgr-a"))
	assert.Equal(t, http.StatusOK, call("mgr-b"), "buckets are per manager")
}

func TestRateLimiter_FallsBackToRemoteHost(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	h := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/internal/deactivate", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.RemoteAddr = "10.0.0.7:6666"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_DefaultsFollowConfig(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	assert.Equal(t, float64(config.DefaultRateLimitRPS), limiter.rps)
	assert.Equal(t, config.DefaultRateLimitBurst, limiter.burst)
	assert.Equal(t, DefaultLimiterIdle, limiter.idle)

	slow := NewRateLimiter(0.001, 1)
	assert.Equal(t, 1000*time.Second, slow.idle, "never shorter than a full refill")
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 1)
	limiter.Now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		limiter.Allow(fmt.Sprintf("addr:10.0.0.%d", i))
	}
	assert.Equal(t, 50, limiter.Len())

	now = now.Add(DefaultLimiterIdle / 2)
	limiter.Allow("manager:mgr-a")
	assert.Equal(t, 51, limiter.Len(), "nothing is idle long enough yet")

	now = now.Add(DefaultLimiterIdle * 3 / 4)
	limiter.Allow("manager:mgr-b")
	assert.Equal(t, 2, limiter.Len(), "only the recently seen manager and the new key remain")
}

func TestRateLimiter_CapsKeyCount(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 1)
	limiter.maxKeys = 3
	limiter.Now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		limiter.Allow(key)
	}
	assert.Equal(t, 3, limiter.Len())
	_, kept := limiter.m["e"]
	assert.True(t, kept)
	_, kept = limiter.m["a"]
	assert.False(t, kept, "the least recently seen bucket goes first")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}

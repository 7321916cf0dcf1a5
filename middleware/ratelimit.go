package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"matchmaking_server/auth"
	"matchmaking_server/config"
	"matchmaking_server/helpers"
)

const (
	// DefaultLimiterIdle is how long a bucket may go unused before it is
	// dropped. A bucket is never dropped before it could have refilled.
	DefaultLimiterIdle = 10 * time.Minute
	// DefaultLimiterMaxKeys bounds the number of buckets held at once.
	DefaultLimiterMaxKeys = 100_000
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per manager (or per remote host for
// unauthenticated callers). Idle buckets are swept lazily on access.
type RateLimiter struct {
	mu        sync.Mutex
	m         map[string]*limiterEntry
	rps       float64
	burst     int
	idle      time.Duration
	maxKeys   int
	lastSweep time.Time

	Now func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = config.DefaultRateLimitRPS
	}
	if burst <= 0 {
		burst = config.DefaultRateLimitBurst
	}
	idle := DefaultLimiterIdle
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
		idle = refill
	}
	return &RateLimiter{
		m:       make(map[string]*limiterEntry),
		rps:     rps,
		burst:   burst,
		idle:    idle,
		maxKeys: DefaultLimiterMaxKeys,
		Now:     time.Now,
	}
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.Now()
	if e, ok := l.m[key]; ok {
		e.lastSeen = now
		return e.lim
	}

	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	if len(l.m) >= l.maxKeys {
		l.evictOldest()
	}
	e := &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst), lastSeen: now}
	l.m[key] = e
	return e.lim
}

// sweep drops buckets idle for longer than the refill window. Callers hold mu.
func (l *RateLimiter) sweep(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.lastSeen) >= l.idle {
			delete(l.m, k)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range l.m {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = k, e.lastSeen
		}
	}
	delete(l.m, oldestKey)
}

// Len reports how many buckets are currently held.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *RateLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Limit answers 429 once the caller's bucket is empty.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(limiterKey(r)) {
			w.Header().Set("Retry-After", "1")
			helpers.WriteJSONMessage(w, http.StatusTooManyRequests, nil, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limiterKey(r *http.Request) string {
	if p, ok := auth.FromContext(r.Context()); ok {
		return "manager:" + p.ManagerID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

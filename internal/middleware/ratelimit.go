// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
)

const bucketIdleTTL = 10 * time.Minute

type RateLimitConfig struct {
	Limit   redis_rate.Limit
	KeyFunc func(*http.Request) string
}

// RateLimiter throttles login attempts. Counters live in Redis when a client
// is given; without one, or while Redis is failing, each process keeps its
// own token buckets.
type RateLimiter struct {
	remote *redis_rate.Limiter
	local  *bucketSet
	limit  redis_rate.Limit
	key    func(*http.Request) string
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	key := cfg.KeyFunc
	if key == nil {
		key = KeyByIP
	}

	rl := &RateLimiter{
		local: newBucketSet(cfg.Limit),
		limit: cfg.Limit,
		key:   key,
	}
	if rdb != nil {
		rl.remote = redis_rate.NewLimiter(rdb)
	}
	return rl
}

// NewLocalRateLimiter never touches Redis; the dashboard serves a single
// operator and has no shared counter to keep.
func NewLocalRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return NewRateLimiter(nil, cfg)
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := rl.take(r.Context(), rl.key(r))

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))

		if !v.allowed {
			retry := int(math.Ceil(v.retryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			h.Set("Retry-After", strconv.Itoa(retry))
			core.JSONError(w, core.RateLimitedError(retry))
			return
		}

		next.ServeHTTP(w, r)
	})
}

type verdict struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
}

func (rl *RateLimiter) take(ctx context.Context, key string) verdict {
	if rl.remote != nil {
		res, err := rl.remote.Allow(ctx, key, rl.limit)
		if err == nil {
			return verdict{
				allowed:    res.Allowed > 0,
				remaining:  res.Remaining,
				retryAfter: res.RetryAfter,
			}
		}
		slog.Debug("redis rate limiter unavailable, using local buckets",
			"error", err,
		)
	}
	return rl.local.take(key, time.Now())
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// bucketSet drops idle buckets while serving requests instead of running a
// background sweeper, so a limiter owns no goroutine.
type bucketSet struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	refill    rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
}

func newBucketSet(limit redis_rate.Limit) *bucketSet {
	refill := rate.Limit(0)
	if limit.Rate > 0 && limit.Period > 0 {
		refill = rate.Every(limit.Period / time.Duration(limit.Rate))
	}
	return &bucketSet{
		buckets: make(map[string]*bucket),
		refill:  refill,
		burst:   limit.Burst,
		window:  limit.Period,
	}
}

func (s *bucketSet) take(key string, now time.Time) verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > bucketIdleTTL {
		for k, b := range s.buckets {
			if now.Sub(b.seen) > bucketIdleTTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.refill, s.burst)}
		s.buckets[key] = b
	}
	b.seen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return verdict{retryAfter: s.window}
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return verdict{retryAfter: delay}
	}

	return verdict{
		allowed:   true,
		remaining: max(0, int(b.limiter.TokensAt(now))),
	}
}

// KeyByIP keys on the client address. Behind a proxy the last
// X-Forwarded-For hop is the one the proxy itself appended.
func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

// KeyByUser falls back to the client IP for anonymous requests.
func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.LastIndex(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[i+1:])
		}
		return strings.TrimSpace(xff)
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// PerWindow allows rate requests per window with bursts up to burst.
func PerWindow(rate, burst int, window time.Duration) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: window,
	}
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return PerWindow(rate, burst, time.Minute)
}

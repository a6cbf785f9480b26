// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type fakeVerifier map[string]*AccessTokenClaims

func (f fakeVerifier) VerifyAccessToken(_ context.Context, token string) (*AccessTokenClaims, error) {
	if token == "expired" {
		return nil, core.ErrTokenExpired
	}
	if claims, ok := f[token]; ok {
		return claims, nil
	}
	return nil, core.ErrTokenInvalid
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticatorAndRequireRole(t *testing.T) {
	verifier := fakeVerifier{
		"user":  {UserID: "u-1", Role: role.User, TenantID: "t-1"},
		"admin": {UserID: "u-2", Role: role.OrgAdmin, TenantID: "t-1"},
		"root":  {UserID: "u-3", Role: role.SuperAdmin},
	}
	h := Authenticator(verifier)(RequireRole(role.OrgAdmin)(okHandler))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"expired", "Bearer expired", http.StatusUnauthorized},
		{"user forbidden", "Bearer user", http.StatusForbidden},
		{"org admin", "Bearer admin", http.StatusOK},
		{"super admin ranks above", "bearer root", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, do(h, req).Code)
		})
	}
}

func TestExpiredTokenCode(t *testing.T) {
	h := Authenticator(fakeVerifier{})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")

	rec := do(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
}

func TestRequestIDGeneratedAndReused(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = do(h, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := core.NewLoggerTo(&buf, config.LogConfig{Level: "info", Format: "json"})

	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	do(h, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/brew"`)
	assert.Contains(t, buf.String(), `"request_id"`)
}

func TestSecurityHeaders(t *testing.T) {
	rec := do(SecurityHeaders(false)(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = do(SecurityHeaders(true)(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func exhaust(t *testing.T, h http.Handler, ip string, allowed int) {
	t.Helper()

	for i := 0; i < allowed; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":5000"
		require.Equal(t, http.StatusOK, do(h, req).Code, "request %d", i)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":5000"
	rec := do(h, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestLocalRateLimiter(t *testing.T) {
	rl := NewLocalRateLimiter(RateLimitConfig{Limit: PerMinute(2, 2)})
	h := rl.Handler(okHandler)

	exhaust(t, h, "10.0.0.1", 2)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, http.StatusOK, do(h, req).Code, "keys are per client")
}

func TestRedisRateLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRateLimiter(rdb, RateLimitConfig{Limit: PerMinute(3, 3)})
	exhaust(t, rl.Handler(okHandler), "10.0.0.3", 3)
}

func TestRedisRateLimiterFallsBackWhenDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	rl := NewRateLimiter(rdb, RateLimitConfig{Limit: PerMinute(1, 1)})
	exhaust(t, rl.Handler(okHandler), "10.0.0.4", 1)
}

func TestBucketSetSweepsIdleBuckets(t *testing.T) {
	s := newBucketSet(PerMinute(1, 1))
	start := time.Now()

	assert.True(t, s.take("a", start).allowed)
	denied := s.take("a", start)
	assert.False(t, denied.allowed)
	assert.Greater(t, denied.retryAfter, time.Duration(0))

	s.take("b", start.Add(2*bucketIdleTTL))
	assert.NotContains(t, s.buckets, "a")
	assert.Contains(t, s.buckets, "b")
}

func TestKeyByIPPrefersForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
	assert.Equal(t, "ratelimit:ip:2.2.2.2", KeyByIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "3.3.3.3:1234"
	assert.Equal(t, "ratelimit:ip:3.3.3.3", KeyByIP(req))

	ctx := context.WithValue(req.Context(), ClaimsKey, &AccessTokenClaims{UserID: "u-9"})
	assert.Equal(t, "ratelimit:user:u-9", KeyByUser(req.WithContext(ctx)))
}

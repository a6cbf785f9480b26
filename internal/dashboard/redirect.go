// AngelaMos | 2026
// redirect.go

package dashboard

import (
	"context"
	"net/http"
	"sync/atomic"
)

type redirectKey struct{}

type pendingRedirect struct {
	fired atomic.Bool
}

func trackRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), redirectKey{}, &pendingRedirect{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func markRedirect(ctx context.Context) {
	if p, ok := ctx.Value(redirectKey{}).(*pendingRedirect); ok {
		p.fired.Store(true)
	}
}

func redirected(ctx context.Context) bool {
	p, ok := ctx.Value(redirectKey{}).(*pendingRedirect)
	return ok && p.fired.Load()
}

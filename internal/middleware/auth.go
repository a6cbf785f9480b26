// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

const ClaimsKey contextKey = "jwt_claims"

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error)
}

// AccessTokenClaims is what a verified bearer token says about its holder.
// TenantID is empty for SUPER_ADMIN.
type AccessTokenClaims struct {
	UserID   string
	Email    string
	Role     role.Role
	TenantID string
}

// Authenticator rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				core.JSONError(w, core.UnauthorizedError("missing authorization token"))
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.JSONError(w, tokenError(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims)))
		})
	}
}

// RequireRole admits callers whose role ranks at or above required.
func RequireRole(required role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			switch {
			case claims == nil:
				core.JSONError(w, core.UnauthorizedError(""))
			case !role.AtLeast(claims.Role, required):
				core.JSONError(w, core.ForbiddenError(""))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// bearerToken accepts "Bearer <token>" with any scheme casing.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func tokenError(err error) error {
	if core.IsAppError(err) {
		return err
	}
	if errors.Is(err, core.ErrTokenExpired) {
		return core.TokenExpiredError()
	}
	return core.TokenInvalidError()
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	claims, _ := ctx.Value(ClaimsKey).(*AccessTokenClaims)
	return claims
}

func GetUserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

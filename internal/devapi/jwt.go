// AngelaMos | 2026
// jwt.go

package devapi

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/middleware"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

const (
	claimEmail  = "email"
	claimRole   = "role"
	claimTenant = "tenant_id"
	claimType   = "type"
	accessType  = "access"
)

// JWTManager issues and verifies ES256 access tokens for the seeded users.
type JWTManager struct {
	signer   jwk.Key
	verifier jwk.Key
	jwks     jwk.Set
	keyID    string
	cfg      config.JWTConfig
}

// NewJWTManager signs with the PEM key at PrivateKeyPath, or with a fresh
// P-256 key when no path is configured. Tokens from an ephemeral key die with
// the process.
func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	signer, err := signingKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	keyID := uuid.NewString()[:8]
	for name, value := range map[string]any{
		jwk.AlgorithmKey: jwa.ES256(),
		jwk.KeyIDKey:     keyID,
	} {
		if err := signer.Set(name, value); err != nil {
			return nil, fmt.Errorf("set %s on signing key: %w", name, err)
		}
	}

	verifier, err := signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	if err := verifier.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(verifier); err != nil {
		return nil, fmt.Errorf("publish public key: %w", err)
	}

	return &JWTManager{
		signer:   signer,
		verifier: verifier,
		jwks:     jwks,
		keyID:    keyID,
		cfg:      cfg,
	}, nil
}

func signingKey(path string) (jwk.Key, error) {
	if path != "" {
		pemBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		key, err := jwk.ParseKey(pemBytes, jwk.WithPEM(true))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return key, nil
	}

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	key, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("import generated key: %w", err)
	}
	return key, nil
}

// CreateAccessToken omits tenant_id for users without a tenant.
func (m *JWTManager) CreateAccessToken(u *User) (string, error) {
	now := time.Now()

	builder := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(m.cfg.Issuer).
		Audience([]string{m.cfg.Audience}).
		Subject(u.ID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(m.cfg.AccessTokenExpire)).
		Claim(claimType, accessType).
		Claim(claimEmail, u.Email).
		Claim(claimRole, u.Role.String())
	if u.TenantID != "" {
		builder = builder.Claim(claimTenant, u.TenantID)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.signer))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verifier),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
	)
	if err != nil {
		if expired(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	if stringClaim(token, claimType) != accessType {
		return nil, fmt.Errorf("verify token: not an access token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	}

	r, err := role.Parse(stringClaim(token, claimRole))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w: %w", core.ErrTokenInvalid, err)
	}

	return &middleware.AccessTokenClaims{
		UserID:   subject,
		Email:    stringClaim(token, claimEmail),
		Role:     r,
		TenantID: stringClaim(token, claimTenant),
	}, nil
}

// stringClaim reads a private claim, empty when absent or not a string.
func stringClaim(token jwt.Token, name string) string {
	var v string
	if err := token.Get(name, &v); err != nil {
		return ""
	}
	return v
}

// expired matches jwx's `"exp" not satisfied` validation failure.
func expired(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "exp") && strings.Contains(msg, "not satisfied")
}

func (m *JWTManager) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		core.JSON(w, http.StatusOK, m.jwks)
	}
}

func (m *JWTManager) KeyID() string {
	return m.keyID
}

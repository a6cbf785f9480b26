// AngelaMos | 2026
// devapi_test.go

package devapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *core.ErrorBody `json:"error"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.RateLimit.Requests = 1000
	cfg.RateLimit.Burst = 1000
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *App) {
	t.Helper()

	app, err := New(cfg, nil, nil)
	require.NoError(t, err)

	router := chi.NewRouter()
	app.Mount(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, app
}

func login(t *testing.T, baseURL, email, password string) (*http.Response, []byte) {
	t.Helper()

	body := `{"email":"` + email + `","password":"` + password + `"}`
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp, raw
}

func tokenFor(t *testing.T, baseURL, email string) string {
	t.Helper()

	resp, raw := login(t, baseURL, email, DevPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var out LoginResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out.AccessToken
}

func get(t *testing.T, baseURL, path, token string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	srv, app := newTestServer(t, testConfig(t))

	resp, raw := login(t, srv.URL, "Admin@North.Farm.Test", DevPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out LoginResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, "admin@north.farm.test", out.User.Email)
	assert.Equal(t, role.OrgAdmin, out.User.Role)
	require.NotNil(t, out.User.TenantID)
	assert.Equal(t, TenantNorth, *out.User.TenantID)

	claims, err := app.JWT.VerifyAccessToken(context.Background(), out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, claims.UserID)
	assert.Equal(t, role.OrgAdmin, claims.Role)
	assert.Equal(t, TenantNorth, claims.TenantID)
}

func TestSuperAdminHasNullTenant(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	resp, raw := login(t, srv.URL, "root@farm.test", DevPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"tenantId":null`)
	assert.Contains(t, string(raw), `"role":"SUPER_ADMIN"`)
}

func TestLoginFailures(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	tests := []struct {
		name     string
		email    string
		password string
		status   int
		message  string
	}{
		{"wrong password", "worker@north.farm.test", "nope", http.StatusUnauthorized, "invalid email or password"},
		{"unknown user", "ghost@farm.test", DevPassword, http.StatusUnauthorized, "invalid email or password"},
		{"malformed email", "not-an-email", DevPassword, http.StatusBadRequest, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := login(t, srv.URL, tt.email, tt.password)
			assert.Equal(t, tt.status, resp.StatusCode)

			var env envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			require.NotNil(t, env.Error)
			assert.Contains(t, env.Error.Message, tt.message)
		})
	}
}

func TestResourcesAreTenantScoped(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	status, env := get(t, srv.URL, "/api/persons", tokenFor(t, srv.URL, "worker@south.farm.test"))
	require.Equal(t, http.StatusOK, status)

	var rows []Row
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Carla Dias", rows[0]["name"])

	status, env = get(t, srv.URL, "/api/persons", tokenFor(t, srv.URL, "root@farm.test"))
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	assert.Len(t, rows, 3)
}

func TestResourceAuthorization(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	worker := tokenFor(t, srv.URL, "worker@north.farm.test")
	admin := tokenFor(t, srv.URL, "admin@north.farm.test")
	root := tokenFor(t, srv.URL, "root@farm.test")

	tests := []struct {
		path   string
		token  string
		status int
	}{
		{"/api/persons", "", http.StatusUnauthorized},
		{"/api/persons", "garbage", http.StatusUnauthorized},
		{"/api/organizations", worker, http.StatusForbidden},
		{"/api/organizations", admin, http.StatusOK},
		{"/api/invoices", worker, http.StatusForbidden},
		{"/api/users", worker, http.StatusForbidden},
		{"/api/users", admin, http.StatusOK},
		{"/api/tenants", admin, http.StatusForbidden},
		{"/api/tenants", root, http.StatusOK},
		{"/api/harvests", root, http.StatusNotFound},
		{"/api/auth/me", worker, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, _ := get(t, srv.URL, tt.path, tt.token)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.AccessTokenExpire = -time.Minute
	srv, _ := newTestServer(t, cfg)

	status, env := get(t, srv.URL, "/api/persons", tokenFor(t, srv.URL, "worker@north.farm.test"))
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_EXPIRED", env.Error.Code)
}

func TestTokenFromAnotherKeyRejected(t *testing.T) {
	cfg := testConfig(t)
	srvA, _ := newTestServer(t, cfg)
	srvB, _ := newTestServer(t, cfg)

	token := tokenFor(t, srvA.URL, "worker@north.farm.test")
	status, _ := get(t, srvB.URL, "/api/persons", token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginRateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Requests = 2
	cfg.RateLimit.Burst = 2
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		resp, _ := login(t, srv.URL, "ghost@farm.test", "x")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, _ := login(t, srv.URL, "ghost@farm.test", "x")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestNewDirectoryRejectsBadSeeds(t *testing.T) {
	_, err := NewDirectory([]config.SeedUser{{Email: "a@x.com", Password: "p", Role: "OWNER", TenantID: "t"}})
	require.Error(t, err)

	_, err = NewDirectory([]config.SeedUser{{Email: "a@x.com", Password: "p", Role: "USER"}})
	require.ErrorContains(t, err, "tenant_id is required")

	_, err = NewDirectory([]config.SeedUser{
		{Email: "a@x.com", Password: "p", Role: "SUPER_ADMIN"},
		{Email: "A@x.com", Password: "p", Role: "SUPER_ADMIN"},
	})
	require.ErrorContains(t, err, "duplicate")
}

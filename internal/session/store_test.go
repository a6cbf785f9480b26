// AngelaMos | 2026
// store_test.go

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/events"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

type loginUser struct {
	password string
	user     map[string]any
}

func newLoginServer(t *testing.T, users map[string]loginUser) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != LoginPath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		u, ok := users[creds.Email]
		if !ok || u.password != creds.Password {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "access-" + creds.Email,
			"refreshToken": "refresh-" + creds.Email,
			"user":         u.user,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func defaultUsers() map[string]loginUser {
	return map[string]loginUser{
		"a@x.com": {
			password: "secret",
			user: map[string]any{
				"id":       "u-1",
				"email":    "a@x.com",
				"role":     "ORG_ADMIN",
				"tenantId": "tenant-north",
			},
		},
		"root@x.com": {
			password: "secret",
			user: map[string]any{
				"id":       "u-0",
				"email":    "root@x.com",
				"role":     "SUPER_ADMIN",
				"tenantId": nil,
			},
		},
		"worker@x.com": {
			password: "secret",
			user: map[string]any{
				"id":       "u-2",
				"email":    "worker@x.com",
				"role":     "USER",
				"tenantId": "tenant-north",
			},
		},
	}
}

func newTestStore(t *testing.T, baseURL string, storage Storage, bus *events.Bus) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), StoreConfig{
		Storage:       storage,
		Authenticator: NewHTTPAuthenticator(baseURL, 2*time.Second),
		Bus:           bus,
	})
	require.NoError(t, err)
	return store
}

func TestLoginThenRestoreRoundTrip(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	storage := NewMemoryStorage()
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "root@x.com", "worker@x.com"} {
		t.Run(email, func(t *testing.T) {
			store := newTestStore(t, srv.URL, storage, nil)

			sess, err := store.Login(ctx, email, "secret")
			require.NoError(t, err)
			assert.True(t, store.IsAuthenticated())

			reloaded := newTestStore(t, srv.URL, storage, nil)
			restored, ok := reloaded.Session()
			require.True(t, ok)
			assert.Equal(t, sess.Identity, restored.Identity)
			assert.Equal(t, sess.AccessToken, restored.AccessToken)
			assert.Equal(t, sess.RefreshToken, restored.RefreshToken)
			assert.True(t, reloaded.IsAuthenticated())
		})
	}
}

func TestLoginReplacesIdentityWholesale(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	store := newTestStore(t, srv.URL, NewMemoryStorage(), nil)
	ctx := context.Background()

	_, err := store.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)
	_, err = store.Login(ctx, "root@x.com", "secret")
	require.NoError(t, err)

	id, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, "u-0", id.ID)
	assert.Nil(t, id.TenantID)
	assert.True(t, store.IsSuperAdmin())
}

func TestLogoutThenRestore(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	storage := NewMemoryStorage()
	ctx := context.Background()

	store := newTestStore(t, srv.URL, storage, nil)
	_, err := store.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	store.Logout(ctx)
	assert.False(t, store.IsAuthenticated())
	assert.Zero(t, storage.Len())

	assert.Nil(t, store.Restore(ctx))
	assert.False(t, store.IsAuthenticated())

	assert.NotPanics(t, func() { store.Logout(ctx) })
	assert.False(t, store.IsAuthenticated())
}

func TestRestoreWithOneKeyMissing(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	ctx := context.Background()

	for _, missing := range sessionKeys {
		t.Run(missing, func(t *testing.T) {
			storage := NewMemoryStorage()
			store := newTestStore(t, srv.URL, storage, nil)
			_, err := store.Login(ctx, "a@x.com", "secret")
			require.NoError(t, err)

			require.NoError(t, storage.Remove(ctx, missing))

			var sess *Session
			assert.NotPanics(t, func() { sess = store.Restore(ctx) })
			assert.Nil(t, sess)
			assert.False(t, store.IsAuthenticated())
			assert.Zero(t, storage.Len(), "partial keys are discarded")
		})
	}
}

func TestRestoreDiscardsCorruptIdentity(t *testing.T) {
	tests := []struct {
		name string
		user string
	}{
		{name: "not json", user: "{not-json"},
		{name: "unknown role", user: `{"id":"u-1","email":"a@x.com","role":"OWNER","tenantId":"t"}`},
		{name: "missing email", user: `{"id":"u-1","role":"USER","tenantId":"t"}`},
		{name: "tenant missing for org admin", user: `{"id":"u-1","email":"a@x.com","role":"ORG_ADMIN"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := NewMemoryStorage()
			require.NoError(t, storage.Save(ctx, map[string]string{
				KeyAccessToken:  "a",
				KeyRefreshToken: "r",
				KeyUser:         tt.user,
			}))

			store := newTestStore(t, "http://127.0.0.1:1", storage, nil)
			assert.False(t, store.IsAuthenticated())
			assert.Zero(t, storage.Len())
		})
	}
}

func TestRoleModelPredicates(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	ctx := context.Background()

	tests := []struct {
		email      string
		superAdmin bool
		orgAdmin   bool
		regular    bool
	}{
		{email: "root@x.com", superAdmin: true, orgAdmin: true},
		{email: "a@x.com", orgAdmin: true},
		{email: "worker@x.com", regular: true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			store := newTestStore(t, srv.URL, NewMemoryStorage(), nil)
			_, err := store.Login(ctx, tt.email, "secret")
			require.NoError(t, err)

			assert.Equal(t, tt.superAdmin, store.IsSuperAdmin())
			assert.Equal(t, tt.orgAdmin, store.IsOrgAdmin())
			assert.Equal(t, tt.regular, store.IsRegularUser())
			assert.True(t, store.HasRole(role.User))
		})
	}

	t.Run("no session", func(t *testing.T) {
		store := newTestStore(t, srv.URL, NewMemoryStorage(), nil)
		assert.False(t, store.IsSuperAdmin())
		assert.False(t, store.IsOrgAdmin())
		assert.False(t, store.IsRegularUser())
		assert.False(t, store.HasRole(role.User))
		assert.Empty(t, store.AccessToken())
	})
}

func TestLoginRejectedCredentials(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	storage := NewMemoryStorage()
	store := newTestStore(t, srv.URL, storage, nil)

	sess, err := store.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.Nil(t, sess)

	authErr, ok := AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Zero(t, storage.Len(), "no storage keys written")
	assert.False(t, store.IsAuthenticated())
}

func TestLoginFailureKeepsPriorSession(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	store := newTestStore(t, srv.URL, NewMemoryStorage(), nil)
	ctx := context.Background()

	_, err := store.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	_, err = store.Login(ctx, "root@x.com", "wrong")
	require.Error(t, err)

	id, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, "a@x.com", id.Email)
}

func TestLoginFailureDefaultMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL, NewMemoryStorage(), nil)
	_, err := store.Login(context.Background(), "a@x.com", "secret")

	authErr, ok := AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, defaultLoginFailure, authErr.Message)
	assert.Equal(t, http.StatusInternalServerError, authErr.StatusCode)
}

func TestLoginServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	storage := NewMemoryStorage()
	store := newTestStore(t, url, storage, nil)

	_, err := store.Login(context.Background(), "a@x.com", "secret")
	authErr, ok := AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, StatusUnreachable, authErr.StatusCode)
	assert.True(t, authErr.Unreachable())
	assert.Contains(t, authErr.Message, url+LoginPath)
	assert.Zero(t, storage.Len())
}

func TestLoginMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"a","user":{"id":"u","email":"a@x.com","role":"USER","tenantId":"t"}}`))
	}))
	defer srv.Close()

	storage := NewMemoryStorage()
	store := newTestStore(t, srv.URL, storage, nil)

	_, err := store.Login(context.Background(), "a@x.com", "secret")
	authErr, ok := AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid login response", authErr.Message)
	assert.Equal(t, http.StatusOK, authErr.StatusCode)
	assert.Zero(t, storage.Len())
}

func TestLoginValidatesInputBeforeSending(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL, NewMemoryStorage(), nil)

	_, err := store.Login(context.Background(), "not-an-email", "")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "email")
	assert.Zero(t, calls)
}

func TestUnauthorizedEventClearsSessionAndRedirectsOnce(t *testing.T) {
	srv := newLoginServer(t, defaultUsers())
	storage := NewMemoryStorage()
	bus := events.NewBus(nil)
	store := newTestStore(t, srv.URL, storage, bus)
	ctx := context.Background()

	_, err := store.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	stale := 0
	store.OnUnauthorized(func(context.Context) { stale++ })

	redirects := 0
	store.OnUnauthorized(func(context.Context) { redirects++ })

	evt := events.Unauthorized{Method: http.MethodGet, Path: "/api/persons", StatusCode: 401}
	bus.Publish(ctx, evt)
	bus.Publish(ctx, evt)

	assert.False(t, store.IsAuthenticated())
	assert.Zero(t, storage.Len())
	assert.Equal(t, 1, redirects)
	assert.Zero(t, stale, "replaced callback never fires")

	assert.Nil(t, store.Restore(ctx))
}

func TestNewStoreRequiresDependencies(t *testing.T) {
	_, err := NewStore(context.Background(), StoreConfig{})
	assert.Error(t, err)

	_, err = NewStore(context.Background(), StoreConfig{Storage: NewMemoryStorage()})
	assert.Error(t, err)
}

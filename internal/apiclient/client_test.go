// AngelaMos | 2026
// client_test.go

package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/events"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func TestListSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/persons", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p-1","name":"Ana"}]`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL + "/", Tokens: staticToken("tok")})

	rows, err := client.List(context.Background(), "/api/persons")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0]["name"])
}

func TestListAcceptsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"m-1"},{"id":"m-2"}]}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Tokens: staticToken("tok")})

	rows, err := client.List(context.Background(), "/api/machines")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestNoSessionSendsNothing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Tokens: staticToken("")})

	_, err := client.List(context.Background(), "/api/persons")
	require.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, hits.Load())
}

func TestUnauthorizedPublishesEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	bus := events.NewBus(core.DiscardLogger())
	var got []events.Unauthorized
	bus.Subscribe(func(_ context.Context, evt events.Unauthorized) {
		got = append(got, evt)
	})

	client := New(Config{BaseURL: srv.URL, Tokens: staticToken("stale"), Bus: bus})

	_, err := client.List(context.Background(), "/api/invoices")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Len(t, got, 1)
	assert.Equal(t, events.Unauthorized{
		Method:     http.MethodGet,
		Path:       "/api/invoices",
		StatusCode: http.StatusUnauthorized,
	}, got[0])
}

func TestForbiddenIsNotUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"organization admins only"}`))
	}))
	defer srv.Close()

	bus := events.NewBus(core.DiscardLogger())
	published := false
	bus.Subscribe(func(context.Context, events.Unauthorized) { published = true })

	client := New(Config{BaseURL: srv.URL, Tokens: staticToken("tok"), Bus: bus})

	_, err := client.List(context.Background(), "/api/organizations")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "organization admins only", statusErr.Message)
	assert.False(t, published)
}

func TestCanceledContextStopsThrottledRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := New(Config{
		BaseURL:           srv.URL,
		Tokens:            staticToken("tok"),
		RequestsPerSecond: 0.001,
		Burst:             1,
	})

	_, err := client.List(context.Background(), "/api/stock")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.List(ctx, "/api/stock")
	assert.Error(t, err)
}

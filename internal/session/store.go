// AngelaMos | 2026
// store.go

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/events"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

type StoreConfig struct {
	Storage       Storage
	Authenticator Authenticator
	Bus           *events.Bus
	Logger        *slog.Logger
	Tracer        trace.Tracer
}

// Store owns who is logged in. It is the only writer of persisted
// credentials and restores them once when constructed.
type Store struct {
	storage Storage
	auth    Authenticator
	logger  *slog.Logger
	tracer  trace.Tracer

	mu       sync.RWMutex
	current  *Session
	redirect func(ctx context.Context)
}

func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.Storage == nil {
		return nil, errors.New("session store: storage is required")
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("session store: authenticator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = core.DiscardLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = core.NoopTracer()
	}

	s := &Store{
		storage: cfg.Storage,
		auth:    cfg.Authenticator,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
	}

	if cfg.Bus != nil {
		cfg.Bus.Subscribe(s.handleUnauthorized)
	}

	s.Restore(ctx)

	return s, nil
}

func (s *Store) Login(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.login")
	defer span.End()

	creds := Credentials{
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := validate.Struct(creds); err != nil {
		return nil, &ValidationError{Message: core.FormatValidationError(err)}
	}

	result, err := s.auth.Authenticate(ctx, creds)
	if err != nil {
		core.SetSpanError(ctx, err)
		s.logger.Warn("login rejected", "email", creds.Email, "error", err)
		return nil, err
	}

	sess := Session{
		Identity:     result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	if !sess.complete() {
		err := &AuthError{
			Message:    "invalid login response",
			StatusCode: result.StatusCode,
		}
		core.SetSpanError(ctx, err)
		return nil, err
	}

	if err := s.persist(ctx, sess); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	span.SetAttributes(attribute.String("user.role", sess.Identity.Role.String()))
	s.logger.Info("logged in",
		"user_id", sess.Identity.ID,
		"role", sess.Identity.Role.String(),
		"tenant_id", sess.Identity.Tenant(),
	)

	out := sess
	return &out, nil
}

func (s *Store) persist(ctx context.Context, sess Session) error {
	user, err := json.Marshal(sess.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	return s.storage.Save(ctx, map[string]string{
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
		KeyUser:         string(user),
	})
}

// Restore rehydrates the session from storage. Anything short of a complete,
// decodable session is discarded and the store stays logged out.
func (s *Store) Restore(ctx context.Context) *Session {
	ctx, span := s.tracer.Start(ctx, "session.restore")
	defer span.End()

	sess, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("discarding persisted session", "error", err)
		s.clearStorage(ctx)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if sess == nil {
		return nil
	}

	out := *sess
	return &out
}

func (s *Store) load(ctx context.Context) (*Session, error) {
	values, err := s.storage.Load(ctx, sessionKeys...)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if len(values) == 0 {
		return nil, nil
	}

	access := values[KeyAccessToken]
	refresh := values[KeyRefreshToken]
	user := values[KeyUser]
	if access == "" || refresh == "" || user == "" {
		return nil, fmt.Errorf("incomplete session (%d of %d keys): %w",
			len(values), len(sessionKeys), ErrStorageCorrupt)
	}

	var identity Identity
	if err := json.Unmarshal([]byte(user), &identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", ErrStorageCorrupt)
	}
	if err := identity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageCorrupt, err)
	}

	return &Session{
		Identity:     identity,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Logout clears storage and memory. It never fails; storage errors are logged.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	s.clearStorage(ctx)

	if had {
		s.logger.Info("logged out")
	}
}

func (s *Store) clearStorage(ctx context.Context) {
	if err := s.storage.Remove(ctx, sessionKeys...); err != nil {
		s.logger.Warn("clear persisted session", "error", err)
	}
}

// OnUnauthorized registers the redirect to run after a server-side rejection
// clears the session. Registering again replaces the previous callback.
func (s *Store) OnUnauthorized(callback func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = callback
}

func (s *Store) handleUnauthorized(ctx context.Context, evt events.Unauthorized) {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	redirect := s.redirect
	s.mu.Unlock()

	s.clearStorage(ctx)

	if !had {
		return
	}

	s.logger.Warn("session rejected by server",
		"method", evt.Method,
		"path", evt.Path,
		"status", evt.StatusCode,
	)

	if redirect != nil {
		redirect(ctx)
	}
}

func (s *Store) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

func (s *Store) Current() (Identity, bool) {
	sess, ok := s.Session()
	return sess.Identity, ok
}

func (s *Store) IsAuthenticated() bool {
	_, ok := s.Session()
	return ok
}

func (s *Store) AccessToken() string {
	sess, _ := s.Session()
	return sess.AccessToken
}

func (s *Store) Role() (role.Role, bool) {
	id, ok := s.Current()
	if !ok {
		return role.Unknown, false
	}
	return id.Role, true
}

func (s *Store) HasRole(required role.Role) bool {
	r, ok := s.Role()
	return ok && role.AtLeast(r, required)
}

func (s *Store) IsSuperAdmin() bool {
	r, ok := s.Role()
	return ok && r == role.SuperAdmin
}

// IsOrgAdmin is true for ORG_ADMIN and SUPER_ADMIN.
func (s *Store) IsOrgAdmin() bool {
	return s.HasRole(role.OrgAdmin)
}

func (s *Store) IsRegularUser() bool {
	r, ok := s.Role()
	return ok && r == role.User
}

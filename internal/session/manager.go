package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/auth"
	"github.com/geocoder89/givehub/internal/domain/role"
	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/domain/user"
)

// State is the outcome of hydrating a visitor's session.
type State int

const (
	// StateLoading means the store could not be read; no redirect decision
	// may be made on it.
	StateLoading State = iota
	StateAnonymous
	StateReady
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateAnonymous:
		return "anonymous"
	default:
		return "loading"
	}
}

var ErrInvalidAuthResponse = errors.New("backend auth response has no usable identity")

// Authenticator is the slice of the backend client the manager needs.
type Authenticator interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*user.AuthResult, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*user.AuthResult, error)
}

// Manager is the auth context: it turns backend auth responses into stored
// sessions and answers "who is this visitor" for every request.
type Manager struct {
	store   Store
	backend Authenticator
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewManager(store Store, backend Authenticator, ttl time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		backend: backend,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

func (m *Manager) Login(ctx context.Context, sid, email, password string) (dsession.Session, error) {
	res, err := m.backend.Login(ctx, apiclient.LoginRequest{Email: email, Password: password})
	if err != nil {
		return dsession.Session{}, err
	}
	return m.persist(ctx, sid, res)
}

func (m *Manager) Register(ctx context.Context, sid, name, email, password string, r role.Role) (dsession.Session, error) {
	res, err := m.backend.Register(ctx, apiclient.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     r,
	})
	if err != nil {
		return dsession.Session{}, err
	}
	return m.persist(ctx, sid, res)
}

func (m *Manager) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := m.store.Clear(ctx, sid, "logout"); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.log.InfoContext(ctx, "session.logout")
	return nil
}

// Hydrate resolves the session for sid. An expired credential is cleared
// and reported as anonymous.
func (m *Manager) Hydrate(ctx context.Context, sid string) (dsession.Session, State, error) {
	if sid == "" {
		return dsession.Session{}, StateAnonymous, nil
	}

	s, err := m.store.Get(ctx, sid)
	if errors.Is(err, ErrNoSession) {
		return dsession.Session{}, StateAnonymous, nil
	}
	if err != nil {
		return dsession.Session{}, StateLoading, err
	}

	if auth.Expired(s.Credential, m.now()) {
		if err := m.store.Clear(ctx, sid, "expired"); err != nil {
			m.log.WarnContext(ctx, "session.expire_failed", "err", err)
		}
		return dsession.Session{}, StateAnonymous, nil
	}

	return s, StateReady, nil
}

// Update rewrites the stored identity after a profile edit.
func (m *Manager) Update(ctx context.Context, sid, name, email string) (dsession.Session, error) {
	s, err := m.store.Get(ctx, sid)
	if err != nil {
		return dsession.Session{}, err
	}

	s.Name = name
	s.Email = email
	if err := m.store.Set(ctx, sid, s, m.ttlFor(s.Credential)); err != nil {
		return dsession.Session{}, err
	}
	return s, nil
}

// Subscribe streams identity changes for sid until ctx is done.
func (m *Manager) Subscribe(ctx context.Context, sid string) (<-chan dsession.Change, error) {
	return m.store.Subscribe(ctx, sid)
}

// Credential implements apiclient.SessionHooks.
func (m *Manager) Credential(ctx context.Context) string {
	sid, ok := actorctx.SessionIDFrom(ctx)
	if !ok {
		return ""
	}

	s, err := m.store.Get(ctx, sid)
	if err != nil {
		return ""
	}
	return s.Credential
}

// Expire implements apiclient.SessionHooks: the backend rejected the
// credential, so the session is dropped.
func (m *Manager) Expire(ctx context.Context) {
	sid, ok := actorctx.SessionIDFrom(ctx)
	if !ok {
		return
	}

	if err := m.store.Clear(ctx, sid, "expired"); err != nil {
		m.log.WarnContext(ctx, "session.expire_failed", "err", err)
		return
	}
	m.log.InfoContext(ctx, "session.expired_by_backend")
}

// SetAuthenticator completes construction when the backend client itself
// needs the manager as its session hooks.
func (m *Manager) SetAuthenticator(a Authenticator) {
	m.backend = a
}

func (m *Manager) persist(ctx context.Context, sid string, res *user.AuthResult) (dsession.Session, error) {
	if res == nil || res.Token == "" || !res.Role.IsValid() {
		return dsession.Session{}, ErrInvalidAuthResponse
	}

	s := dsession.Session{
		ID:         res.ID,
		Name:       res.Name,
		Email:      res.Email,
		Role:       res.Role,
		Credential: res.Token,
		CreatedAt:  m.now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return dsession.Session{}, ErrInvalidAuthResponse
	}

	if err := m.store.Set(ctx, sid, s, m.ttlFor(s.Credential)); err != nil {
		return dsession.Session{}, fmt.Errorf("persist session: %w", err)
	}
	m.retire(ctx, sid)

	m.log.InfoContext(ctx, "session.login", "user_id", s.ID, "role", s.Role)
	return s, nil
}

// retire drops whatever session the request arrived with once a new one is
// stored under sid, so a pre-login id never carries the new identity.
func (m *Manager) retire(ctx context.Context, sid string) {
	prev, ok := actorctx.SessionIDFrom(ctx)
	if !ok || prev == sid {
		return
	}
	if _, err := m.store.Get(ctx, prev); err != nil {
		return
	}
	if err := m.store.Clear(ctx, prev, "rotated"); err != nil {
		m.log.WarnContext(ctx, "session.rotate_clear_failed", "err", err)
	}
}

// ttlFor caps the configured ttl at the credential's own expiry.
func (m *Manager) ttlFor(credential string) time.Duration {
	ttl := m.ttl
	if exp, ok := auth.ExpiresAt(credential); ok {
		if left := exp.Sub(m.now()); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl
}

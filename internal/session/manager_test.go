package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/domain/role"
	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

type fakeAuthenticator struct {
	loginFn    func(ctx context.Context, req apiclient.LoginRequest) (*user.AuthResult, error)
	registerFn func(ctx context.Context, req apiclient.RegisterRequest) (*user.AuthResult, error)
}

func (f *fakeAuthenticator) Login(ctx context.Context, req apiclient.LoginRequest) (*user.AuthResult, error) {
	return f.loginFn(ctx, req)
}

func (f *fakeAuthenticator) Register(ctx context.Context, req apiclient.RegisterRequest) (*user.AuthResult, error) {
	return f.registerFn(ctx, req)
}

// unavailableStore fails every read like an unreachable Redis would.
type unavailableStore struct{ *MemoryStore }

func (unavailableStore) Get(context.Context, string) (dsession.Session, error) {
	return dsession.Session{}, errors.New("dial tcp: connection refused")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(d)),
	}).SignedString([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func authResult(id string, r role.Role, token string) *user.AuthResult {
	return &user.AuthResult{
		User:  user.User{ID: id, Name: "Ada", Email: "ada@example.com", Role: r},
		Token: token,
	}
}

func TestLoginPersistsAndHydrates(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, &fakeAuthenticator{
		loginFn: func(_ context.Context, req apiclient.LoginRequest) (*user.AuthResult, error) {
			if req.Email != "ada@example.com" || req.Password != "secret" {
				t.Fatalf("unexpected login request: %+v", req)
			}
			return authResult("u1", role.Volunteer, "tok-1"), nil
		},
	}, time.Hour, discardLogger())

	ctx := context.Background()
	if _, err := m.Login(ctx, "sid-1", "ada@example.com", "secret"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	s, state, err := m.Hydrate(ctx, "sid-1")
	if err != nil || state != StateReady {
		t.Fatalf("Hydrate() = %v, %v", state, err)
	}
	if s.Role != role.Volunteer || s.Credential != "tok-1" {
		t.Fatalf("unexpected session: %+v", s)
	}

	if got := m.Credential(actorctx.WithSessionID(ctx, "sid-1")); got != "tok-1" {
		t.Fatalf("Credential() = %q", got)
	}
}

func TestLoginErrorPropagatesAndStoresNothing(t *testing.T) {
	wantErr := errors.New("HTTP 401: Invalid credentials")
	store := NewMemoryStore()
	m := NewManager(store, &fakeAuthenticator{
		loginFn: func(context.Context, apiclient.LoginRequest) (*user.AuthResult, error) {
			return nil, wantErr
		},
	}, time.Hour, discardLogger())

	_, err := m.Login(context.Background(), "sid-1", "a@b.co", "bad")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if _, state, _ := m.Hydrate(context.Background(), "sid-1"); state != StateAnonymous {
		t.Fatalf("expected anonymous after failed login, got %v", state)
	}
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeAuthenticator{
		loginFn: func(context.Context, apiclient.LoginRequest) (*user.AuthResult, error) {
			return authResult("u1", role.Role("superuser"), "tok"), nil
		},
	}, time.Hour, discardLogger())

	if _, err := m.Login(context.Background(), "sid", "a@b.co", "x"); !errors.Is(err, ErrInvalidAuthResponse) {
		t.Fatalf("expected ErrInvalidAuthResponse, got %v", err)
	}
}

func TestSecondLoginOverwrites(t *testing.T) {
	calls := 0
	m := NewManager(NewMemoryStore(), &fakeAuthenticator{
		loginFn: func(context.Context, apiclient.LoginRequest) (*user.AuthResult, error) {
			calls++
			if calls == 1 {
				return authResult("u1", role.User, "tok-1"), nil
			}
			return authResult("u2", role.Admin, "tok-2"), nil
		},
	}, time.Hour, discardLogger())

	ctx := context.Background()
	_, _ = m.Login(ctx, "sid", "a@b.co", "x")
	_, _ = m.Login(ctx, "sid", "c@d.co", "y")

	s, _, _ := m.Hydrate(ctx, "sid")
	if s.ID != "u2" || s.Role != role.Admin {
		t.Fatalf("expected second login to win, got %+v", s)
	}
}

func TestLoginUnderNewIDRetiresRequestSession(t *testing.T) {
	calls := 0
	m := NewManager(NewMemoryStore(), &fakeAuthenticator{
		loginFn: func(context.Context, apiclient.LoginRequest) (*user.AuthResult, error) {
			calls++
			if calls == 1 {
				return authResult("u1", role.User, "tok-1"), nil
			}
			return authResult("u2", role.Admin, "tok-2"), nil
		},
	}, time.Hour, discardLogger())

	if _, err := m.Login(context.Background(), "old", "a@b.co", "x"); err != nil {
		t.Fatalf("first Login() error: %v", err)
	}

	ctx := actorctx.WithSessionID(context.Background(), "old")
	if _, err := m.Login(ctx, "new", "c@d.co", "y"); err != nil {
		t.Fatalf("second Login() error: %v", err)
	}

	if _, state, _ := m.Hydrate(ctx, "old"); state != StateAnonymous {
		t.Fatalf("old id state = %v, want anonymous", state)
	}
	s, state, _ := m.Hydrate(ctx, "new")
	if state != StateReady || s.ID != "u2" {
		t.Fatalf("new id = %+v %v", s, state)
	}
}

func TestHydrateStates(t *testing.T) {
	ctx := context.Background()

	t.Run("no cookie", func(t *testing.T) {
		m := NewManager(NewMemoryStore(), nil, time.Hour, discardLogger())
		if _, state, _ := m.Hydrate(ctx, ""); state != StateAnonymous {
			t.Fatalf("got %v", state)
		}
	})

	t.Run("malformed data is cleared", func(t *testing.T) {
		store := NewMemoryStore()
		store.PutRaw("sid", []byte(`{"id":`))
		m := NewManager(store, nil, time.Hour, discardLogger())

		if _, state, err := m.Hydrate(ctx, "sid"); state != StateAnonymous || err != nil {
			t.Fatalf("got %v, %v", state, err)
		}
		if _, err := store.Get(ctx, "sid"); !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected malformed entry removed, got %v", err)
		}
	})

	t.Run("unknown role is malformed", func(t *testing.T) {
		store := NewMemoryStore()
		store.PutRaw("sid", []byte(`{"id":"u1","role":"root","credential":"tok"}`))
		m := NewManager(store, nil, time.Hour, discardLogger())

		if _, state, _ := m.Hydrate(ctx, "sid"); state != StateAnonymous {
			t.Fatalf("got %v", state)
		}
	})

	t.Run("expired credential", func(t *testing.T) {
		store := NewMemoryStore()
		_ = store.Set(ctx, "sid", dsession.Session{
			ID: "u1", Role: role.User, Credential: tokenExpiringIn(t, -time.Minute),
		}, time.Hour)
		m := NewManager(store, nil, time.Hour, discardLogger())

		if _, state, _ := m.Hydrate(ctx, "sid"); state != StateAnonymous {
			t.Fatalf("got %v", state)
		}
	})

	t.Run("store unreachable", func(t *testing.T) {
		m := NewManager(unavailableStore{NewMemoryStore()}, nil, time.Hour, discardLogger())
		_, state, err := m.Hydrate(ctx, "sid")
		if state != StateLoading || err == nil {
			t.Fatalf("got %v, %v", state, err)
		}
	})
}

func TestExpireClearsAndNotifiesSubscribers(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = store.Set(ctx, "sid", dsession.Session{ID: "u1", Role: role.User, Credential: "tok"}, time.Hour)

	changes, err := m.Subscribe(ctx, "sid")
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	m.Expire(actorctx.WithSessionID(ctx, "sid"))

	select {
	case c := <-changes:
		if c.Kind != dsession.ChangeClear || c.Reason != "expired" {
			t.Fatalf("unexpected change: %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a change event")
	}

	if got := m.Credential(actorctx.WithSessionID(ctx, "sid")); got != "" {
		t.Fatalf("expected no credential after expiry, got %q", got)
	}
}

func TestTTLCappedByCredentialExpiry(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil, 24*time.Hour, discardLogger())

	ttl := m.ttlFor(tokenExpiringIn(t, 10*time.Minute))
	if ttl > 10*time.Minute || ttl < 9*time.Minute {
		t.Fatalf("expected ttl near 10m, got %v", ttl)
	}
	if got := m.ttlFor("opaque"); got != 24*time.Hour {
		t.Fatalf("expected configured ttl for opaque credential, got %v", got)
	}
}

func TestUpdateRefreshesIdentity(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil, time.Hour, discardLogger())
	ctx := context.Background()
	_ = store.Set(ctx, "sid", dsession.Session{ID: "u1", Name: "Ada", Role: role.User, Credential: "tok"}, time.Hour)

	if _, err := m.Update(ctx, "sid", "Ada L.", "ada@l.co"); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	s, _, _ := m.Hydrate(ctx, "sid")
	if s.Name != "Ada L." || s.Email != "ada@l.co" || s.Credential != "tok" {
		t.Fatalf("unexpected session after update: %+v", s)
	}
}

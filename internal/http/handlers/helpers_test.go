package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/geocoder89/givehub/internal/domain/role"
	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/domain/user"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/http/handlers"
	"github.com/geocoder89/givehub/internal/http/middlewares"
	"github.com/geocoder89/givehub/internal/session"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSessions struct {
	hydrateFn  func(ctx context.Context, sid string) (dsession.Session, session.State, error)
	loginFn    func(ctx context.Context, sid, email, password string) (dsession.Session, error)
	registerFn func(ctx context.Context, sid, name, email, password string, r role.Role) (dsession.Session, error)
	logoutFn   func(ctx context.Context, sid string) error
	updateFn   func(ctx context.Context, sid, name, email string) (dsession.Session, error)
}

func (f *fakeSessions) Hydrate(ctx context.Context, sid string) (dsession.Session, session.State, error) {
	if f.hydrateFn == nil {
		return dsession.Session{}, session.StateAnonymous, nil
	}
	return f.hydrateFn(ctx, sid)
}

func (f *fakeSessions) Login(ctx context.Context, sid, email, password string) (dsession.Session, error) {
	return f.loginFn(ctx, sid, email, password)
}

func (f *fakeSessions) Register(ctx context.Context, sid, name, email, password string, r role.Role) (dsession.Session, error) {
	return f.registerFn(ctx, sid, name, email, password, r)
}

func (f *fakeSessions) Logout(ctx context.Context, sid string) error {
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx, sid)
}

func (f *fakeSessions) Update(ctx context.Context, sid, name, email string) (dsession.Session, error) {
	if f.updateFn == nil {
		return dsession.Session{}, nil
	}
	return f.updateFn(ctx, sid, name, email)
}

// signedIn returns sessions that hydrate every visitor as r.
func signedIn(r role.Role) *fakeSessions {
	s := dsession.Session{
		ID:         "u-1",
		Name:       "Ada",
		Email:      "ada@example.com",
		Role:       r,
		Credential: "token",
	}
	return &fakeSessions{
		hydrateFn: func(context.Context, string) (dsession.Session, session.State, error) {
			return s, session.StateReady, nil
		},
	}
}

type fakeNotices struct {
	mu    sync.Mutex
	sent  []flash.Notice
	moves [][2]string
}

func (f *fakeNotices) Move(_ context.Context, from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, [2]string{from, to})
}

func (f *fakeNotices) Notify(_ context.Context, n flash.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func (f *fakeNotices) Drain(context.Context, string) []flash.Notice { return nil }

func (f *fakeNotices) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, n := range f.sent {
		out = append(out, n.Message)
	}
	return out
}

type fakeBackend struct {
	listEventsFn          func(ctx context.Context) ([]event.Event, error)
	getEventFn            func(ctx context.Context, id string) (*event.Event, error)
	createEventFn         func(ctx context.Context, p event.Payload) (*event.Event, error)
	updateEventFn         func(ctx context.Context, id string, p event.Payload) (*event.Event, error)
	deleteEventFn         func(ctx context.Context, id string) error
	listDonationsFn       func(ctx context.Context) ([]donation.Record, error)
	listUsersFn           func(ctx context.Context, r role.Role) ([]user.User, error)
	listVolunteerEventsFn func(ctx context.Context, userID string) ([]event.Event, error)
	registerVolunteerFn   func(ctx context.Context, req apiclient.VolunteerRegistration) error
	getUserFn             func(ctx context.Context, id string) (*user.User, error)
	updateUserFn          func(ctx context.Context, id string, req apiclient.UpdateUserRequest) (*user.User, error)
}

func (f *fakeBackend) ListEvents(ctx context.Context) ([]event.Event, error) {
	if f.listEventsFn == nil {
		return nil, nil
	}
	return f.listEventsFn(ctx)
}

func (f *fakeBackend) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return f.getEventFn(ctx, id)
}

func (f *fakeBackend) CreateEvent(ctx context.Context, p event.Payload) (*event.Event, error) {
	return f.createEventFn(ctx, p)
}

func (f *fakeBackend) UpdateEvent(ctx context.Context, id string, p event.Payload) (*event.Event, error) {
	return f.updateEventFn(ctx, id, p)
}

func (f *fakeBackend) DeleteEvent(ctx context.Context, id string) error {
	return f.deleteEventFn(ctx, id)
}

func (f *fakeBackend) ListDonations(ctx context.Context) ([]donation.Record, error) {
	if f.listDonationsFn == nil {
		return nil, nil
	}
	return f.listDonationsFn(ctx)
}

func (f *fakeBackend) ListUsers(ctx context.Context, r role.Role) ([]user.User, error) {
	if f.listUsersFn == nil {
		return nil, nil
	}
	return f.listUsersFn(ctx, r)
}

func (f *fakeBackend) ListVolunteerEvents(ctx context.Context, userID string) ([]event.Event, error) {
	if f.listVolunteerEventsFn == nil {
		return nil, nil
	}
	return f.listVolunteerEventsFn(ctx, userID)
}

func (f *fakeBackend) RegisterVolunteer(ctx context.Context, req apiclient.VolunteerRegistration) error {
	return f.registerVolunteerFn(ctx, req)
}

func (f *fakeBackend) GetUser(ctx context.Context, id string) (*user.User, error) {
	return f.getUserFn(ctx, id)
}

func (f *fakeBackend) UpdateUser(ctx context.Context, id string, req apiclient.UpdateUserRequest) (*user.User, error) {
	return f.updateUserFn(ctx, id, req)
}

func authError() error {
	return &apiclient.Error{Kind: apiclient.KindAuth, StatusCode: http.StatusUnauthorized, Message: apiclient.MsgSessionExpired}
}

func newRenderer(t *testing.T, sessions handlers.Identity) *handlers.Renderer {
	t.Helper()

	r, err := handlers.NewRenderer(sessions, &fakeNotices{}, testLog)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

// newEngine mounts the session cookie middleware the handlers rely on.
func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(middlewares.Session(time.Hour, false))
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// lastCookie returns the value of the last Set-Cookie named name.
func lastCookie(w *httptest.ResponseRecorder, name string) string {
	v := ""
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			v = c.Value
		}
	}
	return v
}

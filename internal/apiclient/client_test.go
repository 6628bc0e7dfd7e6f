package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/role"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSession struct {
	mu         sync.Mutex
	credential string
	expired    int
}

func (f *fakeSession) Credential(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credential
}

func (f *fakeSession) Expire(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = ""
	f.expired++
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []flash.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n flash.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Message)
	}
	return out
}

func newTestClient(t *testing.T, h http.HandlerFunc, credential string) (*Client, *fakeSession, *recordingNotifier) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	hooks := &fakeSession{credential: credential}
	n := &recordingNotifier{}
	return New(srv.URL, hooks, n), hooks, n
}

func TestBearerHeaderAttachedWhenSessionPresent(t *testing.T) {
	var got string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}, "tok-1")

	if _, err := c.ListEvents(context.Background()); err != nil {
		t.Fatalf("ListEvents() error: %v", err)
	}
	if got != "Bearer tok-1" {
		t.Fatalf("Authorization = %q, want %q", got, "Bearer tok-1")
	}
}

func TestRequestIDForwarded(t *testing.T) {
	var got string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-Id")
		_, _ = w.Write([]byte(`[]`))
	}, "")

	ctx := actorctx.WithRequestID(context.Background(), "req-42")
	if _, err := c.ListEvents(ctx); err != nil {
		t.Fatalf("ListEvents() error: %v", err)
	}
	if got != "req-42" {
		t.Fatalf("X-Request-Id = %q, want %q", got, "req-42")
	}
}

func TestQuietCallQueuesNoNotice(t *testing.T) {
	c, _, n := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"db down"}`))
	}, "tok")

	_, err := c.ListEvents(Quiet(context.Background()))
	if err == nil {
		t.Fatal("expected an error")
	}
	if msgs := n.messages(); len(msgs) != 0 {
		t.Fatalf("quiet call queued %v", msgs)
	}
	if Notified(err) {
		t.Fatal("Notified() = true for a quiet call")
	}
	if !IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoginNeverCarriesCredential(t *testing.T) {
	var got string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"success":true,"data":{"_id":"u1","name":"Ada","email":"ada@example.com","role":"volunteer","token":"jwt"}}`))
	}, "stale")

	res, err := c.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no Authorization on login, got %q", got)
	}
	if res.ID != "u1" || res.Role != role.Volunteer || res.Token != "jwt" {
		t.Fatalf("unexpected auth result: %+v", res)
	}
}

func TestUnauthorizedExpiresSessionAndDropsCredential(t *testing.T) {
	var headers []string
	c, hooks, n := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get("Authorization"))
		if len(headers) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"jwt expired"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, "tok-1")

	_, err := c.ListDonations(context.Background())
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 status on error, got %v", err)
	}
	if hooks.expired != 1 {
		t.Fatalf("expected session expired once, got %d", hooks.expired)
	}
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != MsgSessionExpired {
		t.Fatalf("unexpected notices: %v", msgs)
	}

	if _, err := c.ListEvents(context.Background()); err != nil {
		t.Fatalf("ListEvents() error: %v", err)
	}
	if headers[1] != "" {
		t.Fatalf("expected follow-up call without credential, got %q", headers[1])
	}
}

func TestLoginUnauthorizedIsNotSessionExpiry(t *testing.T) {
	c, hooks, n := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	}, "")

	_, err := c.Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "x"})
	if err == nil || IsAuth(err) {
		t.Fatalf("expected a backend error, got %v", err)
	}
	if hooks.expired != 0 {
		t.Fatalf("login failure must not expire a session")
	}
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != "Invalid credentials" {
		t.Fatalf("unexpected notices: %v", msgs)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "message field", status: 400, body: `{"message":"Title is required"}`, want: "Title is required"},
		{name: "error string", status: 409, body: `{"error":"Already registered"}`, want: "Already registered"},
		{name: "nested error", status: 422, body: `{"error":{"code":"bad","message":"Bad date"}}`, want: "Bad date"},
		{name: "no message", status: 500, body: `oops`, want: MsgGeneric},
		{name: "empty body", status: 503, body: ``, want: MsgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, n := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "tok")

			err := c.DeleteEvent(context.Background(), "e1")

			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Kind != KindBackend {
				t.Fatalf("expected backend error, got %v", err)
			}
			if msgs := n.messages(); len(msgs) != 1 || msgs[0] != tt.want {
				t.Fatalf("notices = %v, want [%q]", msgs, tt.want)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := &recordingNotifier{}
	c := New(url, &fakeSession{}, n)

	_, err := c.ListEvents(context.Background())

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != MsgNetwork {
		t.Fatalf("unexpected notices: %v", msgs)
	}
}

func TestListEndpointsAcceptBothShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"_id":"e1","title":"Gala"},{"id":"e2","title":"Run"}]`, want: 2},
		{name: "data envelope", body: `{"success":true,"data":[{"_id":"e1","title":"Gala"}]}`, want: 1},
		{name: "null data", body: `{"data":null}`, want: 0},
		{name: "empty envelope", body: `{}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}, "")

			events, err := c.ListEvents(context.Background())
			if err != nil {
				t.Fatalf("ListEvents() error: %v", err)
			}
			if len(events) != tt.want {
				t.Fatalf("len = %d, want %d", len(events), tt.want)
			}
			if tt.want > 0 && events[0].ID != "e1" {
				t.Fatalf("expected _id to map onto ID, got %q", events[0].ID)
			}
		})
	}
}

func TestCreatePaymentIntentSendsMajorUnits(t *testing.T) {
	var body map[string]any
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/donations/stripe-payment" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"clientSecret":"pi_123_secret_abc"}`))
	}, "tok")

	intent, err := c.CreatePaymentIntent(context.Background(), donation.FromMajor(25))
	if err != nil {
		t.Fatalf("CreatePaymentIntent() error: %v", err)
	}
	if body["amount"] != float64(25) {
		t.Fatalf("amount = %v, want 25", body["amount"])
	}
	if intent.ClientSecret != "pi_123_secret_abc" {
		t.Fatalf("unexpected secret %q", intent.ClientSecret)
	}
}

func TestCreatePaymentIntentWithoutSecret(t *testing.T) {
	c, _, n := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}, "tok")

	_, err := c.CreatePaymentIntent(context.Background(), donation.FromMajor(10))
	if !errors.Is(err, ErrMissingClientSecret) {
		t.Fatalf("expected ErrMissingClientSecret, got %v", err)
	}
	if Notified(err) || len(n.messages()) != 0 {
		t.Fatalf("missing secret is left to the caller to report, got %v", n.messages())
	}
}

func TestListUsersFiltersByRole(t *testing.T) {
	var query string
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":[{"_id":"u1","role":"user"}]}`))
	}, "tok")

	users, err := c.ListUsers(context.Background(), role.User)
	if err != nil {
		t.Fatalf("ListUsers() error: %v", err)
	}
	if query != "role=user" || len(users) != 1 {
		t.Fatalf("query=%q users=%v", query, users)
	}
}

func TestBackendMetricsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	prom := observability.NewProm(prometheus.NewRegistry())
	c := New(srv.URL, &fakeSession{}, &recordingNotifier{}, WithProm(prom))

	_, _ = c.GetEvent(context.Background(), "missing")

	if got := testutil.ToFloat64(prom.BackendRequestsTotal.WithLabelValues("GET", "404")); got != 1 {
		t.Fatalf("backend_requests_total{GET,404} = %v, want 1", got)
	}
}

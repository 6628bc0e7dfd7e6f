package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/cache"
	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/geocoder89/givehub/internal/domain/role"
	"github.com/geocoder89/givehub/internal/domain/user"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/geocoder89/givehub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func newAdminRouter(t *testing.T, backend *fakeBackend, c *cache.Cache, notices *fakeNotices) *gin.Engine {
	t.Helper()

	sessions := signedIn(role.Admin)
	h := handlers.NewAdminHandler(newRenderer(t, sessions), backend, c, notices)

	r := newEngine()
	adm := r.Group("/admin", guard.New(sessions, notices).Require(role.Admin))
	adm.GET("", h.Stats)
	adm.GET("/events", h.Events)
	adm.POST("/events/new", h.CreateEvent)
	adm.GET("/events/:id/delete", h.ConfirmDelete)
	adm.POST("/events/:id/delete", h.DeleteEvent)
	adm.GET("/reports", h.Reports)
	return r
}

func TestDeleteEventWithoutConfirmationIssuesNoRequest(t *testing.T) {
	calls := 0
	backend := &fakeBackend{
		deleteEventFn: func(context.Context, string) error {
			calls++
			return nil
		},
	}
	notices := &fakeNotices{}
	r := newAdminRouter(t, backend, cache.New(time.Minute), notices)

	tests := []struct {
		name string
		form url.Values
	}{
		{"declined", url.Values{"confirm": {"no"}}},
		{"missing", url.Values{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(r, "/admin/events/e-1/delete", tt.form)

			if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/admin/events" {
				t.Fatalf("got %d %q, want redirect to /admin/events", w.Code, w.Header().Get("Location"))
			}
		})
	}

	if calls != 0 {
		t.Fatalf("DeleteEvent called %d times, want 0", calls)
	}
	if len(notices.messages()) != 0 {
		t.Fatalf("unexpected notices: %v", notices.messages())
	}
}

func TestDeleteEventConfirmedInvalidatesCache(t *testing.T) {
	var deleted string
	backend := &fakeBackend{
		deleteEventFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	c := cache.New(time.Minute)
	c.Set(cache.EventsListKey(), []event.Event{{ID: "e-1"}})

	notices := &fakeNotices{}
	r := newAdminRouter(t, backend, c, notices)

	w := postForm(r, "/admin/events/e-1/delete", url.Values{"confirm": {"yes"}})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusSeeOther)
	}
	if deleted != "e-1" {
		t.Fatalf("deleted %q, want e-1", deleted)
	}
	if _, ok := c.Get(cache.EventsListKey()); ok {
		t.Fatalf("events list should be invalidated")
	}
	if msgs := notices.messages(); len(msgs) != 1 || msgs[0] != "Event deleted successfully" {
		t.Fatalf("unexpected notices: %v", msgs)
	}
}

func TestConfirmDeleteAsksBeforeDeleting(t *testing.T) {
	backend := &fakeBackend{
		getEventFn: func(_ context.Context, id string) (*event.Event, error) {
			return &event.Event{ID: id, Title: "Beach Cleanup"}, nil
		},
		deleteEventFn: func(context.Context, string) error {
			t.Fatalf("DeleteEvent must not be called on GET")
			return nil
		},
	}
	r := newAdminRouter(t, backend, cache.New(time.Minute), &fakeNotices{})

	w := get(r, "/admin/events/e-1/delete")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Are you sure you want to delete this event?") || !strings.Contains(body, "Beach Cleanup") {
		t.Fatalf("confirmation page missing question or title: %s", body)
	}
}

func TestCreateEventValidation(t *testing.T) {
	calls := 0
	backend := &fakeBackend{
		createEventFn: func(_ context.Context, p event.Payload) (*event.Event, error) {
			calls++
			return &event.Event{ID: "e-9", Title: p.Title}, nil
		},
	}
	r := newAdminRouter(t, backend, cache.New(time.Minute), &fakeNotices{})

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "missing fields",
			form:       url.Values{"title": {"Tree planting"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCalls:  0,
		},
		{
			name: "valid",
			form: url.Values{
				"title":       {"Tree planting"},
				"description": {"Bring **gloves**"},
				"date":        {"2026-11-02T09:30"},
				"location":    {"Riverside Park"},
			},
			wantStatus: http.StatusSeeOther,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			w := postForm(r, "/admin/events/new", tt.form)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if calls != tt.wantCalls {
				t.Fatalf("CreateEvent called %d times, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestAdminStatsTotalsDonations(t *testing.T) {
	backend := &fakeBackend{
		listDonationsFn: func(context.Context) ([]donation.Record, error) {
			return []donation.Record{
				{ID: "d-1", Amount: donation.Amount(2500)},
				{ID: "d-2", Amount: donation.Amount(1050)},
			}, nil
		},
		listEventsFn: func(context.Context) ([]event.Event, error) {
			return []event.Event{{ID: "e-1"}, {ID: "e-2"}}, nil
		},
		listUsersFn: func(_ context.Context, r role.Role) ([]user.User, error) {
			if r != role.User {
				t.Fatalf("ListUsers role = %q, want user", r)
			}
			return []user.User{{ID: "u-1"}}, nil
		},
	}
	r := newAdminRouter(t, backend, cache.New(time.Minute), &fakeNotices{})

	w := get(r, "/admin")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "$35.50") {
		t.Fatalf("total donated not rendered: %s", w.Body.String())
	}
}

func TestAdminReportsRedirectsOnAuthFailure(t *testing.T) {
	backend := &fakeBackend{
		listDonationsFn: func(context.Context) ([]donation.Record, error) {
			return nil, authError()
		},
		listEventsFn: func(context.Context) ([]event.Event, error) {
			return nil, &apiclient.Error{Kind: apiclient.KindBackend, StatusCode: http.StatusInternalServerError}
		},
	}
	r := newAdminRouter(t, backend, cache.New(time.Minute), &fakeNotices{})

	w := get(r, "/admin/reports")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/login?next=%2Fadmin%2Freports" {
		t.Fatalf("Location = %q", loc)
	}
}

package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/geocoder89/givehub/internal/domain/role"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/geocoder89/givehub/internal/http/handlers"
)

func TestSidebarLinksByRole(t *testing.T) {
	tests := []struct {
		role role.Role
		want []string
	}{
		{role.User, []string{"Dashboard", "My Profile", "Donate"}},
		{role.Volunteer, []string{"Dashboard", "My Profile", "Volunteer Portal", "My Events"}},
		{role.Admin, []string{"Dashboard", "My Profile", "Donate", "Admin Panel", "Manage Events", "Reports", "Reconciliations"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			links := handlers.SidebarLinks(tt.role, "/dashboard")

			got := make([]string, 0, len(links))
			for _, l := range links {
				got = append(got, l.Name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if !links[0].Active {
				t.Fatalf("Dashboard should be active on /dashboard")
			}
		})
	}
}

func TestSidebarActiveLinkForNestedPath(t *testing.T) {
	links := handlers.SidebarLinks(role.Admin, "/admin/events/e-1/edit")

	for _, l := range links {
		want := l.Href == "/admin/events"
		if l.Active != want {
			t.Fatalf("%s active = %v, want %v", l.Href, l.Active, want)
		}
	}
}

func TestDashboardShowsDonationsOnlyToAdmins(t *testing.T) {
	tests := []struct {
		role          role.Role
		wantDonations bool
	}{
		{role.User, false},
		{role.Volunteer, false},
		{role.Admin, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			donationCalls := 0
			backend := &fakeBackend{
				listEventsFn: func(context.Context) ([]event.Event, error) {
					return []event.Event{
						{ID: "1", Title: "One", Date: time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)},
						{ID: "2", Title: "Two"},
						{ID: "3", Title: "Three"},
						{ID: "4", Title: "Four"},
					}, nil
				},
				listDonationsFn: func(context.Context) ([]donation.Record, error) {
					donationCalls++
					return []donation.Record{{ID: "d-1", Amount: 1000}}, nil
				},
			}
			sessions := signedIn(tt.role)
			notices := &fakeNotices{}
			h := handlers.NewDashboardHandler(newRenderer(t, sessions), backend)

			r := newEngine()
			r.GET("/dashboard", guard.New(sessions, notices).Require(), h.Show)

			w := get(r, "/dashboard")

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
			}
			body := w.Body.String()
			if got := strings.Contains(body, "Recent Donations"); got != tt.wantDonations {
				t.Fatalf("Recent Donations shown = %v, want %v", got, tt.wantDonations)
			}
			if tt.wantDonations != (donationCalls == 1) {
				t.Fatalf("ListDonations called %d times", donationCalls)
			}
			if strings.Contains(body, "Four") {
				t.Fatalf("dashboard should list only the first three events")
			}
		})
	}
}

func TestDashboardAuthFailureRedirectsToLogin(t *testing.T) {
	backend := &fakeBackend{
		listEventsFn: func(context.Context) ([]event.Event, error) {
			return nil, authError()
		},
	}
	sessions := signedIn(role.User)
	h := handlers.NewDashboardHandler(newRenderer(t, sessions), backend)

	r := newEngine()
	r.GET("/dashboard", guard.New(sessions, &fakeNotices{}).Require(), h.Show)

	w := get(r, "/dashboard")

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login?next=%2Fdashboard" {
		t.Fatalf("got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestVolunteerPortalMarksRegisteredEvents(t *testing.T) {
	var askedFor string
	backend := &fakeBackend{
		listEventsFn: func(context.Context) ([]event.Event, error) {
			return []event.Event{{ID: "e-1", Title: "Beach Cleanup"}, {ID: "e-2", Title: "Tree Planting"}}, nil
		},
		listVolunteerEventsFn: func(_ context.Context, userID string) ([]event.Event, error) {
			askedFor = userID
			return []event.Event{{ID: "e-2", Title: "Tree Planting"}}, nil
		},
	}
	sessions := signedIn(role.Volunteer)
	h := handlers.NewVolunteerHandler(newRenderer(t, sessions), backend, &fakeNotices{})

	r := newEngine()
	r.GET("/volunteer", guard.New(sessions, &fakeNotices{}).Require(role.Volunteer), h.Portal)

	w := get(r, "/volunteer")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if askedFor != "u-1" {
		t.Fatalf("ListVolunteerEvents userID = %q, want u-1", askedFor)
	}

	body := w.Body.String()
	if !strings.Contains(body, `action="/volunteer/events/e-1/register"`) {
		t.Fatalf("unregistered event should offer a register form")
	}
	if strings.Contains(body, `action="/volunteer/events/e-2/register"`) {
		t.Fatalf("registered event must not offer a register form")
	}
}

func TestVolunteerRegister(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantNotices []string
	}{
		{"success", nil, []string{"Successfully registered for the event"}},
		{"backend failure", &apiclient.Error{Kind: apiclient.KindBackend, StatusCode: http.StatusConflict}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got apiclient.VolunteerRegistration
			backend := &fakeBackend{
				registerVolunteerFn: func(_ context.Context, req apiclient.VolunteerRegistration) error {
					got = req
					return tt.err
				},
			}
			sessions := signedIn(role.Volunteer)
			notices := &fakeNotices{}
			h := handlers.NewVolunteerHandler(newRenderer(t, sessions), backend, notices)

			r := newEngine()
			r.POST("/volunteer/events/:id/register", guard.New(sessions, notices).Require(role.Volunteer), h.Register)

			w := postForm(r, "/volunteer/events/e-7/register", url.Values{})

			if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/volunteer" {
				t.Fatalf("got %d %q", w.Code, w.Header().Get("Location"))
			}
			if got.EventID != "e-7" || got.UserID != "u-1" {
				t.Fatalf("unexpected registration: %+v", got)
			}
			if msgs := notices.messages(); !reflect.DeepEqual(msgs, tt.wantNotices) {
				t.Fatalf("notices = %v, want %v", msgs, tt.wantNotices)
			}
		})
	}
}

func TestGuardKeepsVolunteersOutOfAdmin(t *testing.T) {
	sessions := signedIn(role.Volunteer)
	h := handlers.NewDashboardHandler(newRenderer(t, sessions), &fakeBackend{})

	r := newEngine()
	r.GET("/admin", guard.New(sessions, &fakeNotices{}).Require(role.Admin), h.Show)

	w := get(r, "/admin")

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d %q, want redirect to /dashboard", w.Code, w.Header().Get("Location"))
	}
}

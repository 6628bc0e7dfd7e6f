package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/givehub/internal/cache"
	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/geocoder89/givehub/internal/domain/role"
	"github.com/geocoder89/givehub/internal/domain/user"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/gin-gonic/gin"
)

const (
	msgEventCreated = "Event created successfully"
	msgEventUpdated = "Event updated successfully"
	msgEventDeleted = "Event deleted successfully"
	msgConfirmQuery = "Are you sure you want to delete this event?"

	adminEventsPath = "/admin/events"
)

type AdminBackend interface {
	ListEvents(ctx context.Context) ([]event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	CreateEvent(ctx context.Context, p event.Payload) (*event.Event, error)
	UpdateEvent(ctx context.Context, id string, p event.Payload) (*event.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListDonations(ctx context.Context) ([]donation.Record, error)
	ListUsers(ctx context.Context, r role.Role) ([]user.User, error)
}

type AdminHandler struct {
	r       *Renderer
	backend AdminBackend
	cache   *cache.Cache
	notices Notifier
}

func NewAdminHandler(r *Renderer, backend AdminBackend, c *cache.Cache, notices Notifier) *AdminHandler {
	return &AdminHandler{r: r, backend: backend, cache: c, notices: notices}
}

type adminStats struct {
	TotalDonated donation.Amount
	EventCount   int
	UserCount    int
	Recent       []donation.Record
}

func (h *AdminHandler) Stats(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var (
		donations []donation.Record
		events    []event.Event
		users     []user.User
	)
	err := fetchAll(
		func() (err error) {
			donations, err = h.backend.ListDonations(ctx)
			return err
		},
		func() (err error) {
			events, err = h.backend.ListEvents(ctx)
			return err
		},
		func() (err error) {
			users, err = h.backend.ListUsers(ctx, role.User)
			return err
		},
	)
	if respondAPIError(c, err) {
		return
	}

	h.r.Render(c, http.StatusOK, "admin", "Admin Dashboard", adminStats{
		TotalDonated: donation.Total(donations),
		EventCount:   len(events),
		UserCount:    len(users),
		Recent:       firstN(donations, 5),
	})
}

func (h *AdminHandler) Reports(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var (
		donations []donation.Record
		events    []event.Event
	)
	err := fetchAll(
		func() (err error) {
			donations, err = h.backend.ListDonations(ctx)
			return err
		},
		func() (err error) {
			events, err = h.backend.ListEvents(ctx)
			return err
		},
	)
	if respondAPIError(c, err) {
		return
	}

	h.r.Render(c, http.StatusOK, "admin_reports", "Reports", gin.H{
		"Donations": donations,
		"Events":    events,
	})
}

func (h *AdminHandler) Events(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	events, err := h.backend.ListEvents(ctx)
	if respondAPIError(c, err) {
		return
	}

	h.r.Render(c, http.StatusOK, "admin_events", "Event Management", gin.H{"Events": events})
}

type eventFormView struct {
	Action string
	Submit string
	Form   event.Form
	Errors FieldErrors
}

func (h *AdminHandler) NewEvent(c *gin.Context) {
	h.r.Render(c, http.StatusOK, "admin_event_form", "Create New Event", eventFormView{
		Action: adminEventsPath + "/new",
		Submit: "Create Event",
	})
}

func (h *AdminHandler) CreateEvent(c *gin.Context) {
	v := eventFormView{Action: adminEventsPath + "/new", Submit: "Create Event"}

	p, ok := h.bindEvent(c, &v, "Create New Event")
	if !ok {
		return
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	_, err := h.backend.CreateEvent(ctx, p)
	if respondAPIError(c, err) {
		return
	}
	if err != nil {
		h.r.Render(c, http.StatusBadGateway, "admin_event_form", "Create New Event", v)
		return
	}

	h.cache.InvalidateEvents()
	h.notices.Notify(ctx, flash.Success(msgEventCreated))
	redirect(c, adminEventsPath)
}

func (h *AdminHandler) EditEvent(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}

	h.r.Render(c, http.StatusOK, "admin_event_form", "Edit Event", eventFormView{
		Action: adminEventsPath + "/" + e.ID + "/edit",
		Submit: "Update Event",
		Form:   event.FormFrom(*e),
	})
}

func (h *AdminHandler) UpdateEvent(c *gin.Context) {
	id := c.Param("id")
	v := eventFormView{Action: adminEventsPath + "/" + id + "/edit", Submit: "Update Event"}

	p, ok := h.bindEvent(c, &v, "Edit Event")
	if !ok {
		return
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	_, err := h.backend.UpdateEvent(ctx, id, p)
	if respondAPIError(c, err) {
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		h.r.Render(c, status, "admin_event_form", "Edit Event", v)
		return
	}

	h.cache.InvalidateEvents()
	h.notices.Notify(ctx, flash.Success(msgEventUpdated))
	redirect(c, adminEventsPath)
}

// ConfirmDelete is the confirmation step; nothing is deleted on GET.
func (h *AdminHandler) ConfirmDelete(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}

	h.r.Render(c, http.StatusOK, "admin_event_delete", "Delete Event", gin.H{
		"Event":    e,
		"Question": msgConfirmQuery,
	})
}

// DeleteEvent issues the backend DELETE only when the visitor confirmed.
// Declining leaves the list untouched and makes no request.
func (h *AdminHandler) DeleteEvent(c *gin.Context) {
	if c.PostForm("confirm") != "yes" {
		redirect(c, adminEventsPath)
		return
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	err := h.backend.DeleteEvent(ctx, c.Param("id"))
	if respondAPIError(c, err) {
		return
	}
	if err == nil {
		h.cache.InvalidateEvents()
		h.notices.Notify(ctx, flash.Success(msgEventDeleted))
	}

	redirect(c, adminEventsPath)
}

func (h *AdminHandler) loadEvent(c *gin.Context) (*event.Event, bool) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	e, err := h.backend.GetEvent(ctx, c.Param("id"))
	if respondAPIError(c, err) {
		return nil, false
	}
	if err != nil {
		if isNotFound(err) {
			h.r.errorPage(c, http.StatusNotFound, "That event does not exist or has been removed.")
			return nil, false
		}
		redirect(c, adminEventsPath)
		return nil, false
	}
	return e, true
}

// bindEvent binds and converts the form, rendering it again on failure.
func (h *AdminHandler) bindEvent(c *gin.Context, v *eventFormView, title string) (event.Payload, bool) {
	errs, ok := BindForm(c, &v.Form)
	if !ok {
		v.Errors = errs
		h.r.Render(c, http.StatusUnprocessableEntity, "admin_event_form", title, *v)
		return event.Payload{}, false
	}

	p, err := v.Form.Payload()
	if err != nil {
		v.Errors = FieldErrors{"date": validationMessage("datetime", "")}
		h.r.Render(c, http.StatusUnprocessableEntity, "admin_event_form", title, *v)
		return event.Payload{}, false
	}

	return p, true
}

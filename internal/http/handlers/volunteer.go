package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/gin-gonic/gin"
)

const msgVolunteerRegistered = "Successfully registered for the event"

type VolunteerBackend interface {
	ListEvents(ctx context.Context) ([]event.Event, error)
	ListVolunteerEvents(ctx context.Context, userID string) ([]event.Event, error)
	RegisterVolunteer(ctx context.Context, req apiclient.VolunteerRegistration) error
}

type VolunteerHandler struct {
	r       *Renderer
	backend VolunteerBackend
	notices Notifier
}

func NewVolunteerHandler(r *Renderer, backend VolunteerBackend, notices Notifier) *VolunteerHandler {
	return &VolunteerHandler{r: r, backend: backend, notices: notices}
}

type volunteerEvent struct {
	event.Event
	Registered bool
}

// Portal lists every event with its registration state next to the
// volunteer's own events. onlyMine hides the available list.
func (h *VolunteerHandler) portal(c *gin.Context, onlyMine bool) {
	s, _ := guard.SessionFrom(c)

	ctx, cancel := requestCtx(c)
	defer cancel()

	var all, mine []event.Event
	err := fetchAll(
		func() (err error) {
			all, err = h.backend.ListEvents(ctx)
			return err
		},
		func() (err error) {
			mine, err = h.backend.ListVolunteerEvents(ctx, s.ID)
			return err
		},
	)
	if respondAPIError(c, err) {
		return
	}

	registered := make(map[string]bool, len(mine))
	for _, e := range mine {
		registered[e.ID] = true
	}

	available := make([]volunteerEvent, 0, len(all))
	for _, e := range all {
		available = append(available, volunteerEvent{Event: e, Registered: registered[e.ID]})
	}

	title := "Volunteer Dashboard"
	if onlyMine {
		title = "My Events"
	}

	h.r.Render(c, http.StatusOK, "volunteer", title, gin.H{
		"OnlyMine":  onlyMine,
		"Available": available,
		"Mine":      mine,
	})
}

func (h *VolunteerHandler) Portal(c *gin.Context) { h.portal(c, false) }

func (h *VolunteerHandler) MyEvents(c *gin.Context) { h.portal(c, true) }

func (h *VolunteerHandler) Register(c *gin.Context) {
	s, _ := guard.SessionFrom(c)

	ctx, cancel := requestCtx(c)
	defer cancel()

	err := h.backend.RegisterVolunteer(ctx, apiclient.VolunteerRegistration{
		EventID: c.Param("id"),
		UserID:  s.ID,
	})
	if respondAPIError(c, err) {
		return
	}
	if err == nil {
		h.notices.Notify(ctx, flash.Success(msgVolunteerRegistered))
	}

	redirect(c, "/volunteer")
}

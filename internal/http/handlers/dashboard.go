package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/geocoder89/givehub/internal/domain/role"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/gin-gonic/gin"
)

type DashboardBackend interface {
	ListEvents(ctx context.Context) ([]event.Event, error)
	ListDonations(ctx context.Context) ([]donation.Record, error)
}

type DashboardHandler struct {
	r       *Renderer
	backend DashboardBackend
}

func NewDashboardHandler(r *Renderer, backend DashboardBackend) *DashboardHandler {
	return &DashboardHandler{r: r, backend: backend}
}

func (h *DashboardHandler) Show(c *gin.Context) {
	s, _ := guard.SessionFrom(c)
	isAdmin := s.Is(role.Admin)

	ctx, cancel := requestCtx(c)
	defer cancel()

	var (
		events    []event.Event
		donations []donation.Record
	)

	fetches := []func() error{
		func() (err error) {
			events, err = h.backend.ListEvents(ctx)
			return err
		},
	}
	if isAdmin {
		fetches = append(fetches, func() (err error) {
			donations, err = h.backend.ListDonations(ctx)
			return err
		})
	}

	if respondAPIError(c, fetchAll(fetches...)) {
		return
	}

	h.r.Render(c, http.StatusOK, "dashboard", "Dashboard", gin.H{
		"IsAdmin":     isAdmin,
		"IsVolunteer": s.Is(role.Volunteer),
		"Events":      firstN(events, 3),
		"Donations":   firstN(donations, 3),
	})
}

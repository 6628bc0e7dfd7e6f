package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/givehub/internal/cache"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/gin-gonic/gin"
)

type EventsReader interface {
	ListEvents(ctx context.Context) ([]event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
}

// PagesHandler serves the public marketing pages and the event listing.
type PagesHandler struct {
	r      *Renderer
	events EventsReader
	cache  *cache.Cache
}

func NewPagesHandler(r *Renderer, events EventsReader, c *cache.Cache) *PagesHandler {
	return &PagesHandler{r: r, events: events, cache: c}
}

// impact figures shown on the home page
type impact struct {
	Raised   int
	Projects int
	Trees    string
}

var homeImpact = impact{Raised: 15000, Projects: 42, Trees: "10K"}

func (h *PagesHandler) Home(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	events, err := h.listEvents(ctx)
	if respondAPIError(c, err) {
		return
	}

	h.r.Render(c, http.StatusOK, "home", "Protect Our Planet Together", gin.H{
		"Impact":   homeImpact,
		"Upcoming": firstN(events, 3),
	})
}

func (h *PagesHandler) About(c *gin.Context) {
	h.r.Render(c, http.StatusOK, "about", "About Us", nil)
}

func (h *PagesHandler) Contact(c *gin.Context) {
	h.r.Render(c, http.StatusOK, "contact", "Contact", nil)
}

func (h *PagesHandler) Events(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	events, err := h.listEvents(ctx)
	if respondAPIError(c, err) {
		return
	}

	h.r.Render(c, http.StatusOK, "events", "Events", gin.H{"Events": events})
}

func (h *PagesHandler) Event(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	id := c.Param("id")
	key := cache.EventKey(id)

	if v, ok := h.cache.Get(key); ok {
		h.r.Render(c, http.StatusOK, "event", v.(*event.Event).Title, gin.H{"Event": v})
		return
	}

	e, err := h.events.GetEvent(ctx, id)
	if respondAPIError(c, err) {
		return
	}
	if err != nil {
		if isNotFound(err) {
			h.r.errorPage(c, http.StatusNotFound, "That event does not exist or has been removed.")
			return
		}
		h.r.errorPage(c, http.StatusBadGateway, "We could not load this event right now.")
		return
	}

	h.cache.Set(key, e)
	h.r.Render(c, http.StatusOK, "event", e.Title, gin.H{"Event": e})
}

// listEvents reads through the cache. Failures are not cached.
func (h *PagesHandler) listEvents(ctx context.Context) ([]event.Event, error) {
	if v, ok := h.cache.Get(cache.EventsListKey()); ok {
		return v.([]event.Event), nil
	}

	events, err := h.events.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	h.cache.Set(cache.EventsListKey(), events)
	return events, nil
}

func firstN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

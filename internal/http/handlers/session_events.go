package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ChangeSubscriber interface {
	Subscribe(ctx context.Context, sid string) (<-chan dsession.Change, error)
}

// SessionEventsHandler streams identity changes for the visitor's session
// so other open tabs can re-render after a login, logout or expiry.
type SessionEventsHandler struct {
	sessions  ChangeSubscriber
	keepAlive time.Duration
}

func NewSessionEventsHandler(sessions ChangeSubscriber) *SessionEventsHandler {
	return &SessionEventsHandler{sessions: sessions, keepAlive: 25 * time.Second}
}

func (h *SessionEventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	changes, err := h.sessions.Subscribe(ctx, middlewares.SessionIDFromContext(c))
	if err != nil {
		c.String(http.StatusServiceUnavailable, "session events unavailable")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ch, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("session", ch)
			return true
		case <-ticker.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}

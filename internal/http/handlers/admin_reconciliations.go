package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/givehub/internal/domain/reconciliation"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/gin-gonic/gin"
)

const reconciliationsPath = "/admin/reconciliations"

type ReconciliationStore interface {
	ListOpen(ctx context.Context, limit int) ([]reconciliation.Reconciliation, error)
	Resolve(ctx context.Context, id, resolvedBy string, at time.Time) error
}

// ReconciliationsHandler lists charges the processor took but the backend
// never recorded, and lets staff mark them handled.
type ReconciliationsHandler struct {
	r       *Renderer
	store   ReconciliationStore
	notices Notifier
	now     func() time.Time
}

func NewReconciliationsHandler(r *Renderer, store ReconciliationStore, notices Notifier) *ReconciliationsHandler {
	return &ReconciliationsHandler{r: r, store: store, notices: notices, now: time.Now}
}

func (h *ReconciliationsHandler) List(c *gin.Context) {
	data := gin.H{"Available": h.store != nil}

	if h.store != nil {
		ctx, cancel := requestCtx(c)
		defer cancel()

		items, err := h.store.ListOpen(ctx, 100)
		if err != nil {
			h.notices.Notify(ctx, flash.Error("Could not load reconciliations"))
		}
		data["Items"] = items
	}

	h.r.Render(c, http.StatusOK, "admin_reconciliations", "Reconciliations", data)
}

func (h *ReconciliationsHandler) Resolve(c *gin.Context) {
	if h.store == nil {
		redirect(c, reconciliationsPath)
		return
	}

	s, _ := guard.SessionFrom(c)

	ctx, cancel := requestCtx(c)
	defer cancel()

	err := h.store.Resolve(ctx, c.Param("id"), s.Email, h.now().UTC())
	switch {
	case err == nil:
		h.notices.Notify(ctx, flash.Success("Marked as reconciled"))
	case errors.Is(err, reconciliation.ErrAlreadyResolved):
		h.notices.Notify(ctx, flash.Info("Already reconciled"))
	case errors.Is(err, reconciliation.ErrNotFound):
		h.notices.Notify(ctx, flash.Error("Reconciliation not found"))
	default:
		h.notices.Notify(ctx, flash.Error("Could not update reconciliation"))
	}

	redirect(c, reconciliationsPath)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/givehub/internal/domain/donation"
	donationflow "github.com/geocoder89/givehub/internal/donation"
	"github.com/geocoder89/givehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type DonationFlow interface {
	Submit(ctx context.Context, form donation.Form) donationflow.Result
	Loading(sid string) bool
}

type DonateHandler struct {
	r              *Renderer
	flow           DonationFlow
	sessions       Identity
	publishableKey string
}

func NewDonateHandler(r *Renderer, flow DonationFlow, sessions Identity, publishableKey string) *DonateHandler {
	return &DonateHandler{r: r, flow: flow, sessions: sessions, publishableKey: publishableKey}
}

type donateView struct {
	Form           donation.Form
	Errors         FieldErrors
	Presets        []int64
	PublishableKey string
	Ready          bool
	Busy           bool
	BusyLabel      string
	TransactionID  string
}

func (h *DonateHandler) view(c *gin.Context, form donation.Form, errs FieldErrors) donateView {
	// card details never survive a render; the widget tokenizes again
	form.CardComplete = false
	form.PaymentMethod = ""

	return donateView{
		Form:           form,
		Errors:         errs,
		Presets:        donation.PresetAmounts,
		PublishableKey: h.publishableKey,
		Ready:          h.publishableKey != "",
		Busy:           h.flow.Loading(middlewares.SessionIDFromContext(c)),
		BusyLabel:      donationflow.BusyLabel,
	}
}

func (h *DonateHandler) Page(c *gin.Context) {
	var form donation.Form
	if s, ok := currentSession(c, h.sessions); ok {
		form.Name = s.Name
		form.Email = s.Email
	}

	h.r.Render(c, http.StatusOK, "donate", "Donate", h.view(c, form, nil))
}

func (h *DonateHandler) Submit(c *gin.Context) {
	var form donation.Form
	if errs, ok := BindForm(c, &form); !ok {
		h.r.Render(c, http.StatusUnprocessableEntity, "donate", "Donate", h.view(c, form, errs))
		return
	}

	form.UserID = ""
	if s, ok := currentSession(c, h.sessions); ok {
		form.UserID = s.ID
	}

	// the flow detaches from cancellation itself; this only carries values
	res := h.flow.Submit(c.Request.Context(), form)

	// a charged donor always gets the page with their reference
	if res.Outcome != donationflow.RecordFailed && respondAPIError(c, res.Err) {
		return
	}

	status := http.StatusOK
	switch res.Outcome {
	case donationflow.Idle:
		status = http.StatusUnprocessableEntity
	case donationflow.Failed:
		status = http.StatusPaymentRequired
	}

	v := h.view(c, res.Form, nil)
	if res.Outcome == donationflow.Succeeded || res.Outcome == donationflow.RecordFailed {
		v.TransactionID = res.TransactionID
	}
	h.r.Render(c, status, "donate", "Donate", v)
}

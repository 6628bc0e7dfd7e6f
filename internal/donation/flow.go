package donation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/reconciliation"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/observability"
	"github.com/geocoder89/givehub/internal/payment"
	"golang.org/x/sync/singleflight"
)

const (
	MsgNotReady       = "Payment system is not ready yet"
	MsgInvalidAmount  = "Please enter a valid donation amount"
	MsgIncompleteCard = "Please complete your card details"
	MsgIntentFailed   = "Failed to create payment intent"
	MsgPaymentFailed  = "Payment failed. Please try again or contact support."
	MsgThankYou       = "Thank you for your donation!"
	MsgRecordPending  = "Your payment went through but we could not save the receipt. Our team has been notified and will follow up."
	BusyLabel         = "Processing..."
)

type State string

const (
	Idle              State = "idle"
	CreatingIntent    State = "creating_intent"
	ConfirmingPayment State = "confirming_payment"
	RecordingDonation State = "recording_donation"
	Succeeded         State = "succeeded"
	Failed            State = "failed"
	// RecordFailed: the charge went through, the ledger write did not.
	RecordFailed      State = "record_failed"
)

type Backend interface {
	CreatePaymentIntent(ctx context.Context, amount donation.Amount) (*donation.Intent, error)
	RecordDonation(ctx context.Context, req donation.RecordRequest) (*donation.Record, error)
}

// Reconciler persists a charge that needs manual reconciliation and queues
// the ops alert for it.
type Reconciler interface {
	CreateWithAlert(ctx context.Context, req reconciliation.CreateRequest) (reconciliation.Reconciliation, error)
}

type Notifier interface {
	Notify(ctx context.Context, n flash.Notice)
}

// Result is the terminal outcome of one submission. Form is what the page
// should re-render with.
type Result struct {
	Outcome       State
	Form          donation.Form
	TransactionID string
	Record        *donation.Record
	Err           error
	// Shared is set when more than one submit was served by this run.
	Shared bool
}

type Flow struct {
	backend    Backend
	confirmer  payment.Confirmer
	reconciler Reconciler
	notifier   Notifier
	prom       *observability.Prom
	log        *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]int
}

func NewFlow(backend Backend, confirmer payment.Confirmer, reconciler Reconciler, notifier Notifier, prom *observability.Prom, log *slog.Logger) *Flow {
	return &Flow{
		backend:    backend,
		confirmer:  confirmer,
		reconciler: reconciler,
		notifier:   notifier,
		prom:       prom,
		log:        log,
		inflight:   make(map[string]int),
	}
}

// Loading reports whether a submission for sid is past validation and not
// yet finished.
func (f *Flow) Loading(sid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight[sid] > 0
}

// Submit runs the donation steps strictly in order. Concurrent submits from
// one session share a single run, so a double click cannot charge twice.
// The run is detached from ctx cancellation: a donor navigating away must
// not leave a charge half recorded.
func (f *Flow) Submit(ctx context.Context, form donation.Form) Result {
	sid, _ := actorctx.SessionIDFrom(ctx)
	if sid == "" {
		return f.run(context.WithoutCancel(ctx), "", form)
	}

	v, _, shared := f.group.Do(sid, func() (any, error) {
		return f.run(context.WithoutCancel(ctx), sid, form), nil
	})

	res := v.(Result)
	res.Shared = shared
	return res
}

type run struct {
	f     *Flow
	ctx   context.Context
	state State
}

func (r *run) to(next State) {
	if r.f.prom != nil {
		r.f.prom.DonationTransitions.WithLabelValues(string(r.state), string(next)).Inc()
	}
	r.f.log.DebugContext(r.ctx, "donation.transition", "from", r.state, "to", next)
	r.state = next
}

func (f *Flow) run(ctx context.Context, sid string, form donation.Form) Result {
	r := &run{f: f, ctx: ctx, state: Idle}

	amount, ok := f.validate(ctx, form)
	if !ok {
		return Result{Outcome: Idle, Form: form}
	}

	f.begin(sid)
	defer func() {
		f.end(sid)
		if r.state != Idle {
			r.to(Idle)
		}
	}()

	// 1. intent
	r.to(CreatingIntent)
	intent, err := f.backend.CreatePaymentIntent(ctx, amount)
	if err != nil {
		if !apiclient.Notified(err) {
			f.notify(ctx, flash.Error(MsgIntentFailed))
		}
		r.to(Failed)
		return Result{Outcome: Failed, Form: form, Err: err}
	}

	// 2. confirmation
	r.to(ConfirmingPayment)
	conf, err := f.confirmer.Confirm(ctx, payment.ConfirmRequest{
		ClientSecret:  intent.ClientSecret,
		PaymentMethod: form.PaymentMethod,
		BillingName:   orDefault(form.Name, donation.AnonymousDonorName),
		BillingEmail:  orDefault(form.Email, donation.AnonymousDonorEmail),
	})
	if err != nil {
		f.notify(ctx, flash.Error(processorMessage(err)))
		r.to(Failed)
		return Result{Outcome: Failed, Form: form, Err: err}
	}
	if !conf.Succeeded() {
		f.notify(ctx, flash.Error(MsgPaymentFailed))
		r.to(Failed)
		return Result{Outcome: Failed, Form: form, TransactionID: conf.TransactionID}
	}

	// 3. ledger. The client stays quiet; reconcile queues the only notice.
	r.to(RecordingDonation)
	rec, err := f.backend.RecordDonation(apiclient.Quiet(ctx), donation.RecordRequest{
		Amount:        amount,
		TransactionID: conf.TransactionID,
		Message:       form.Message,
	})
	if err != nil {
		r.to(RecordFailed)
		f.reconcile(ctx, form, amount, conf.TransactionID, err)
		return Result{Outcome: RecordFailed, Form: form.Reset(), TransactionID: conf.TransactionID, Err: err}
	}

	r.to(Succeeded)
	f.notify(ctx, flash.Success(MsgThankYou))
	f.log.InfoContext(ctx, "donation.succeeded", "transaction_id", conf.TransactionID, "amount", amount.String())

	return Result{Outcome: Succeeded, Form: form.Reset(), TransactionID: conf.TransactionID, Record: rec}
}

// validate runs before anything is marked loading and before any call.
func (f *Flow) validate(ctx context.Context, form donation.Form) (donation.Amount, bool) {
	if f.confirmer == nil {
		f.notify(ctx, flash.Error(MsgNotReady))
		return 0, false
	}

	amount, err := donation.ParseAmount(form.Amount)
	if err != nil {
		f.notify(ctx, flash.Error(MsgInvalidAmount))
		return 0, false
	}

	if !form.CardComplete || strings.TrimSpace(form.PaymentMethod) == "" {
		f.notify(ctx, flash.Error(MsgIncompleteCard))
		return 0, false
	}

	return amount, true
}

// reconcile handles the partial failure: money moved, the ledger does not
// know. Never retried from here; the record call may have half-succeeded.
func (f *Flow) reconcile(ctx context.Context, form donation.Form, amount donation.Amount, txID string, cause error) {
	f.log.ErrorContext(ctx, "donation.reconciliation_required",
		"transaction_id", txID,
		"amount", amount.String(),
		"err", cause,
	)
	if f.prom != nil {
		f.prom.ReconciliationsRequired.Inc()
	}

	f.notify(ctx, flash.Info(MsgRecordPending))

	if f.reconciler == nil {
		return
	}

	rec, err := f.reconciler.CreateWithAlert(ctx, reconciliation.CreateRequest{
		TransactionID: txID,
		Amount:        amount,
		Message:       form.Message,
		DonorName:     form.Name,
		DonorEmail:    form.Email,
		UserID:        form.UserID,
		Error:         cause.Error(),
	})
	if err != nil {
		// the log line above is then the only trace; keep it greppable
		f.log.ErrorContext(ctx, "donation.reconciliation_persist_failed", "transaction_id", txID, "err", err)
		return
	}
	f.log.InfoContext(ctx, "donation.reconciliation_recorded", "reconciliation_id", rec.ID, "transaction_id", txID)
}

func (f *Flow) begin(sid string) {
	f.mu.Lock()
	f.inflight[sid]++
	f.mu.Unlock()
}

func (f *Flow) end(sid string) {
	f.mu.Lock()
	if f.inflight[sid] <= 1 {
		delete(f.inflight, sid)
	} else {
		f.inflight[sid]--
	}
	f.mu.Unlock()
}

func (f *Flow) notify(ctx context.Context, n flash.Notice) {
	if f.notifier != nil {
		f.notifier.Notify(ctx, n)
	}
}

func processorMessage(err error) string {
	var pe *payment.ProcessorError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return MsgPaymentFailed
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/givehub/internal/domain/job"
	"github.com/geocoder89/givehub/internal/jobs"
	"github.com/geocoder89/givehub/internal/notifications"
)

// errPermanent marks failures a retry cannot fix.
var errPermanent = errors.New("permanent job failure")

// ProcessOne claims and runs at most one job. worked is false when the
// queue had nothing runnable.
func (w *Worker) ProcessOne(ctx context.Context) (worked bool, err error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if errors.Is(err, job.ErrJobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	w.metrics.IncClaimed()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()
	execErr := w.execute(ctx, j)
	elapsed := time.Since(start)
	w.metrics.ObserveDuration(elapsed)

	// outcome bookkeeping must survive shutdown of the claim loop
	bookCtx, cancelBook := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancelBook()

	if execErr != nil {
		result := w.handleFailure(bookCtx, j, execErr)
		w.observe(j.Type, result, elapsed)
		return true, nil
	}

	if err := w.repo.MarkDone(bookCtx, j.ID); err != nil {
		_ = w.repo.MarkFailed(bookCtx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.observe(j.Type, "done", elapsed)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	decoded, err := jobs.DecodePayload(jobs.JobType(j.Type), j.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	switch p := decoded.(type) {
	case jobs.ReconciliationAlertPayload:
		if err := jobs.ValidatePayload(jobs.JobReconciliationAlert, p); err != nil {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}

		err := w.notifier.SendReconciliationAlert(ctx, notifications.ReconciliationAlert{
			ReconciliationID: p.ReconciliationID,
			TransactionID:    p.TransactionID,
			Amount:           p.Amount,
			DonorEmail:       p.DonorEmail,
			Error:            p.Error,
			RequestedAt:      p.RequestedAt,
		})
		if err != nil {
			return err
		}

		w.metrics.IncAlerted(time.Now())
		w.log.InfoContext(ctx, "worker.alert_sent", "job_id", j.ID, "reconciliation_id", p.ReconciliationID)
		return nil

	default:
		return fmt.Errorf("%w: unhandled payload %T", errPermanent, decoded)
	}
}

// handleFailure reschedules with backoff, or fails the job once it is
// permanent or out of attempts. Returns the result label.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	if errors.Is(cause, errPermanent) || j.Exhausted() {
		w.metrics.IncExhausted()
		w.log.ErrorContext(ctx, "worker.job_failed", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts+1, "err", cause)
		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			w.log.ErrorContext(ctx, "worker.mark_failed_error", "job_id", j.ID, "err", err)
		}
		return "failed"
	}

	delay := ExponentialBackoff(j.Attempts)
	w.metrics.IncRetried()
	w.log.WarnContext(ctx, "worker.job_retry", "job_id", j.ID, "attempt", j.Attempts+1, "retry_in", delay.String(), "err", cause)

	if err := w.repo.Reschedule(ctx, j.ID, time.Now().Add(delay), cause.Error()); err != nil {
		w.log.ErrorContext(ctx, "worker.reschedule_error", "job_id", j.ID, "err", err)
	}
	return "retry"
}

func (w *Worker) observe(jobType, result string, elapsed time.Duration) {
	if w.prom == nil {
		return
	}
	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(elapsed.Seconds())
}

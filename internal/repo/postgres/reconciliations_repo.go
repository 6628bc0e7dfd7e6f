package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/job"
	"github.com/geocoder89/givehub/internal/domain/reconciliation"
	"github.com/geocoder89/givehub/internal/jobs"
	"github.com/geocoder89/givehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// alert jobs give up after this many tries; by then the ledger row is what
// staff work from anyway
const alertMaxAttempts = 10

type ReconciliationsRepo struct {
	pool *pgxpool.Pool
	jobs *JobsRepo
	prom *observability.Prom
}

func NewReconciliationsRepo(pool *pgxpool.Pool, jobsRepo *JobsRepo, prom *observability.Prom) *ReconciliationsRepo {
	return &ReconciliationsRepo{pool: pool, jobs: jobsRepo, prom: prom}
}

func (r *ReconciliationsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const reconciliationColumns = `
	id, transaction_id, amount_cents, message, donor_name, donor_email,
	user_id, error, status, created_at, resolved_at, resolved_by
`

func scanReconciliation(row pgx.Row) (reconciliation.Reconciliation, error) {
	var rc reconciliation.Reconciliation
	var cents int64
	var status string

	err := row.Scan(
		&rc.ID, &rc.TransactionID, &cents, &rc.Message, &rc.DonorName, &rc.DonorEmail,
		&rc.UserID, &rc.Error, &status, &rc.CreatedAt, &rc.ResolvedAt, &rc.ResolvedBy,
	)
	if err != nil {
		return reconciliation.Reconciliation{}, err
	}

	rc.Amount = donation.Amount(cents)
	rc.Status = reconciliation.Status(status)
	return rc, nil
}

// CreateWithAlert stores the reconciliation and enqueues its ops alert in
// one transaction. A repeat for the same transaction id returns the
// existing row.
func (r *ReconciliationsRepo) CreateWithAlert(ctx context.Context, req reconciliation.CreateRequest) (reconciliation.Reconciliation, error) {
	rc := reconciliation.New(req)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return reconciliation.Reconciliation{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var inserted bool
	err = r.observe("reconciliations.insert", func() error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO reconciliations (
				id, transaction_id, amount_cents, message, donor_name, donor_email,
				user_id, error, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (transaction_id) DO NOTHING
		`, rc.ID, rc.TransactionID, rc.Amount.Cents(), rc.Message, rc.DonorName, rc.DonorEmail,
			rc.UserID, rc.Error, string(rc.Status), rc.CreatedAt)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return reconciliation.Reconciliation{}, err
	}

	if !inserted {
		existing, err := r.getByTransactionTx(ctx, tx, rc.TransactionID)
		if err != nil {
			return reconciliation.Reconciliation{}, err
		}
		return existing, tx.Commit(ctx)
	}

	payload, err := jobs.EncodePayload(jobs.JobReconciliationAlert, jobs.ReconciliationAlertPayload{
		ReconciliationID: rc.ID,
		TransactionID:    rc.TransactionID,
		Amount:           rc.Amount,
		DonorEmail:       rc.DonorEmail,
		Error:            rc.Error,
		RequestedAt:      rc.CreatedAt,
	})
	if err != nil {
		return reconciliation.Reconciliation{}, err
	}

	key := "reconciliation_alert:" + rc.ID
	if _, err := r.jobs.CreateTx(ctx, tx, job.CreateRequest{
		Type:           string(jobs.JobReconciliationAlert),
		Payload:        payload,
		MaxAttempts:    alertMaxAttempts,
		IdempotencyKey: &key,
	}); err != nil {
		return reconciliation.Reconciliation{}, fmt.Errorf("enqueue alert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return reconciliation.Reconciliation{}, fmt.Errorf("commit: %w", err)
	}
	return rc, nil
}

func (r *ReconciliationsRepo) getByTransactionTx(ctx context.Context, tx pgx.Tx, txID string) (reconciliation.Reconciliation, error) {
	var rc reconciliation.Reconciliation

	err := r.observe("reconciliations.get_by_transaction", func() error {
		var err error
		rc, err = scanReconciliation(tx.QueryRow(ctx,
			`SELECT `+reconciliationColumns+` FROM reconciliations WHERE transaction_id = $1`, txID))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return reconciliation.Reconciliation{}, reconciliation.ErrNotFound
	}
	return rc, err
}

func (r *ReconciliationsRepo) GetByID(ctx context.Context, id string) (reconciliation.Reconciliation, error) {
	var rc reconciliation.Reconciliation

	err := r.observe("reconciliations.get_by_id", func() error {
		var err error
		rc, err = scanReconciliation(r.pool.QueryRow(ctx,
			`SELECT `+reconciliationColumns+` FROM reconciliations WHERE id = $1`, id))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return reconciliation.Reconciliation{}, reconciliation.ErrNotFound
	}
	return rc, err
}

// ListOpen returns unresolved charges, oldest first.
func (r *ReconciliationsRepo) ListOpen(ctx context.Context, limit int) ([]reconciliation.Reconciliation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows pgx.Rows
	err := r.observe("reconciliations.list_open", func() error {
		var err error
		rows, err = r.pool.Query(ctx, `
			SELECT `+reconciliationColumns+`
			FROM reconciliations
			WHERE status = 'open'
			ORDER BY created_at ASC
			LIMIT $1
		`, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reconciliation.Reconciliation, 0)
	for rows.Next() {
		rc, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Resolve marks an open reconciliation as handled by staff member resolvedBy.
func (r *ReconciliationsRepo) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) error {
	var affected int64

	err := r.observe("reconciliations.resolve", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE reconciliations
			SET status = 'resolved',
			    resolved_at = $2,
			    resolved_by = $3
			WHERE id = $1 AND status = 'open'
		`, id, at, resolvedBy)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return reconciliation.ErrAlreadyResolved
	}
	return nil
}

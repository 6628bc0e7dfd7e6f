package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes alerts to the structured log, where the ops log
// pipeline picks them up.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) SendReconciliationAlert(ctx context.Context, a ReconciliationAlert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.log.WarnContext(ctx, "ops.reconciliation_alert",
		"reconciliation_id", a.ReconciliationID,
		"transaction_id", a.TransactionID,
		"amount", a.Amount.String(),
		"donor_email", a.DonorEmail,
		"error", a.Error,
		"requested_at", a.RequestedAt,
	)
	return nil
}

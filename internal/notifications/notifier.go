package notifications

import (
	"context"
	"time"

	"github.com/geocoder89/givehub/internal/domain/donation"
)

// ReconciliationAlert tells operations staff that a charge succeeded at the
// processor but is missing from the backend ledger.
type ReconciliationAlert struct {
	ReconciliationID string
	TransactionID    string
	Amount           donation.Amount
	DonorEmail       string
	Error            string
	RequestedAt      time.Time
}

type Notifier interface {
	SendReconciliationAlert(ctx context.Context, alert ReconciliationAlert) error
}

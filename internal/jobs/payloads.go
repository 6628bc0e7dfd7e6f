package jobs

import (
	"time"

	"github.com/geocoder89/givehub/internal/domain/donation"
)

type ReconciliationAlertPayload struct {
	ReconciliationID string          `json:"reconciliationId"`
	TransactionID    string          `json:"transactionId"`
	Amount           donation.Amount `json:"amount"`
	DonorEmail       string          `json:"donorEmail,omitempty"`
	Error            string          `json:"error"`
	RequestedAt      time.Time       `json:"requestedAt"`
}

package reconciliation

import (
	"errors"
	"time"

	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

var (
	ErrNotFound        = errors.New("reconciliation not found")
	ErrAlreadyResolved = errors.New("reconciliation already resolved")
)

// Reconciliation is a charge the processor confirmed but the backend ledger
// never recorded. Staff resolve these by hand.
type Reconciliation struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	Amount        donation.Amount `json:"amount"`
	Message       string          `json:"message,omitempty"`
	DonorName     string          `json:"donorName,omitempty"`
	DonorEmail    string          `json:"donorEmail,omitempty"`
	UserID        *string         `json:"userId,omitempty"`
	Error         string          `json:"error"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ResolvedAt    *time.Time      `json:"resolvedAt,omitempty"`
	ResolvedBy    *string         `json:"resolvedBy,omitempty"`
}

type CreateRequest struct {
	TransactionID string
	Amount        donation.Amount
	Message       string
	DonorName     string
	DonorEmail    string
	UserID        string
	Error         string
}

func New(req CreateRequest) Reconciliation {
	var uid *string
	if req.UserID != "" {
		u := req.UserID
		uid = &u
	}

	return Reconciliation{
		ID:            uuid.NewString(),
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Message:       req.Message,
		DonorName:     req.DonorName,
		DonorEmail:    req.DonorEmail,
		UserID:        uid,
		Error:         req.Error,
		Status:        StatusOpen,
		CreatedAt:     time.Now().UTC(),
	}
}

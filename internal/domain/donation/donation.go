package donation

import (
	"encoding/json"
	"time"
)

// Intent is the backend's authorization for a charge; never stored.
type Intent struct {
	Amount       Amount
	ClientSecret string
}

type Donor struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Record struct {
	ID            string    `json:"id"`
	Amount        Amount    `json:"amount"`
	TransactionID string    `json:"transactionId,omitempty"`
	Message       string    `json:"message,omitempty"`
	Donor         *Donor    `json:"donor,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        string    `json:"status,omitempty"`
}

func (r *Record) UnmarshalJSON(b []byte) error {
	type alias Record
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*r = Record(raw.alias)
	if r.ID == "" {
		r.ID = raw.MongoID
	}
	return nil
}

func (r Record) DonorName() string {
	if r.Donor == nil || r.Donor.Name == "" {
		return "Anonymous"
	}
	return r.Donor.Name
}

func (r Record) DonorEmail() string {
	if r.Donor == nil || r.Donor.Email == "" {
		return "No email"
	}
	return r.Donor.Email
}

func (r Record) DisplayStatus() string {
	if r.Status == "" {
		return "Completed"
	}
	return r.Status
}

// Total sums amounts; used by the admin stats page.
func Total(records []Record) Amount {
	var sum Amount
	for _, r := range records {
		sum += r.Amount
	}
	return sum
}

// IntentRequest is the body of POST /donations/stripe-payment.
type IntentRequest struct {
	Amount Amount `json:"amount"`
}

type IntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// RecordRequest is the body of POST /donations/donate. Message is always sent,
// empty when the donor left none.
type RecordRequest struct {
	Amount        Amount `json:"amount"`
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
}

// PresetAmounts are offered as one-click buttons on the donation form.
var PresetAmounts = []int64{10, 25, 50, 100, 250}

const (
	AnonymousDonorName  = "Anonymous Donor"
	AnonymousDonorEmail = "no-email@example.com"
)

// Form is the raw donation form as submitted. Amount stays a string so that
// validation can reject non-numeric input with a donor-facing message.
type Form struct {
	Amount        string `form:"amount"`
	Name          string `form:"name" binding:"max=120"`
	Email         string `form:"email" binding:"omitempty,email"`
	Message       string `form:"message" binding:"max=1000"`
	CardComplete  bool   `form:"card_complete"`
	PaymentMethod string `form:"payment_method"`

	// set from the session, never from the request
	UserID string `form:"-"`
}

// Reset clears what a successful donation consumes and keeps donor identity.
func (f Form) Reset() Form {
	return Form{Name: f.Name, Email: f.Email, UserID: f.UserID}
}

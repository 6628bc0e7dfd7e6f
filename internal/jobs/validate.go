package jobs

import "strings"

// ValidatePayload performs minimal validation on decoded payloads.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobReconciliationAlert:
		var p ReconciliationAlertPayload
		switch v := payload.(type) {
		case ReconciliationAlertPayload:
			p = v
		case *ReconciliationAlertPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.ReconciliationID) == "" || trim(p.TransactionID) == "" || p.Amount <= 0 {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}

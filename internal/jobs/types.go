package jobs

type JobType string

const (
	// JobReconciliationAlert tells operators a charge succeeded at the
	// processor but the backend ledger has no record of it.
	JobReconciliationAlert JobType = "donation.reconciliation_alert"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobReconciliationAlert:
		return true
	default:
		return false
	}
}

package reconciliation

import "time"

// Per-row classification vocabulary. The first matching rule of the
// precedence order in classify() wins.
const (
	ClassNotSubmitted = "not_submitted"
	ClassMissingInEMP = "missing_in_emp"
	ClassApproved     = "approved"
	ClassError        = "error"
	ClassPending      = "pending"
)

// RowDetail is one row's outcome in a reconciliation report.
type RowDetail struct {
	RowIndex      int    `json:"row_index"`
	TransactionID string `json:"transaction_id"`
	UniqueID      string `json:"unique_id,omitempty"`
	Status        string `json:"status"`
	EMPStatus     string `json:"emp_status,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Report summarizes one reconcile run. Only the latest report is retained
// on the batch; a new run replaces it wholesale.
type Report struct {
	Processed     int         `json:"processed"`
	Matched       int         `json:"matched"`
	ApprovedCount int         `json:"approved_count"`
	ErrorCount    int         `json:"error_count"`
	MissingCount  int         `json:"missing_count"`
	Details       []RowDetail `json:"details"`
	ReconciledAt  time.Time   `json:"reconciled_at"`
}

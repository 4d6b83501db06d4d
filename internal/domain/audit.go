package domain

// Audit actions
const (
	ActionNewLoan         = "New Loan Application"
	ActionApproveLoan     = "Approve Loan"
	ActionRejectLoan      = "Reject Loan"
	ActionMoveToRecycle   = "Move to Recycle"
	ActionRestoreLoan     = "Restore Loan"
	ActionPermanentDelete = "Permanent Delete"
	ActionUpdateLoan      = "Update Loan"
	ActionRecordPayment   = "Record Payment"
	ActionMarkFullyPaid   = "Mark Fully Paid"
	ActionCreateUser      = "Create User"
	ActionDeleteUser      = "Delete User"
)

// DefaultLogLimit is how many entries reports read when no limit is given.
const DefaultLogLimit = 100

// AuditEntry records one user action that changed persistent state.
type AuditEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}

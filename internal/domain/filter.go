package domain

import "time"

type FilterKind string

const (
	FilterAll        FilterKind = "all"
	FilterStatus     FilterKind = "status"
	FilterActive     FilterKind = "active"
	FilterOverdue    FilterKind = "overdue"
	FilterRecycleBin FilterKind = "recycle"
)

// LoanFilter selects loans for list views. Every kind except FilterRecycleBin
// excludes soft-deleted loans.
type LoanFilter struct {
	Kind   FilterKind
	Status LoanStatus
	Today  time.Time
}

func AllLoans() LoanFilter {
	return LoanFilter{Kind: FilterAll}
}

func LoansWithStatus(status LoanStatus) LoanFilter {
	return LoanFilter{Kind: FilterStatus, Status: status}
}

// ActiveLoans selects approved loans that are not yet fully paid.
func ActiveLoans() LoanFilter {
	return LoanFilter{Kind: FilterActive}
}

func OverdueLoans(today time.Time) LoanFilter {
	return LoanFilter{Kind: FilterOverdue, Today: today}
}

func RecycleBin() LoanFilter {
	return LoanFilter{Kind: FilterRecycleBin}
}

// Matches applies the filter to a single loan. Store implementations that
// cannot express a filter natively fall back to it.
func (f LoanFilter) Matches(loan *Loan) bool {
	switch f.Kind {
	case FilterRecycleBin:
		return loan.IsDeleted
	case FilterStatus:
		return !loan.IsDeleted && loan.Status == f.Status
	case FilterActive:
		return !loan.IsDeleted && loan.Status.IsActive()
	case FilterOverdue:
		if loan.IsDeleted || loan.Status == LoanStatusFullyPaid || loan.NextPayment == nil {
			return false
		}
		return loan.NextPayment.Format(DateLayout) < f.Today.Format(DateLayout)
	default:
		return !loan.IsDeleted
	}
}

// DateLayout is the persisted layout for calendar dates.
const DateLayout = "2006-01-02"

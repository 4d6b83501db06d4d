package service

import (
	"fmt"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/pkg/utils"
)

const (
	ViewStatusOverdue = "Overdue"
	DaysNotApplicable = "N/A"
	DaysDueToday      = "Due Today"
)

// OverdueStatus is the derived, display-only state of a loan on a given day.
type OverdueStatus struct {
	ViewStatus    string
	DaysRemaining string
	Overdue       bool
}

// Derive computes the view status and days-remaining label of loan as of
// today. It reads nothing but its arguments.
func Derive(loan *domain.Loan, today time.Time) OverdueStatus {
	out := OverdueStatus{
		ViewStatus:    string(loan.Status),
		DaysRemaining: DaysNotApplicable,
	}

	switch loan.Status {
	case domain.LoanStatusPending, domain.LoanStatusRejected, domain.LoanStatusFullyPaid:
		return out
	}
	if loan.NextPayment == nil {
		return out
	}

	d := utils.DaysBetween(today, *loan.NextPayment)
	switch {
	case d > 0:
		out.DaysRemaining = fmt.Sprintf("%d Days left", d)
	case d == 0:
		out.DaysRemaining = DaysDueToday
	default:
		out.DaysRemaining = fmt.Sprintf("%d Days Overdue", -d)
		out.ViewStatus = ViewStatusOverdue
		out.Overdue = true
	}
	return out
}

// NewLoanView pairs a loan with its derived status.
func NewLoanView(loan *domain.Loan, today time.Time) *domain.LoanView {
	status := Derive(loan, today)
	return &domain.LoanView{
		Loan:          loan,
		ViewStatus:    status.ViewStatus,
		DaysRemaining: status.DaysRemaining,
		Overdue:       status.Overdue,
	}
}

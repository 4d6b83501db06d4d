package service

import (
	"testing"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestDerive(t *testing.T) {
	today := date(2025, 3, 10)

	tests := []struct {
		name          string
		loan          *domain.Loan
		viewStatus    string
		daysRemaining string
		overdue       bool
	}{
		{
			name:          "overdue under payment",
			loan:          &domain.Loan{Status: domain.LoanStatusUnderPayment, NextPayment: datePtr(2025, 3, 1)},
			viewStatus:    ViewStatusOverdue,
			daysRemaining: "9 Days Overdue",
			overdue:       true,
		},
		{
			name:          "due today",
			loan:          &domain.Loan{Status: domain.LoanStatusApproved, NextPayment: datePtr(2025, 3, 10)},
			viewStatus:    string(domain.LoanStatusApproved),
			daysRemaining: DaysDueToday,
		},
		{
			name:          "days left",
			loan:          &domain.Loan{Status: domain.LoanStatusApproved, NextPayment: datePtr(2025, 3, 15)},
			viewStatus:    string(domain.LoanStatusApproved),
			daysRemaining: "5 Days left",
		},
		{
			name:          "pending",
			loan:          &domain.Loan{Status: domain.LoanStatusPending},
			viewStatus:    string(domain.LoanStatusPending),
			daysRemaining: DaysNotApplicable,
		},
		{
			name:          "fully paid ignores stale date",
			loan:          &domain.Loan{Status: domain.LoanStatusFullyPaid, NextPayment: datePtr(2025, 1, 1)},
			viewStatus:    string(domain.LoanStatusFullyPaid),
			daysRemaining: DaysNotApplicable,
		},
		{
			name:          "rejected",
			loan:          &domain.Loan{Status: domain.LoanStatusRejected},
			viewStatus:    string(domain.LoanStatusRejected),
			daysRemaining: DaysNotApplicable,
		},
		{
			name:          "approved without due date",
			loan:          &domain.Loan{Status: domain.LoanStatusApproved},
			viewStatus:    string(domain.LoanStatusApproved),
			daysRemaining: DaysNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.loan, today)

			assert.Equal(t, tt.viewStatus, got.ViewStatus)
			assert.Equal(t, tt.daysRemaining, got.DaysRemaining)
			assert.Equal(t, tt.overdue, got.Overdue)
			assert.Equal(t, got, Derive(tt.loan, today), "derive must be repeatable")
		})
	}
}

func TestDerive_TimeOfDayIgnored(t *testing.T) {
	loan := &domain.Loan{Status: domain.LoanStatusUnderPayment, NextPayment: datePtr(2025, 3, 11)}

	got := Derive(loan, time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC))

	assert.Equal(t, "1 Days left", got.DaysRemaining)
}

func TestNewLoanView(t *testing.T) {
	loan := &domain.Loan{LoanID: "LOAN-2025-00AA", Status: domain.LoanStatusUnderPayment, NextPayment: datePtr(2025, 3, 1)}

	view := NewLoanView(loan, date(2025, 3, 10))

	assert.Same(t, loan, view.Loan)
	assert.Equal(t, ViewStatusOverdue, view.ViewStatus)
	assert.True(t, view.Overdue)
}

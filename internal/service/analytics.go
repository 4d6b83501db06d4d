package service

import (
	"strings"

	"github.com/bigongold/loan-manager/internal/domain"

	"github.com/shopspring/decimal"
)

// Summarize aggregates loans and payments. When datePrefix is non-empty only
// loans whose application date (YYYY-MM-DD) starts with it are counted, and
// only payments against those loans are recovered.
func Summarize(loans []*domain.Loan, payments []*domain.Payment, datePrefix string) *domain.Summary {
	summary := &domain.Summary{
		DateFilter:      datePrefix,
		TotalLent:       decimal.Zero,
		TotalRecovered:  decimal.Zero,
		StatusBreakdown: make(map[domain.LoanStatus]int),
	}

	included := make(map[string]struct{}, len(loans))
	for _, loan := range loans {
		if datePrefix != "" && !strings.HasPrefix(loan.ApplicationDate.Format(domain.DateLayout), datePrefix) {
			continue
		}
		included[loan.ID] = struct{}{}

		summary.LoanCount++
		summary.TotalLent = summary.TotalLent.Add(loan.LoanAmount)
		summary.StatusBreakdown[loan.Status]++
		if loan.Status != domain.LoanStatusFullyPaid && loan.Status != domain.LoanStatusRejected {
			summary.ActiveCount++
		}
	}

	for _, p := range payments {
		if _, ok := included[p.LoanID]; ok {
			summary.TotalRecovered = summary.TotalRecovered.Add(p.PaymentAmount)
		}
	}

	// Negative on inconsistent data; reported as-is.
	summary.OutstandingDebt = summary.TotalLent.Sub(summary.TotalRecovered)
	return summary
}

package domain

import "github.com/shopspring/decimal"

// Summary is the analytics block printed on reports and the dashboard.
type Summary struct {
	DateFilter      string             `json:"date_filter,omitempty"`
	TotalLent       decimal.Decimal    `json:"total_lent"`
	TotalRecovered  decimal.Decimal    `json:"total_recovered"`
	OutstandingDebt decimal.Decimal    `json:"outstanding_debt"`
	ActiveCount     int                `json:"active_count"`
	LoanCount       int                `json:"loan_count"`
	StatusBreakdown map[LoanStatus]int `json:"status_breakdown"`
}

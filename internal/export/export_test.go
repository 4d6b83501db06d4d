package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "loans.xlsx")
	rows := [][]string{
		{"Loan ID", "Customer", "Amount"},
		{"LOAN-2025-0A1B", "Alice", "1000000.00"},
		{"LOAN-2025-FF00", "Bob", "250000.00"},
	}

	require.NoError(t, NewXLSXWriter("").WriteTabular(rows, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Loans")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestPDFRenderer(t *testing.T) {
	dir := t.TempDir()
	r := NewPDFRenderer(clock.NewFixed(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))
	next := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)

	loan := &domain.Loan{
		LoanID:         "LOAN-2025-0A1B",
		CustomerName:   "Alice",
		NINNumber:      "N123",
		LoanAmount:     decimal.NewFromInt(1000000),
		ReturnAmount:   decimal.NewFromInt(1120000),
		InterestRate:   decimal.NewFromInt(12),
		LoanType:       domain.LoanTypeBusiness,
		Duration:       domain.DurationOneYear,
		PaymentPlan:    domain.PaymentPlanMonthly,
		Collateral:     domain.CollateralGold,
		SecurityPhotos: []string{"photos/ring.jpg"},
		Status:         domain.LoanStatusUnderPayment,
		NextPayment:    &next,
	}
	agreement := filepath.Join(dir, "agreement.pdf")
	require.NoError(t, r.RenderLoanDocument(loan, agreement))

	summary := &domain.Summary{
		DateFilter:      "2025",
		TotalLent:       decimal.NewFromInt(1000000),
		TotalRecovered:  decimal.NewFromInt(100000),
		OutstandingDebt: decimal.NewFromInt(900000),
		ActiveCount:     1,
		LoanCount:       1,
		StatusBreakdown: map[domain.LoanStatus]int{domain.LoanStatusUnderPayment: 1},
	}
	logs := []*domain.AuditEntry{
		{Timestamp: "2025-03-10T09:00:00Z", User: "clerk", Action: domain.ActionRecordPayment, Details: "Recorded payment of 100000.00 for loan LOAN-2025-0A1B via Cash"},
	}
	report := filepath.Join(dir, "reports", "report.pdf")
	require.NoError(t, r.RenderReport(summary, logs, report))

	for _, path := range []string{agreement, report} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, len(data) > 4 && string(data[:4]) == "%PDF", "%s is not a PDF", path)
	}
}

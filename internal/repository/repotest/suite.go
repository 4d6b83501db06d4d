// Package repotest holds the behaviour every Store implementation must share.
// Driver packages run it against their own backend.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// missingID is well-formed for every driver but never assigned.
var missingID = primitive.NewObjectID().Hex()

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// NewLoan returns a valid approved loan for the given reference and NIN.
func NewLoan(ref, nin string, applied time.Time) *domain.Loan {
	return &domain.Loan{
		LoanID:          ref,
		CustomerName:    "Alice Uwase",
		NINNumber:       nin,
		LoanAmount:      decimal.NewFromInt(500000),
		LoanType:        domain.LoanTypePersonal,
		Duration:        domain.DurationSixMonths,
		Collateral:      domain.CollateralGold,
		SecurityPhotos:  []string{"/photos/ring.jpg"},
		PaymentPlan:     domain.PaymentPlanMonthly,
		ReturnAmount:    decimal.NewFromInt(530000),
		InterestRate:    decimal.NewFromInt(12),
		Status:          domain.LoanStatusApproved,
		ApplicationDate: applied,
		NextPayment:     date(2025, 2, 15),
	}
}

// Run exercises store, which must start empty.
func Run(t *testing.T, store *repository.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, store.Users) })
	t.Run("loans", func(t *testing.T) { testLoans(t, store.Loans) })
	t.Run("loan filters", func(t *testing.T) { testLoanFilters(t, store.Loans) })
	t.Run("payments", func(t *testing.T) { testPayments(t, store.Payments) })
	t.Run("audit log", func(t *testing.T) { testAudit(t, store.Logs) })
}

func testUsers(t *testing.T, users repository.UserRepository) {
	ctx := context.Background()

	alice := &domain.User{Username: "alice", FullName: "Alice", PasswordHash: "hash", Role: domain.RoleAdmin}
	require.NoError(t, users.Create(ctx, alice))
	require.NotEmpty(t, alice.ID)

	err := users.Create(ctx, &domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleStaff})
	assert.ErrorIs(t, err, customError.ErrConflict)

	got, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = users.GetByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, customError.ErrNotFound)

	require.NoError(t, users.Create(ctx, &domain.User{Username: "bob", PasswordHash: "h", Role: domain.RoleStaff}))
	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)

	require.NoError(t, users.Delete(ctx, alice.ID))
	_, err = users.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, customError.ErrNotFound)
	assert.ErrorIs(t, users.Delete(ctx, missingID), customError.ErrNotFound)
}

func testLoans(t *testing.T, loans repository.LoanRepository) {
	ctx := context.Background()
	applied := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	loan := NewLoan("LOAN-2025-AAAA", "N-1", applied)
	require.NoError(t, loans.Create(ctx, loan))
	require.NotEmpty(t, loan.ID)

	err := loans.Create(ctx, NewLoan("LOAN-2025-AAAA", "N-2", applied))
	assert.ErrorIs(t, err, customError.ErrConflict)

	got, err := loans.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "LOAN-2025-AAAA", got.LoanID)
	assert.True(t, got.ReturnAmount.Equal(decimal.NewFromInt(530000)))
	assert.True(t, got.ApplicationDate.Equal(applied))
	require.NotNil(t, got.NextPayment)
	assert.Equal(t, "2025-02-15", got.NextPayment.Format(domain.DateLayout))
	assert.Nil(t, got.FinalCompletionDate)
	assert.Equal(t, []string{"/photos/ring.jpg"}, got.SecurityPhotos)

	byRef, err := loans.GetByLoanRef(ctx, "LOAN-2025-AAAA")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, byRef.ID)

	_, err = loans.GetByID(ctx, missingID)
	assert.ErrorIs(t, err, customError.ErrNotFound)

	later := NewLoan("LOAN-2025-BBBB", "N-1", applied.Add(48*time.Hour))
	later.CustomerName = "Alice U."
	require.NoError(t, loans.Create(ctx, later))
	latest, err := loans.GetLatestByNIN(ctx, "N-1")
	require.NoError(t, err)
	assert.Equal(t, later.ID, latest.ID)

	_, err = loans.GetLatestByNIN(ctx, "N-404")
	assert.ErrorIs(t, err, customError.ErrNotFound)

	got.Status = domain.LoanStatusFullyPaid
	got.NextPayment = nil
	got.IsDeleted = true
	require.NoError(t, loans.Update(ctx, got))
	updated, err := loans.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusFullyPaid, updated.Status)
	assert.Nil(t, updated.NextPayment)
	assert.True(t, updated.IsDeleted)

	require.NoError(t, loans.Delete(ctx, loan.ID))
	assert.ErrorIs(t, loans.Delete(ctx, loan.ID), customError.ErrNotFound)
	require.NoError(t, loans.Delete(ctx, later.ID))
}

func testLoanFilters(t *testing.T, loans repository.LoanRepository) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	overdue := NewLoan("LOAN-2025-F001", "F-1", base)
	overdue.NextPayment = date(2025, 3, 10)

	dueToday := NewLoan("LOAN-2025-F002", "F-2", base.Add(time.Hour))
	dueToday.NextPayment = date(2025, 3, 20)

	pending := NewLoan("LOAN-2025-F003", "F-3", base.Add(2*time.Hour))
	pending.Status = domain.LoanStatusPending
	pending.NextPayment = nil

	paid := NewLoan("LOAN-2025-F004", "F-4", base.Add(3*time.Hour))
	paid.Status = domain.LoanStatusFullyPaid
	paid.NextPayment = date(2025, 3, 1)

	binned := NewLoan("LOAN-2025-F005", "F-5", base.Add(4*time.Hour))
	binned.NextPayment = date(2025, 3, 1)
	binned.IsDeleted = true

	for _, l := range []*domain.Loan{overdue, dueToday, pending, paid, binned} {
		require.NoError(t, loans.Create(ctx, l))
	}

	refs := func(filter domain.LoanFilter) []string {
		found, err := loans.Find(ctx, filter)
		require.NoError(t, err)
		out := make([]string, 0, len(found))
		for _, l := range found {
			out = append(out, l.LoanID)
		}
		return out
	}

	today := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"LOAN-2025-F004", "LOAN-2025-F003", "LOAN-2025-F002", "LOAN-2025-F001"}, refs(domain.AllLoans()))
	assert.Equal(t, []string{"LOAN-2025-F003"}, refs(domain.LoansWithStatus(domain.LoanStatusPending)))
	assert.Equal(t, []string{"LOAN-2025-F002", "LOAN-2025-F001"}, refs(domain.ActiveLoans()))
	assert.Equal(t, []string{"LOAN-2025-F001"}, refs(domain.OverdueLoans(today)))
	assert.Equal(t, []string{"LOAN-2025-F005"}, refs(domain.RecycleBin()))
}

func testPayments(t *testing.T, payments repository.PaymentRepository) {
	ctx := context.Background()
	loanID := primitive.NewObjectID().Hex()

	total, err := payments.GetTotalPaid(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	for i, amount := range []int64{100000, 250000} {
		p := &domain.Payment{
			LoanID:        loanID,
			CustomerName:  "Alice Uwase",
			PaymentAmount: decimal.NewFromInt(amount),
			PaymentDate:   *date(2025, 2, 10+i),
			PaymentMethod: domain.PaymentMethodMobileMoney,
			ReceivedBy:    "clerk",
			RecordedDate:  time.Date(2025, 2, 10+i, 12, 0, 0, 0, time.UTC),
		}
		require.NoError(t, payments.Create(ctx, p))
		require.NotEmpty(t, p.ID)
	}

	total, err = payments.GetTotalPaid(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(350000)), total.String())

	list, err := payments.GetByLoanID(ctx, loanID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025-02-10", list[0].PaymentDate.Format(domain.DateLayout))

	all, err := payments.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testAudit(t *testing.T, logs repository.AuditRepository) {
	ctx := context.Background()

	for i, action := range []string{domain.ActionNewLoan, domain.ActionApproveLoan, domain.ActionRecordPayment} {
		entry := &domain.AuditEntry{
			Timestamp: time.Date(2025, 1, 15, 9, i, 0, 0, time.UTC).Format(time.RFC3339),
			User:      "clerk",
			Action:    action,
			Details:   "LOAN-2025-AAAA",
		}
		require.NoError(t, logs.Append(ctx, entry))
		require.NotEmpty(t, entry.ID)
	}

	recent, err := logs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.ActionRecordPayment, recent[0].Action)
	assert.Equal(t, domain.ActionApproveLoan, recent[1].Action)

	all, err := logs.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

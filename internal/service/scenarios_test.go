package service

import (
	"context"
	"testing"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	"github.com/bigongold/loan-manager/internal/repository/memory"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	ctx        context.Context
	store      *repository.Store
	clock      *clock.Fixed
	audit      *AuditLog
	identity   *IdentityService
	loans      *LoanService
	repayments *RepaymentService
	users      *UserService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	BcryptCost = bcrypt.MinCost

	store := memory.NewStore()
	clk := clock.NewFixed(now)
	audit := NewAuditLog(store.Logs, clk)
	identity := NewIdentityService(store.Users)

	return &fixture{
		ctx:        context.Background(),
		store:      store,
		clock:      clk,
		audit:      audit,
		identity:   identity,
		loans:      NewLoanService(store.Loans, store.Payments, identity, audit, clk, nil),
		repayments: NewRepaymentService(store.Loans, store.Payments, audit, clk),
		users:      NewUserService(store.Users, audit),
	}
}

func (f *fixture) logs(t *testing.T) []*domain.AuditEntry {
	t.Helper()
	entries, err := f.store.Logs.List(f.ctx, 0)
	require.NoError(t, err)
	return entries
}

func (f *fixture) createAlice(t *testing.T) *domain.Loan {
	t.Helper()
	loan, err := f.loans.CreateLoan(f.ctx, staff, validLoanRequest())
	require.NoError(t, err)
	return loan
}

// happyPath runs S1: create, approve on 2025-01-15, first payment on 2025-02-15.
func (f *fixture) happyPath(t *testing.T) *domain.Loan {
	t.Helper()
	loan := f.createAlice(t)
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	assert.Equal(t, "1120000.00", loan.ReturnAmount.StringFixed(2))

	approved, err := f.loans.Approve(f.ctx, staff, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 2, 15), *approved.NextPayment)
	assert.Equal(t, date(2026, 1, 15), *approved.FinalCompletionDate)

	f.clock.Set(time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC))
	_, updated, err := f.repayments.RecordPayment(f.ctx, staff, loan.ID, paymentRequest(100000))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusUnderPayment, updated.Status)
	assert.Equal(t, date(2025, 3, 15), *updated.NextPayment)
	return updated
}

func TestScenario_HappyPath(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))

	loan := f.happyPath(t)

	stored, err := f.store.Loans.GetByID(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusUnderPayment, stored.Status)

	logs := f.logs(t)
	require.Len(t, logs, 3)
	assert.Equal(t, domain.ActionRecordPayment, logs[0].Action)
	assert.Equal(t, domain.ActionApproveLoan, logs[1].Action)
	assert.Equal(t, domain.ActionNewLoan, logs[2].Action)
	for _, e := range logs {
		assert.Equal(t, "clerk", e.User)
		assert.NotEmpty(t, e.Timestamp)
	}
}

func TestScenario_FullRepayment(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	loan := f.happyPath(t)

	_, closed, err := f.repayments.RecordPayment(f.ctx, staff, loan.ID, paymentRequest(1020000))

	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusFullyPaid, closed.Status)
	assert.Nil(t, closed.NextPayment)

	balance, err := f.repayments.GetBalance(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, balance.Remaining.IsZero())

	// A closed loan takes no more payments.
	_, _, err = f.repayments.RecordPayment(f.ctx, staff, loan.ID, paymentRequest(1))
	assert.ErrorIs(t, err, customError.ErrIllegalTransition)
}

func TestScenario_RepriceAfterPayments(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	loan := f.happyPath(t)
	logsBefore := len(f.logs(t))

	tooSmall := decimal.NewFromInt(50000)
	_, err := f.loans.EditLoan(f.ctx, staff, loan.ID, &domain.LoanPatch{LoanAmount: &tooSmall})
	assert.ErrorIs(t, err, customError.ErrValidation)
	assert.Len(t, f.logs(t), logsBefore)

	stored, err := f.store.Loans.GetByID(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "1120000.00", stored.ReturnAmount.StringFixed(2))

	amount := decimal.NewFromInt(100000)
	rate := decimal.Zero
	edited, err := f.loans.EditLoan(f.ctx, staff, loan.ID, &domain.LoanPatch{LoanAmount: &amount, InterestRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "100000.00", edited.ReturnAmount.StringFixed(2))
	assert.Equal(t, domain.LoanStatusUnderPayment, edited.Status)

	_, _, err = f.repayments.RecordPayment(f.ctx, staff, loan.ID, paymentRequest(1))
	assert.ErrorIs(t, err, customError.ErrOverpayment)

	closed, err := f.loans.MarkFullyPaid(f.ctx, staff, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusFullyPaid, closed.Status)
	assert.Nil(t, closed.NextPayment)

	paid, err := f.store.Payments.GetTotalPaid(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.False(t, paid.LessThan(closed.ReturnAmount.Sub(domain.PaymentTolerance)))
	assert.Equal(t, domain.ActionMarkFullyPaid, f.logs(t)[0].Action)
}

func TestScenario_NINConflict(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	f.happyPath(t)
	logsBefore := len(f.logs(t))

	request := validLoanRequest()
	request.CustomerName = "Bob"
	_, err := f.loans.CreateLoan(f.ctx, staff, request)

	assert.ErrorIs(t, err, customError.ErrIdentityMismatch)
	all, err := f.store.Loans.Find(f.ctx, domain.AllLoans())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, f.logs(t), logsBefore)
}

func TestScenario_NINBindingSurvivesRecycleBin(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	loan := f.createAlice(t)
	_, err := f.loans.SoftDelete(f.ctx, staff, loan.ID)
	require.NoError(t, err)

	request := validLoanRequest()
	request.CustomerName = "Bob"
	_, err = f.loans.CreateLoan(f.ctx, staff, request)

	assert.ErrorIs(t, err, customError.ErrIdentityMismatch)
}

func TestScenario_OverpaymentGuard(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	request := validLoanRequest()
	request.LoanAmount = decimal.NewFromInt(500000)
	loan, err := f.loans.CreateLoan(f.ctx, staff, request)
	require.NoError(t, err)
	_, err = f.loans.Approve(f.ctx, staff, loan.ID)
	require.NoError(t, err)

	_, _, err = f.repayments.RecordPayment(f.ctx, staff, loan.ID, paymentRequest(600000))
	assert.ErrorIs(t, err, customError.ErrOverpayment)
	payments, err := f.store.Payments.GetByLoanID(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	override := paymentRequest(600000)
	override.AllowOverpayment = true
	_, closed, err := f.repayments.RecordPayment(f.ctx, staff, loan.ID, override)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusFullyPaid, closed.Status)

	payments, err = f.store.Payments.GetByLoanID(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestScenario_OverdueDerivation(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	f.happyPath(t)

	f.clock.Set(time.Date(2025, 3, 24, 8, 0, 0, 0, time.UTC))
	views, err := f.loans.ListLoans(f.ctx, domain.LoanFilter{Kind: domain.FilterOverdue})

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "9 Days Overdue", views[0].DaysRemaining)
	assert.Equal(t, ViewStatusOverdue, views[0].ViewStatus)
}

func TestScenario_PermanentDeleteGuard(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	_, err := f.users.CreateUser(f.ctx, admin, &domain.CreateUserRequest{
		Username: "boss", Password: "s3cret-pass", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	loan := f.createAlice(t)
	_, err = f.loans.SoftDelete(f.ctx, staff, loan.ID)
	require.NoError(t, err)

	err = f.loans.PermanentDelete(f.ctx, staff, loan.ID, "s3cret-pass")
	assert.ErrorIs(t, err, customError.ErrPermissionDenied)

	err = f.loans.PermanentDelete(f.ctx, admin, loan.ID, "wrong")
	assert.ErrorIs(t, err, customError.ErrPermissionDenied)

	err = f.loans.PermanentDelete(f.ctx, admin, loan.ID, "s3cret-pass")
	require.NoError(t, err)

	_, err = f.store.Loans.GetByID(f.ctx, loan.ID)
	assert.ErrorIs(t, err, customError.ErrNotFound)
	assert.Equal(t, domain.ActionPermanentDelete, f.logs(t)[0].Action)
	assert.Equal(t, "boss", f.logs(t)[0].User)
}

func TestScenario_RecycleBinFilters(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	loan := f.createAlice(t)

	_, err := f.loans.SoftDelete(f.ctx, staff, loan.ID)
	require.NoError(t, err)

	live, err := f.loans.ListLoans(f.ctx, domain.AllLoans())
	require.NoError(t, err)
	assert.Empty(t, live)
	pending, err := f.loans.ListLoans(f.ctx, domain.LoansWithStatus(domain.LoanStatusPending))
	require.NoError(t, err)
	assert.Empty(t, pending)
	bin, err := f.loans.ListLoans(f.ctx, domain.RecycleBin())
	require.NoError(t, err)
	require.Len(t, bin, 1)

	_, err = f.loans.Approve(f.ctx, staff, loan.ID)
	assert.ErrorIs(t, err, customError.ErrIllegalTransition)

	_, err = f.loans.Restore(f.ctx, staff, loan.ID)
	require.NoError(t, err)
	live, err = f.loans.ListLoans(f.ctx, domain.AllLoans())
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

// Every operation that changes state leaves exactly one entry; failed ones
// leave none.
func TestScenario_AuditCompleteness(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	count := func() int { return len(f.logs(t)) }

	loan := f.createAlice(t)
	require.Equal(t, 1, count())

	_, err := f.loans.Reject(f.ctx, staff, loan.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count())

	_, err = f.loans.Approve(f.ctx, staff, loan.ID)
	require.Error(t, err)
	assert.Equal(t, 2, count())

	_, err = f.loans.EditLoan(f.ctx, staff, loan.ID, &domain.LoanPatch{})
	require.Error(t, err, "rejected loans are closed to edits")
	assert.Equal(t, 2, count())

	_, err = f.loans.SoftDelete(f.ctx, staff, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count())
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/config"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxRefAttempts bounds the search for an unused loan reference.
const maxRefAttempts = 5

// PasswordVerifier checks a user's password for privileged actions.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, username, plaintext string) (bool, error)
}

type LoanService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	identity    PasswordVerifier
	audit       *AuditLog
	clock       clock.Clock
	config      *config.Config
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	identity PasswordVerifier,
	audit *AuditLog,
	clk clock.Clock,
	config *config.Config,
) *LoanService {
	return &LoanService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		identity:    identity,
		audit:       audit,
		clock:       clk,
		config:      config,
	}
}

func (s *LoanService) interestRate() decimal.Decimal {
	if s.config == nil {
		return domain.DefaultInterestRate
	}
	return s.config.GetDefaultInterestRate()
}

// CreateLoan validates an application and stores it as a Pending loan
func (s *LoanService) CreateLoan(ctx context.Context, actor domain.Session, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	if err := validateStruct(request); err != nil {
		return nil, err
	}
	if !request.TermsAccepted {
		return nil, customError.WrapValidation("terms and conditions must be accepted")
	}

	name := strings.TrimSpace(request.CustomerName)
	nin := strings.TrimSpace(request.NINNumber)
	if name == "" || nin == "" {
		return nil, customError.WrapValidation("customer_name and nin_number must not be blank")
	}

	// 1. A NIN stays bound to the name on its first loan
	if err := s.checkIdentity(ctx, nin, name); err != nil {
		return nil, err
	}

	// 2. Return amount at the configured rate
	rate := s.interestRate()
	returnAmount, err := utils.ComputeReturn(request.LoanAmount, string(request.Duration), rate)
	if err != nil {
		return nil, customError.WrapValidation(err.Error())
	}

	now := s.clock.Now()
	loanRef, err := s.newLoanRef(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		LoanID:          loanRef,
		CustomerName:    name,
		NINNumber:       nin,
		LoanAmount:      request.LoanAmount,
		LoanType:        request.LoanType,
		Duration:        request.Duration,
		Collateral:      request.Collateral,
		SecurityPhotos:  append([]string(nil), request.SecurityPhotos...),
		PaymentPlan:     request.PaymentPlan,
		Purpose:         strings.TrimSpace(request.Purpose),
		ReturnAmount:    returnAmount,
		InterestRate:    rate,
		Status:          domain.LoanStatusPending,
		ApplicationDate: now,
	}

	// 3. Save; a concurrent insert of the same reference surfaces as Conflict
	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"loan_id": loan.LoanID,
		"user":    actor.Username,
	}).Info("loan application submitted")

	details := fmt.Sprintf("Submitted loan %s for %s", loan.LoanID, loan.CustomerName)
	if err := s.audit.Record(ctx, actor, domain.ActionNewLoan, details); err != nil {
		return loan, err
	}
	return loan, nil
}

func (s *LoanService) checkIdentity(ctx context.Context, nin, name string) error {
	existing, err := s.LoanRepo.GetLatestByNIN(ctx, nin)
	if err != nil {
		if customError.Is(err, customError.ErrNotFound) {
			return nil
		}
		return err
	}

	if utils.NormalizeName(existing.CustomerName) != utils.NormalizeName(name) {
		return customError.WrapIdentityMismatch(nin, existing.CustomerName, name)
	}
	return nil
}

func (s *LoanService) newLoanRef(ctx context.Context, year int) (string, error) {
	for i := 0; i < maxRefAttempts; i++ {
		ref := utils.NewLoanRef(domain.LoanRefPrefix, year)
		_, err := s.LoanRepo.GetByLoanRef(ctx, ref)
		if customError.Is(err, customError.ErrNotFound) {
			return ref, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", customError.WrapConflict("could not allocate an unused loan reference")
}

// GetLoan returns a loan with its derived overdue status
func (s *LoanService) GetLoan(ctx context.Context, id string) (*domain.LoanView, error) {
	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewLoanView(loan, s.today()), nil
}

// ListLoans returns the loans selected by filter, newest first. An overdue
// filter without a date is evaluated against today.
func (s *LoanService) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error) {
	today := s.today()
	if filter.Kind == domain.FilterOverdue && filter.Today.IsZero() {
		filter.Today = today
	}
	if filter.Kind == domain.FilterStatus && !filter.Status.IsValid() {
		return nil, customError.WrapValidation(fmt.Sprintf("unknown loan status %q", filter.Status))
	}

	loans, err := s.LoanRepo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]*domain.LoanView, 0, len(loans))
	for _, loan := range loans {
		views = append(views, NewLoanView(loan, today))
	}
	return views, nil
}

// Approve moves a Pending loan to Approved and schedules its first payment
// and final completion date from today.
func (s *LoanService) Approve(ctx context.Context, actor domain.Session, id string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.IsDeleted || loan.Status != domain.LoanStatusPending {
		return nil, illegalTransition(loan, "approve")
	}

	months, err := utils.ParseDurationMonths(string(loan.Duration))
	if err != nil {
		return nil, customError.WrapValidation(err.Error())
	}

	today := s.today()
	next := utils.NextCycle(today, loan.PaymentPlan == domain.PaymentPlanWeekly)
	final := utils.AddMonths(today, months)

	loan.Status = domain.LoanStatusApproved
	loan.NextPayment = &next
	loan.FinalCompletionDate = &final

	details := fmt.Sprintf("Approved loan %s for %s; first payment due %s",
		loan.LoanID, loan.CustomerName, utils.FormatDate(next))
	return s.save(ctx, actor, loan, domain.ActionApproveLoan, details)
}

// Reject closes a Pending application
func (s *LoanService) Reject(ctx context.Context, actor domain.Session, id string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.IsDeleted || loan.Status != domain.LoanStatusPending {
		return nil, illegalTransition(loan, "reject")
	}

	loan.Status = domain.LoanStatusRejected

	details := fmt.Sprintf("Rejected loan %s for %s", loan.LoanID, loan.CustomerName)
	return s.save(ctx, actor, loan, domain.ActionRejectLoan, details)
}

// SoftDelete moves a loan to the recycle bin
func (s *LoanService) SoftDelete(ctx context.Context, actor domain.Session, id string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.IsDeleted {
		return nil, illegalTransition(loan, "move to recycle bin")
	}

	loan.IsDeleted = true

	details := fmt.Sprintf("Moved loan %s to recycle bin", loan.LoanID)
	return s.save(ctx, actor, loan, domain.ActionMoveToRecycle, details)
}

// Restore brings a loan back from the recycle bin
func (s *LoanService) Restore(ctx context.Context, actor domain.Session, id string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsDeleted {
		return nil, illegalTransition(loan, "restore")
	}

	loan.IsDeleted = false

	details := fmt.Sprintf("Restored loan %s from recycle bin", loan.LoanID)
	return s.save(ctx, actor, loan, domain.ActionRestoreLoan, details)
}

// PermanentDelete removes a recycled loan. Only an admin whose password
// verifies may do this; payments recorded against the loan are kept.
func (s *LoanService) PermanentDelete(ctx context.Context, actor domain.Session, id, password string) error {
	if err := requireAdmin(actor, "permanently delete loans"); err != nil {
		return err
	}

	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !loan.IsDeleted {
		return customError.WrapPermissionDenied(
			fmt.Sprintf("loan %s must be in the recycle bin before it can be permanently deleted", loan.LoanID))
	}

	ok, err := s.identity.VerifyPassword(ctx, actor.Username, password)
	if err != nil {
		return err
	}
	if !ok {
		return customError.WrapPermissionDenied("password verification failed")
	}

	if err := s.LoanRepo.Delete(ctx, loan.ID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"loan_id": loan.LoanID,
		"user":    actor.Username,
	}).Warn("loan permanently deleted")

	details := fmt.Sprintf("Permanently deleted loan %s for %s", loan.LoanID, loan.CustomerName)
	return s.audit.Record(ctx, actor, domain.ActionPermanentDelete, details)
}

// EditLoan applies a patch of the editable fields. The return amount is
// recomputed when the amount, duration or rate changes and may not drop below
// what an active loan has already been paid. A duration change on an approved
// loan moves its final completion date by the same number of months. A patch
// that changes nothing is not stored or logged.
func (s *LoanService) EditLoan(ctx context.Context, actor domain.Session, id string, patch *domain.LoanPatch) (*domain.Loan, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.IsDeleted || loan.Status == domain.LoanStatusFullyPaid || loan.Status == domain.LoanStatusRejected {
		return nil, illegalTransition(loan, "edit")
	}

	var changed []string
	repriced := false

	if patch.LoanType != nil && *patch.LoanType != loan.LoanType {
		loan.LoanType = *patch.LoanType
		changed = append(changed, "loan_type")
	}
	if patch.LoanAmount != nil && !patch.LoanAmount.Equal(loan.LoanAmount) {
		loan.LoanAmount = *patch.LoanAmount
		changed = append(changed, "loan_amount")
		repriced = true
	}
	if patch.Duration != nil && *patch.Duration != loan.Duration {
		if err := shiftCompletion(loan, *patch.Duration); err != nil {
			return nil, err
		}
		loan.Duration = *patch.Duration
		changed = append(changed, "duration")
		repriced = true
	}
	if patch.InterestRate != nil && !patch.InterestRate.Equal(loan.InterestRate) {
		loan.InterestRate = *patch.InterestRate
		changed = append(changed, "interest_rate")
		repriced = true
	}
	if patch.NextPayment != nil {
		if !loan.Status.IsActive() {
			return nil, customError.WrapValidation("next_payment can only be set on an approved loan")
		}
		next, err := utils.ParseDate(*patch.NextPayment)
		if err != nil {
			return nil, customError.WrapValidation("next_payment must be a date in YYYY-MM-DD format")
		}
		if loan.NextPayment == nil || !loan.NextPayment.Equal(next) {
			loan.NextPayment = &next
			changed = append(changed, "next_payment")
		}
	}

	if len(changed) == 0 {
		return loan, nil
	}

	if repriced {
		returnAmount, err := utils.ComputeReturn(loan.LoanAmount, string(loan.Duration), loan.InterestRate)
		if err != nil {
			return nil, customError.WrapValidation(err.Error())
		}
		if loan.Status.IsActive() {
			paid, err := s.PaymentRepo.GetTotalPaid(ctx, loan.ID)
			if err != nil {
				return nil, err
			}
			if returnAmount.LessThan(paid.Sub(domain.PaymentTolerance)) {
				return nil, customError.WrapValidation(fmt.Sprintf(
					"new return amount %s is below the %s already paid on loan %s",
					returnAmount.StringFixed(2), paid.StringFixed(2), loan.LoanID))
			}
		}
		loan.ReturnAmount = returnAmount
	}

	details := fmt.Sprintf("Updated loan %s: %s", loan.LoanID, strings.Join(changed, ", "))
	return s.save(ctx, actor, loan, domain.ActionUpdateLoan, details)
}

// MarkFullyPaid closes an active loan whose recorded payments already cover
// the return amount. It repairs loans left behind when a payment was stored
// but the loan update was not.
func (s *LoanService) MarkFullyPaid(ctx context.Context, actor domain.Session, id string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.IsDeleted || !loan.Status.IsActive() {
		return nil, illegalTransition(loan, "mark as fully paid")
	}

	paid, err := s.PaymentRepo.GetTotalPaid(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	if paid.LessThan(loan.ReturnAmount.Sub(domain.PaymentTolerance)) {
		return nil, customError.WrapValidation(fmt.Sprintf(
			"loan %s has %s outstanding", loan.LoanID, loan.ReturnAmount.Sub(paid).StringFixed(2)))
	}

	loan.Status = domain.LoanStatusFullyPaid
	loan.NextPayment = nil

	details := fmt.Sprintf("Marked loan %s as fully paid", loan.LoanID)
	return s.save(ctx, actor, loan, domain.ActionMarkFullyPaid, details)
}

// shiftCompletion moves the final completion date of an approved loan by the
// difference between its current and new term, so it stays approval + term.
func shiftCompletion(loan *domain.Loan, duration domain.Duration) error {
	if loan.FinalCompletionDate == nil {
		return nil
	}
	from, err := utils.ParseDurationMonths(string(loan.Duration))
	if err != nil {
		return customError.WrapValidation(err.Error())
	}
	to, err := utils.ParseDurationMonths(string(duration))
	if err != nil {
		return customError.WrapValidation(err.Error())
	}

	final := utils.AddMonths(*loan.FinalCompletionDate, to-from)
	loan.FinalCompletionDate = &final
	return nil
}

func (s *LoanService) save(ctx context.Context, actor domain.Session, loan *domain.Loan, action, details string) (*domain.Loan, error) {
	if err := s.LoanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"loan_id": loan.LoanID,
		"status":  loan.Status,
		"action":  action,
		"user":    actor.Username,
	}).Info("loan updated")

	if err := s.audit.Record(ctx, actor, action, details); err != nil {
		return loan, err
	}
	return loan, nil
}

func (s *LoanService) today() time.Time {
	return utils.DateOnly(s.clock.Now())
}

func illegalTransition(loan *domain.Loan, operation string) error {
	status := string(loan.Status)
	if loan.IsDeleted {
		status += " (in recycle bin)"
	}
	return customError.WrapIllegalTransition(loan.LoanID, status, operation)
}

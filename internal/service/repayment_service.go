package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/utils"

	"github.com/sirupsen/logrus"
)

type RepaymentService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	audit       *AuditLog
	clock       clock.Clock
}

func NewRepaymentService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	audit *AuditLog,
	clk clock.Clock,
) *RepaymentService {
	return &RepaymentService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		audit:       audit,
		clock:       clk,
	}
}

// RecordPayment applies a repayment to an approved loan.
//
// The payment is stored before the loan is updated. If the loan update fails
// the balance is still correct because it is always summed from payments,
// and MarkFullyPaid can close the loan later.
func (s *RepaymentService) RecordPayment(ctx context.Context, actor domain.Session, loanID string, request *domain.RecordPaymentRequest) (*domain.Payment, *domain.Loan, error) {
	if err := validateStruct(request); err != nil {
		return nil, nil, err
	}
	paymentDate, err := utils.ParseDate(request.PaymentDate)
	if err != nil {
		return nil, nil, customError.WrapValidation("payment_date must be a date in YYYY-MM-DD format")
	}

	// 1. Validate loan exists and is accepting payments
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	if loan.IsDeleted || !loan.Status.IsActive() {
		return nil, nil, illegalTransition(loan, "record a payment on")
	}

	// 2. Guard against paying more than is owed
	paidBefore, err := s.PaymentRepo.GetTotalPaid(ctx, loan.ID)
	if err != nil {
		return nil, nil, err
	}
	remaining := loan.ReturnAmount.Sub(paidBefore)
	if request.Amount.GreaterThan(remaining.Add(domain.PaymentTolerance)) && !request.AllowOverpayment {
		return nil, nil, customError.WrapOverpayment(request.Amount.StringFixed(2), remaining.StringFixed(2))
	}

	// 3. Create payment record
	now := s.clock.Now()
	payment := &domain.Payment{
		LoanID:        loan.ID,
		CustomerName:  loan.CustomerName,
		PaymentAmount: request.Amount,
		PaymentDate:   paymentDate,
		PaymentMethod: request.PaymentMethod,
		ReceivedBy:    request.ReceivedBy,
		Notes:         request.Notes,
		RecordedDate:  now,
	}
	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, nil, err
	}

	// 4. Close the loan or advance the due date
	paidAfter := paidBefore.Add(request.Amount)
	if paidAfter.GreaterThanOrEqual(loan.ReturnAmount.Sub(domain.PaymentTolerance)) {
		loan.Status = domain.LoanStatusFullyPaid
		loan.NextPayment = nil
	} else {
		loan.Status = domain.LoanStatusUnderPayment
		next := nextDueDate(loan, now)
		loan.NextPayment = &next
	}

	if err := s.LoanRepo.Update(ctx, loan); err != nil {
		logrus.WithFields(logrus.Fields{
			"loan_id":    loan.LoanID,
			"payment_id": payment.ID,
		}).WithError(err).Error("payment stored but loan update failed")
		return payment, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"loan_id": loan.LoanID,
		"amount":  request.Amount.StringFixed(2),
		"status":  loan.Status,
		"user":    actor.Username,
	}).Info("payment recorded")

	details := fmt.Sprintf("Recorded payment of %s for loan %s via %s",
		request.Amount.StringFixed(2), loan.LoanID, request.PaymentMethod)
	if err := s.audit.Record(ctx, actor, domain.ActionRecordPayment, details); err != nil {
		return payment, loan, err
	}
	return payment, loan, nil
}

// nextDueDate is one cycle after the current due date, or after today when
// the loan has none.
func nextDueDate(loan *domain.Loan, now time.Time) time.Time {
	from := utils.DateOnly(now)
	if loan.NextPayment != nil {
		from = *loan.NextPayment
	}
	return utils.NextCycle(from, loan.PaymentPlan == domain.PaymentPlanWeekly)
}

// ListPayments returns the payments recorded against a loan, oldest first
func (s *RepaymentService) ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return s.PaymentRepo.GetByLoanID(ctx, loan.ID)
}

// GetBalance calculates the amount still owed on a loan
func (s *RepaymentService) GetBalance(ctx context.Context, loanID string) (*domain.BalanceResponse, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	paid, err := s.PaymentRepo.GetTotalPaid(ctx, loan.ID)
	if err != nil {
		return nil, err
	}

	return &domain.BalanceResponse{
		LoanID:       loan.LoanID,
		ReturnAmount: loan.ReturnAmount,
		TotalPaid:    paid,
		Remaining:    loan.ReturnAmount.Sub(paid),
	}, nil
}

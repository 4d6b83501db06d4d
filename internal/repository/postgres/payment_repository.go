package postgres

import (
	"context"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/utils"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, loan_id, customer_name, payment_amount, payment_date, payment_method,
	received_by, notes, recorded_date`

type paymentRow struct {
	ID            string          `db:"id"`
	LoanID        string          `db:"loan_id"`
	CustomerName  string          `db:"customer_name"`
	PaymentAmount decimal.Decimal `db:"payment_amount"`
	PaymentDate   time.Time       `db:"payment_date"`
	PaymentMethod string          `db:"payment_method"`
	ReceivedBy    string          `db:"received_by"`
	Notes         string          `db:"notes"`
	RecordedDate  time.Time       `db:"recorded_date"`
}

func (r paymentRow) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:            r.ID,
		LoanID:        r.LoanID,
		CustomerName:  r.CustomerName,
		PaymentAmount: r.PaymentAmount,
		PaymentDate:   utils.DateOnly(r.PaymentDate),
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		ReceivedBy:    r.ReceivedBy,
		Notes:         r.Notes,
		RecordedDate:  r.RecordedDate,
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	id := newID()
	_, err := r.db.ExecContext(ctx, query,
		id,
		payment.LoanID,
		payment.CustomerName,
		payment.PaymentAmount,
		utils.FormatDate(payment.PaymentDate),
		string(payment.PaymentMethod),
		payment.ReceivedBy,
		payment.Notes,
		payment.RecordedDate,
	)
	if err != nil {
		return customError.WrapStoreError(err)
	}

	payment.ID = id
	return nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE loan_id = $1 ORDER BY recorded_date`
	return r.selectPayments(ctx, query, loanID)
}

func (r *paymentRepository) List(ctx context.Context) ([]*domain.Payment, error) {
	return r.selectPayments(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY recorded_date`)
}

func (r *paymentRepository) selectPayments(ctx context.Context, query string, args ...interface{}) ([]*domain.Payment, error) {
	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	payments := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toDomain())
	}
	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(payment_amount), 0) FROM payments WHERE loan_id = $1`
	if err := r.db.GetContext(ctx, &total, query, loanID); err != nil {
		return decimal.Zero, customError.WrapStoreError(err)
	}
	return total, nil
}

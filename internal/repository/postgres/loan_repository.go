package postgres

import (
	"context"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const loanColumns = `id, loan_id, customer_name, nin_number, loan_amount, loan_type, duration, collateral,
	security_photos, payment_plan, purpose, return_amount, interest_rate, status, application_date,
	next_payment, final_completion_date, is_deleted`

type loanRow struct {
	ID                  string          `db:"id"`
	LoanID              string          `db:"loan_id"`
	CustomerName        string          `db:"customer_name"`
	NINNumber           string          `db:"nin_number"`
	LoanAmount          decimal.Decimal `db:"loan_amount"`
	LoanType            string          `db:"loan_type"`
	Duration            string          `db:"duration"`
	Collateral          string          `db:"collateral"`
	SecurityPhotos      pq.StringArray  `db:"security_photos"`
	PaymentPlan         string          `db:"payment_plan"`
	Purpose             string          `db:"purpose"`
	ReturnAmount        decimal.Decimal `db:"return_amount"`
	InterestRate        decimal.Decimal `db:"interest_rate"`
	Status              string          `db:"status"`
	ApplicationDate     time.Time       `db:"application_date"`
	NextPayment         *time.Time      `db:"next_payment"`
	FinalCompletionDate *time.Time      `db:"final_completion_date"`
	IsDeleted           bool            `db:"is_deleted"`
}

func (r loanRow) toDomain(loc *time.Location) *domain.Loan {
	applied := r.ApplicationDate
	if loc != nil {
		applied = applied.In(loc)
	}
	return &domain.Loan{
		ID:                  r.ID,
		LoanID:              r.LoanID,
		CustomerName:        r.CustomerName,
		NINNumber:           r.NINNumber,
		LoanAmount:          r.LoanAmount,
		LoanType:            domain.LoanType(r.LoanType),
		Duration:            domain.Duration(r.Duration),
		Collateral:          domain.Collateral(r.Collateral),
		SecurityPhotos:      []string(r.SecurityPhotos),
		PaymentPlan:         domain.PaymentPlan(r.PaymentPlan),
		Purpose:             r.Purpose,
		ReturnAmount:        r.ReturnAmount,
		InterestRate:        r.InterestRate,
		Status:              domain.LoanStatus(r.Status),
		ApplicationDate:     applied,
		NextPayment:         dateOnly(r.NextPayment),
		FinalCompletionDate: dateOnly(r.FinalCompletionDate),
		IsDeleted:           r.IsDeleted,
	}
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := utils.DateOnly(*t)
	return &d
}

// dateArg converts an optional calendar date into a DATE parameter.
func dateArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return utils.FormatDate(*t)
}

type loanRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

func NewLoanRepository(db *sqlx.DB, loc *time.Location) repository.LoanRepository {
	return &loanRepository{db: db, loc: loc}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	id := newID()
	_, err := r.db.ExecContext(ctx, query,
		id,
		loan.LoanID,
		loan.CustomerName,
		loan.NINNumber,
		loan.LoanAmount,
		string(loan.LoanType),
		string(loan.Duration),
		string(loan.Collateral),
		pq.StringArray(loan.SecurityPhotos),
		string(loan.PaymentPlan),
		loan.Purpose,
		loan.ReturnAmount,
		loan.InterestRate,
		string(loan.Status),
		loan.ApplicationDate,
		dateArg(loan.NextPayment),
		dateArg(loan.FinalCompletionDate),
		loan.IsDeleted,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return customError.WrapConflict("loan reference " + loan.LoanID + " already exists")
		}
		return customError.WrapStoreError(err)
	}

	loan.ID = id
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

func (r *loanRepository) GetByLoanRef(ctx context.Context, loanRef string) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE loan_id = $1`, loanRef)
}

func (r *loanRepository) GetLatestByNIN(ctx context.Context, nin string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE nin_number = $1 ORDER BY application_date DESC LIMIT 1`

	var row loanRow
	if err := r.db.GetContext(ctx, &row, query, nin); err != nil {
		return nil, mapError(err, func() error { return customError.WrapLoanNotFound("for NIN " + nin) })
	}
	return row.toDomain(r.loc), nil
}

func (r *loanRepository) get(ctx context.Context, query, ref string) (*domain.Loan, error) {
	var row loanRow
	if err := r.db.GetContext(ctx, &row, query, ref); err != nil {
		return nil, mapError(err, func() error { return customError.WrapLoanNotFound(ref) })
	}
	return row.toDomain(r.loc), nil
}

// whereClause renders the SQL condition and arguments for a filter.
func whereClause(filter domain.LoanFilter) (string, []interface{}) {
	switch filter.Kind {
	case domain.FilterRecycleBin:
		return "is_deleted = TRUE", nil
	case domain.FilterStatus:
		return "is_deleted = FALSE AND status = $1", []interface{}{string(filter.Status)}
	case domain.FilterActive:
		return "is_deleted = FALSE AND status IN ($1, $2)",
			[]interface{}{string(domain.LoanStatusApproved), string(domain.LoanStatusUnderPayment)}
	case domain.FilterOverdue:
		return "is_deleted = FALSE AND status <> $1 AND next_payment < $2",
			[]interface{}{string(domain.LoanStatusFullyPaid), utils.FormatDate(filter.Today)}
	default:
		return "is_deleted = FALSE", nil
	}
}

func (r *loanRepository) Find(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + loanColumns + ` FROM loans WHERE ` + where + ` ORDER BY application_date DESC`

	var rows []loanRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toDomain(r.loc))
	}
	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET customer_name = $2, nin_number = $3, loan_amount = $4, loan_type = $5, duration = $6,
		    collateral = $7, security_photos = $8, payment_plan = $9, purpose = $10, return_amount = $11,
		    interest_rate = $12, status = $13, next_payment = $14, final_completion_date = $15, is_deleted = $16
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.CustomerName,
		loan.NINNumber,
		loan.LoanAmount,
		string(loan.LoanType),
		string(loan.Duration),
		string(loan.Collateral),
		pq.StringArray(loan.SecurityPhotos),
		string(loan.PaymentPlan),
		loan.Purpose,
		loan.ReturnAmount,
		loan.InterestRate,
		string(loan.Status),
		dateArg(loan.NextPayment),
		dateArg(loan.FinalCompletionDate),
		loan.IsDeleted,
	)
	if err != nil {
		return customError.WrapStoreError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return customError.WrapLoanNotFound(loan.ID)
	}
	return nil
}

func (r *loanRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return customError.WrapStoreError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return customError.WrapLoanNotFound(id)
	}
	return nil
}

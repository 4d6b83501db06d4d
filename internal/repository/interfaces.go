package repository

import (
	"context"

	"github.com/bigongold/loan-manager/internal/domain"

	"github.com/shopspring/decimal"
)

// Implementations return errors wrapping pkg/errors.ErrNotFound when a
// document is missing, ErrConflict when a unique index would be violated and
// ErrStoreUnavailable for any other driver failure.

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create inserts a user and assigns its ID
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by store ID
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by exact (case-sensitive) username
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// List returns all users ordered by username
	List(ctx context.Context) ([]*domain.User, error)

	// Delete removes a user permanently
	Delete(ctx context.Context, id string) error
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create inserts a loan and assigns its ID
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by store ID, including soft-deleted loans
	GetByID(ctx context.Context, id string) (*domain.Loan, error)

	// GetByLoanRef retrieves a loan by its human-facing reference (LOAN-YYYY-XXXX)
	GetByLoanRef(ctx context.Context, loanRef string) (*domain.Loan, error)

	// GetLatestByNIN retrieves the most recently applied-for loan for a NIN
	GetLatestByNIN(ctx context.Context, nin string) (*domain.Loan, error)

	// Find lists loans matching filter, newest application first
	Find(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)

	// Update replaces the stored loan document
	Update(ctx context.Context, loan *domain.Loan) error

	// Delete removes a loan permanently
	Delete(ctx context.Context, id string) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create appends a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByLoanID retrieves all payments for a loan, oldest first
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error)

	// GetTotalPaid calculates total amount paid for a loan
	GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error)

	// List returns every payment, used by analytics
	List(ctx context.Context) ([]*domain.Payment, error)
}

// AuditRepository defines the interface for the append-only action log
type AuditRepository interface {
	// Append stores a new entry and assigns its ID
	Append(ctx context.Context, entry *domain.AuditEntry) error

	// List returns up to limit entries, newest first
	List(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

// Store groups the four collections behind one handle.
type Store struct {
	Users    UserRepository
	Loans    LoanRepository
	Payments PaymentRepository
	Logs     AuditRepository

	// Ping checks the backing database; nil for stores without a connection.
	Ping func(ctx context.Context) error

	// Close releases the backing connection; nil when there is nothing to release.
	Close func(ctx context.Context) error
}

// Package memory is an in-process Store used by tests and local demos. It
// enforces the same unique constraints as the database-backed stores.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type db struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	loans    map[string]*domain.Loan
	payments []*domain.Payment
	logs     []*domain.AuditEntry
}

// NewStore returns an empty in-memory store.
func NewStore() *repository.Store {
	d := &db{
		users: make(map[string]*domain.User),
		loans: make(map[string]*domain.Loan),
	}
	return &repository.Store{
		Users:    &userRepository{d},
		Loans:    &loanRepository{d},
		Payments: &paymentRepository{d},
		Logs:     &auditRepository{d},
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

type userRepository struct{ *db }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return customError.WrapConflict("username " + user.Username + " already exists")
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, customError.WrapUserNotFound(id)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, customError.WrapUserNotFound(username)
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return customError.WrapUserNotFound(id)
	}
	delete(r.users, id)
	return nil
}

type loanRepository struct{ *db }

func cloneLoan(l *domain.Loan) *domain.Loan {
	cp := *l
	cp.SecurityPhotos = append([]string(nil), l.SecurityPhotos...)
	if l.NextPayment != nil {
		t := *l.NextPayment
		cp.NextPayment = &t
	}
	if l.FinalCompletionDate != nil {
		t := *l.FinalCompletionDate
		cp.FinalCompletionDate = &t
	}
	return &cp
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.loans {
		if l.LoanID == loan.LoanID {
			return customError.WrapConflict("loan reference " + loan.LoanID + " already exists")
		}
	}
	if loan.ID == "" {
		loan.ID = newID()
	}
	r.loans[loan.ID] = cloneLoan(loan)
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.loans[id]
	if !ok {
		return nil, customError.WrapLoanNotFound(id)
	}
	return cloneLoan(l), nil
}

func (r *loanRepository) GetByLoanRef(ctx context.Context, loanRef string) (*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.loans {
		if l.LoanID == loanRef {
			return cloneLoan(l), nil
		}
	}
	return nil, customError.WrapLoanNotFound(loanRef)
}

func (r *loanRepository) GetLatestByNIN(ctx context.Context, nin string) (*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Loan
	for _, l := range r.loans {
		if l.NINNumber != nin {
			continue
		}
		if latest == nil || l.ApplicationDate.After(latest.ApplicationDate) {
			latest = l
		}
	}
	if latest == nil {
		return nil, customError.WrapLoanNotFound("for NIN " + nin)
	}
	return cloneLoan(latest), nil
}

func (r *loanRepository) Find(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loans := make([]*domain.Loan, 0)
	for _, l := range r.loans {
		if filter.Matches(l) {
			loans = append(loans, cloneLoan(l))
		}
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].ApplicationDate.After(loans[j].ApplicationDate)
	})
	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[loan.ID]; !ok {
		return customError.WrapLoanNotFound(loan.ID)
	}
	r.loans[loan.ID] = cloneLoan(loan)
	return nil
}

func (r *loanRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[id]; !ok {
		return customError.WrapLoanNotFound(id)
	}
	delete(r.loans, id)
	return nil
}

type paymentRepository struct{ *db }

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.ID == "" {
		payment.ID = newID()
	}
	cp := *payment
	r.payments = append(r.payments, &cp)
	return nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := make([]*domain.Payment, 0)
	for _, p := range r.payments {
		if p.LoanID == loanID {
			cp := *p
			payments = append(payments, &cp)
		}
	}
	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, p := range r.payments {
		if p.LoanID == loanID {
			total = total.Add(p.PaymentAmount)
		}
	}
	return total, nil
}

func (r *paymentRepository) List(ctx context.Context) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := make([]*domain.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		cp := *p
		payments = append(payments, &cp)
	}
	return payments, nil
}

type auditRepository struct{ *db }

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = newID()
	}
	cp := *entry
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *auditRepository) List(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}
	entries := make([]*domain.AuditEntry, 0, limit)
	for i := len(r.logs) - 1; i >= 0 && len(entries) < limit; i-- {
		cp := *r.logs[i]
		entries = append(entries, &cp)
	}
	return entries, nil
}

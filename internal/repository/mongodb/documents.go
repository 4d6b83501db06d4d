package mongodb

import (
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/pkg/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	FullName     string             `bson:"full_name,omitempty"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
}

func newUserDocument(u *domain.User) userDocument {
	return userDocument{
		Username:     u.Username,
		FullName:     u.FullName,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		FullName:     d.FullName,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
	}
}

// loanDocument mirrors the persisted loan layout: amounts as doubles, calendar
// dates as YYYY-MM-DD strings and the application instant as a native date.
type loanDocument struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	LoanID              string             `bson:"loan_id"`
	CustomerName        string             `bson:"customer_name"`
	NINNumber           string             `bson:"nin_number"`
	LoanAmount          float64            `bson:"loan_amount"`
	LoanType            string             `bson:"loan_type"`
	Duration            string             `bson:"duration"`
	Collateral          string             `bson:"collateral"`
	SecurityPhotos      []string           `bson:"security_photos"`
	PaymentPlan         string             `bson:"payment_plan"`
	Purpose             string             `bson:"purpose"`
	ReturnAmount        float64            `bson:"return_amount"`
	InterestRate        float64            `bson:"interest_rate"`
	Status              string             `bson:"status"`
	ApplicationDate     time.Time          `bson:"application_date"`
	NextPayment         *string            `bson:"next_payment"`
	FinalCompletionDate *string            `bson:"final_completion_date"`
	IsDeleted           bool               `bson:"is_deleted"`
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := utils.FormatDate(*t)
	return &s
}

func parseOptionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := utils.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &t
}

func newLoanDocument(l *domain.Loan) loanDocument {
	photos := l.SecurityPhotos
	if photos == nil {
		photos = []string{}
	}
	return loanDocument{
		LoanID:              l.LoanID,
		CustomerName:        l.CustomerName,
		NINNumber:           l.NINNumber,
		LoanAmount:          l.LoanAmount.InexactFloat64(),
		LoanType:            string(l.LoanType),
		Duration:            string(l.Duration),
		Collateral:          string(l.Collateral),
		SecurityPhotos:      photos,
		PaymentPlan:         string(l.PaymentPlan),
		Purpose:             l.Purpose,
		ReturnAmount:        l.ReturnAmount.InexactFloat64(),
		InterestRate:        l.InterestRate.InexactFloat64(),
		Status:              string(l.Status),
		ApplicationDate:     l.ApplicationDate,
		NextPayment:         formatOptionalDate(l.NextPayment),
		FinalCompletionDate: formatOptionalDate(l.FinalCompletionDate),
		IsDeleted:           l.IsDeleted,
	}
}

// toDomain converts the document back, reading the application instant in loc
// so its calendar day matches the one it was written on.
func (d loanDocument) toDomain(loc *time.Location) *domain.Loan {
	applied := d.ApplicationDate
	if loc != nil {
		applied = applied.In(loc)
	}
	return &domain.Loan{
		ID:                  d.ID.Hex(),
		LoanID:              d.LoanID,
		CustomerName:        d.CustomerName,
		NINNumber:           d.NINNumber,
		LoanAmount:          decimal.NewFromFloat(d.LoanAmount),
		LoanType:            domain.LoanType(d.LoanType),
		Duration:            domain.Duration(d.Duration),
		Collateral:          domain.Collateral(d.Collateral),
		SecurityPhotos:      d.SecurityPhotos,
		PaymentPlan:         domain.PaymentPlan(d.PaymentPlan),
		Purpose:             d.Purpose,
		ReturnAmount:        decimal.NewFromFloat(d.ReturnAmount),
		InterestRate:        decimal.NewFromFloat(d.InterestRate),
		Status:              domain.LoanStatus(d.Status),
		ApplicationDate:     applied,
		NextPayment:         parseOptionalDate(d.NextPayment),
		FinalCompletionDate: parseOptionalDate(d.FinalCompletionDate),
		IsDeleted:           d.IsDeleted,
	}
}

type paymentDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	LoanID        string             `bson:"loan_id"`
	CustomerName  string             `bson:"customer_name"`
	PaymentAmount float64            `bson:"payment_amount"`
	PaymentDate   string             `bson:"payment_date"`
	PaymentMethod string             `bson:"payment_method"`
	ReceivedBy    string             `bson:"received_by"`
	Notes         string             `bson:"notes"`
	RecordedDate  time.Time          `bson:"recorded_date"`
}

func newPaymentDocument(p *domain.Payment) paymentDocument {
	return paymentDocument{
		LoanID:        p.LoanID,
		CustomerName:  p.CustomerName,
		PaymentAmount: p.PaymentAmount.InexactFloat64(),
		PaymentDate:   utils.FormatDate(p.PaymentDate),
		PaymentMethod: string(p.PaymentMethod),
		ReceivedBy:    p.ReceivedBy,
		Notes:         p.Notes,
		RecordedDate:  p.RecordedDate,
	}
}

func (d paymentDocument) toDomain() *domain.Payment {
	paymentDate, _ := utils.ParseDate(d.PaymentDate)
	return &domain.Payment{
		ID:            d.ID.Hex(),
		LoanID:        d.LoanID,
		CustomerName:  d.CustomerName,
		PaymentAmount: decimal.NewFromFloat(d.PaymentAmount),
		PaymentDate:   paymentDate,
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		ReceivedBy:    d.ReceivedBy,
		Notes:         d.Notes,
		RecordedDate:  d.RecordedDate,
	}
}

type auditDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp string             `bson:"timestamp"`
	User      string             `bson:"user"`
	Action    string             `bson:"action"`
	Details   string             `bson:"details"`
}

func (d auditDocument) toDomain() *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:        d.ID.Hex(),
		Timestamp: d.Timestamp,
		User:      d.User,
		Action:    d.Action,
		Details:   d.Details,
	}
}

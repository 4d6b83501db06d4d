package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
	PaymentMethodMobileMoney  PaymentMethod = "Mobile Money"
	PaymentMethodCheque       PaymentMethod = "Cheque"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobileMoney, PaymentMethodCheque:
		return true
	}
	return false
}

// Payment is a single repayment received against a loan. Payments are never
// edited or removed once recorded.
type Payment struct {
	ID            string          `json:"id"`
	LoanID        string          `json:"loan_id"`
	CustomerName  string          `json:"customer_name"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ReceivedBy    string          `json:"received_by"`
	Notes         string          `json:"notes"`
	RecordedDate  time.Time       `json:"recorded_date"`
}

type RecordPaymentRequest struct {
	Amount           decimal.Decimal `json:"payment_amount" validate:"gt=0"`
	PaymentDate      string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PaymentMethod    PaymentMethod   `json:"payment_method" validate:"enum"`
	ReceivedBy       string          `json:"received_by" validate:"required"`
	Notes            string          `json:"notes"`
	AllowOverpayment bool            `json:"allow_overpayment"`
}

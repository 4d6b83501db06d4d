package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending      LoanStatus = "Pending"
	LoanStatusApproved     LoanStatus = "Approved"
	LoanStatusUnderPayment LoanStatus = "Under Payment"
	LoanStatusFullyPaid    LoanStatus = "Fully Paid"
	LoanStatusRejected     LoanStatus = "Rejected"
)

// IsValid reports whether s is one of the known loan statuses.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusUnderPayment, LoanStatusFullyPaid, LoanStatusRejected:
		return true
	}
	return false
}

// IsActive reports whether the loan still expects repayments.
func (s LoanStatus) IsActive() bool {
	return s == LoanStatusApproved || s == LoanStatusUnderPayment
}

type LoanType string

const (
	LoanTypePersonal  LoanType = "Personal"
	LoanTypeBusiness  LoanType = "Business"
	LoanTypeHome      LoanType = "Home"
	LoanTypeEducation LoanType = "Education"
	LoanTypeVehicle   LoanType = "Vehicle"
)

func (t LoanType) IsValid() bool {
	switch t {
	case LoanTypePersonal, LoanTypeBusiness, LoanTypeHome, LoanTypeEducation, LoanTypeVehicle:
		return true
	}
	return false
}

// Duration is the loan term as entered on the application form, e.g. "1 year".
type Duration string

const (
	DurationSixMonths  Duration = "6 months"
	DurationOneYear    Duration = "1 year"
	DurationTwoYears   Duration = "2 years"
	DurationThreeYears Duration = "3 years"
	DurationFiveYears  Duration = "5 years"
)

func (d Duration) IsValid() bool {
	switch d {
	case DurationSixMonths, DurationOneYear, DurationTwoYears, DurationThreeYears, DurationFiveYears:
		return true
	}
	return false
}

type PaymentPlan string

const (
	PaymentPlanMonthly PaymentPlan = "Monthly"
	PaymentPlanWeekly  PaymentPlan = "Weekly"
)

func (p PaymentPlan) IsValid() bool {
	return p == PaymentPlanMonthly || p == PaymentPlanWeekly
}

type Collateral string

const (
	CollateralLandTitle       Collateral = "Land Title"
	CollateralVehicleLogbook  Collateral = "Vehicle Logbook"
	CollateralGold            Collateral = "Gold"
	CollateralHouseholdItems  Collateral = "Household Items"
	CollateralSalaryGuarantee Collateral = "Salary Guarantee"
	CollateralOther           Collateral = "Other"
)

func (c Collateral) IsValid() bool {
	switch c {
	case CollateralLandTitle, CollateralVehicleLogbook, CollateralGold,
		CollateralHouseholdItems, CollateralSalaryGuarantee, CollateralOther:
		return true
	}
	return false
}

// Business constants
const (
	MaxSecurityPhotos = 5
	LoanRefPrefix     = "LOAN"
)

var (
	// DefaultInterestRate is the annual simple interest, in percent.
	DefaultInterestRate = decimal.NewFromInt(12)

	// PaymentTolerance absorbs rounding when comparing paid totals to the return amount.
	PaymentTolerance = decimal.NewFromFloat(0.01)
)

// Loan represents a loan entity
type Loan struct {
	ID                  string          `json:"id"`
	LoanID              string          `json:"loan_id"`
	CustomerName        string          `json:"customer_name"`
	NINNumber           string          `json:"nin_number"`
	LoanAmount          decimal.Decimal `json:"loan_amount"`
	LoanType            LoanType        `json:"loan_type"`
	Duration            Duration        `json:"duration"`
	Collateral          Collateral      `json:"collateral"`
	SecurityPhotos      []string        `json:"security_photos"`
	PaymentPlan         PaymentPlan     `json:"payment_plan"`
	Purpose             string          `json:"purpose"`
	ReturnAmount        decimal.Decimal `json:"return_amount"`
	InterestRate        decimal.Decimal `json:"interest_rate"`
	Status              LoanStatus      `json:"status"`
	ApplicationDate     time.Time       `json:"application_date"`
	NextPayment         *time.Time      `json:"next_payment,omitempty"`
	FinalCompletionDate *time.Time      `json:"final_completion_date,omitempty"`
	IsDeleted           bool            `json:"is_deleted"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CustomerName   string          `json:"customer_name" validate:"required"`
	NINNumber      string          `json:"nin_number" validate:"required"`
	LoanAmount     decimal.Decimal `json:"loan_amount" validate:"gt=0"`
	LoanType       LoanType        `json:"loan_type" validate:"enum"`
	Duration       Duration        `json:"duration" validate:"enum"`
	Collateral     Collateral      `json:"collateral" validate:"enum"`
	SecurityPhotos []string        `json:"security_photos" validate:"max=5,dive,required"`
	PaymentPlan    PaymentPlan     `json:"payment_plan" validate:"enum"`
	Purpose        string          `json:"purpose"`
	TermsAccepted  bool            `json:"terms_accepted"`
}

// LoanPatch carries the editable loan fields; nil fields are left untouched.
type LoanPatch struct {
	LoanType     *LoanType        `json:"loan_type,omitempty" validate:"omitempty,enum"`
	LoanAmount   *decimal.Decimal `json:"loan_amount,omitempty" validate:"omitempty,gt=0"`
	Duration     *Duration        `json:"duration,omitempty" validate:"omitempty,enum"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,gte=0"`
	NextPayment  *string          `json:"next_payment,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// LoanView is a loan as shown in list views, with the derived overdue fields.
type LoanView struct {
	*Loan
	ViewStatus    string `json:"view_status"`
	DaysRemaining string `json:"days_remaining"`
	Overdue       bool   `json:"overdue"`
}

type BalanceResponse struct {
	LoanID       string          `json:"loan_id"`
	ReturnAmount decimal.Decimal `json:"return_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Remaining    decimal.Decimal `json:"remaining"`
}

package client

import (
	"time"

	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Response models shared with the server
type (
	User                  = domain.User
	Transaction           = domain.Transaction
	PaginatedTransactions = domain.PaginatedTransactions
	Loan                  = domain.Loan
	LoanPayment           = domain.LoanPayment
	LoanStats             = domain.LoanStats
	DashboardMetrics      = domain.DashboardMetrics
	FinancialSummary      = domain.FinancialSummary
	MonthlyAnalysis       = domain.MonthlyAnalysis
	YearlyAnalysis        = domain.YearlyAnalysis
	CategoryBreakdown     = domain.CategoryBreakdown
	SpendingTrends        = domain.SpendingTrends
	CashFlow              = domain.CashFlow
	TransactionExport     = domain.TransactionExport
	ScheduleEntry         = amortization.ScheduleEntry
	Installment           = amortization.Installment
	LoanStatus            = amortization.Status
)

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// PaymentOutcome is the loan after a payment together with the stored payment
type PaymentOutcome struct {
	Loan    *Loan        `json:"loan"`
	Payment *LoanPayment `json:"payment"`
}

// RegisterInput creates an account
type RegisterInput struct {
	FullName       string  `json:"fullName"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	ContactNumber  *string `json:"contactNumber,omitempty"`
	Address        *string `json:"address,omitempty"`
	OccupationType *string `json:"occupationType,omitempty"`
}

// ProfileInput changes profile fields; nil fields are left unchanged
type ProfileInput struct {
	FullName       *string `json:"fullName,omitempty"`
	ContactNumber  *string `json:"contactNumber,omitempty"`
	Address        *string `json:"address,omitempty"`
	OccupationType *string `json:"occupationType,omitempty"`
}

// TransactionInput creates a transaction. Dates are YYYY-MM-DD.
type TransactionInput struct {
	Type               domain.TransactionType     `json:"type"`
	Description        string                     `json:"description"`
	Amount             decimal.Decimal            `json:"amount"`
	Category           domain.Category            `json:"category"`
	Date               *string                    `json:"date,omitempty"`
	Notes              *string                    `json:"notes,omitempty"`
	Recurring          bool                       `json:"recurring"`
	RecurringFrequency *domain.RecurringFrequency `json:"recurringFrequency,omitempty"`
	Tags               []string                   `json:"tags,omitempty"`
}

// TransactionUpdate changes a transaction; nil fields are left unchanged
type TransactionUpdate struct {
	Type               *domain.TransactionType    `json:"type,omitempty"`
	Description        *string                    `json:"description,omitempty"`
	Amount             *decimal.Decimal           `json:"amount,omitempty"`
	Category           *domain.Category           `json:"category,omitempty"`
	Date               *string                    `json:"date,omitempty"`
	Notes              *string                    `json:"notes,omitempty"`
	Recurring          *bool                      `json:"recurring,omitempty"`
	RecurringFrequency *domain.RecurringFrequency `json:"recurringFrequency,omitempty"`
	Tags               []string                   `json:"tags,omitempty"`
}

// TransactionFilter narrows ListTransactions. Zero values are not sent.
type TransactionFilter struct {
	Type      domain.TransactionType
	Category  domain.Category
	StartDate time.Time
	EndDate   time.Time
	Page      int
	PageSize  int
}

// LoanInput creates a loan. InterestRate is an annual percentage.
type LoanInput struct {
	LoanType     domain.LoanType `json:"loanType"`
	LenderName   string          `json:"lenderName"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermMonths   int32           `json:"termMonths"`
	StartDate    string          `json:"startDate"`
	Notes        *string         `json:"notes,omitempty"`
}

// LoanUpdate changes a loan; nil fields are left unchanged
type LoanUpdate struct {
	LoanType     *domain.LoanType `json:"loanType,omitempty"`
	LenderName   *string          `json:"lenderName,omitempty"`
	Principal    *decimal.Decimal `json:"principal,omitempty"`
	InterestRate *decimal.Decimal `json:"interestRate,omitempty"`
	TermMonths   *int32           `json:"termMonths,omitempty"`
	StartDate    *string          `json:"startDate,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
	Status       *LoanStatus      `json:"status,omitempty"`
}

// PaymentInput records a loan payment
type PaymentInput struct {
	Amount        decimal.Decimal      `json:"amount"`
	PaymentDate   *string              `json:"paymentDate,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod,omitempty"`
	Note          *string              `json:"note,omitempty"`
}

// EMIInput is the installment calculator input
type EMIInput struct {
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermMonths   int32           `json:"termMonths"`
}

const dateLayout = "2006-01-02"

// Date formats t the way the API expects calendar dates
func Date(t time.Time) string {
	return t.Format(dateLayout)
}

package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanTypeInvalid      = errors.New("please select a valid loan type")
	ErrLenderNameInvalid    = errors.New("lender name must be between 1 and 100 characters")
	ErrLoanStatusInvalid    = errors.New("please select a valid status")
	ErrLoanCompleted        = errors.New("loan is already completed")
	ErrPaymentMethodInvalid = errors.New("please select a valid payment method")
	ErrLoanBalanceSettled   = errors.New("a loan with no remaining balance can only be completed")
)

type LoanType string

const (
	LoanTypePersonal  LoanType = "personal"
	LoanTypeHome      LoanType = "home"
	LoanTypeCar       LoanType = "car"
	LoanTypeEducation LoanType = "education"
	LoanTypeBusiness  LoanType = "business"
)

func (t LoanType) Valid() bool {
	switch t {
	case LoanTypePersonal, LoanTypeHome, LoanTypeCar, LoanTypeEducation, LoanTypeBusiness:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodAutoDebit    PaymentMethod = "auto_debit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCash, PaymentMethodCheque, PaymentMethodOnline, PaymentMethodAutoDebit:
		return true
	}
	return false
}

type Loan struct {
	ID                 int32               `json:"id"`
	UserID             uuid.UUID           `json:"userId"`
	LoanType           LoanType            `json:"loanType"`
	LenderName         string              `json:"lenderName"`
	Principal          decimal.Decimal     `json:"principal"`
	InterestRate       decimal.Decimal     `json:"interestRate"`
	TermMonths         int32               `json:"termMonths"`
	StartDate          time.Time           `json:"startDate"`
	Notes              *string             `json:"notes,omitempty"`
	MonthlyInstallment decimal.Decimal     `json:"monthlyInstallment"`
	TotalPayable       decimal.Decimal     `json:"totalPayable"`
	TotalInterest      decimal.Decimal     `json:"totalInterest"`
	EndDate            time.Time           `json:"endDate"`
	RemainingBalance   decimal.Decimal     `json:"remainingBalance"`
	Status             amortization.Status `json:"status"`
	NextPaymentDate    *time.Time          `json:"nextPaymentDate,omitempty"`
	Version            int32               `json:"version"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
	Payments           []*LoanPayment      `json:"payments"`
}

// Validate checks the user-editable fields. Principal, rate and term are
// checked by the amortization engine.
func (l *Loan) Validate() error {
	if !l.LoanType.Valid() {
		return ErrLoanTypeInvalid
	}
	name := strings.TrimSpace(l.LenderName)
	if name == "" || len([]rune(name)) > MaxLenderNameLength {
		return ErrLenderNameInvalid
	}
	if !l.Status.Valid() {
		return ErrLoanStatusInvalid
	}
	if l.Notes != nil && len([]rune(*l.Notes)) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// Terms returns the inputs the installment is derived from.
func (l *Loan) Terms() amortization.Terms {
	return amortization.Terms{
		Principal:         l.Principal,
		AnnualRatePercent: l.InterestRate,
		TermMonths:        int(l.TermMonths),
		StartDate:         l.StartDate,
	}
}

// ApplyAccount copies engine-derived fields onto the loan.
func (l *Loan) ApplyAccount(acc amortization.Account) {
	l.MonthlyInstallment = acc.MonthlyInstallment
	l.TotalPayable = acc.TotalPayable
	l.TotalInterest = acc.TotalInterest
	l.EndDate = acc.EndDate
	l.RemainingBalance = acc.RemainingBalance
	l.Status = acc.Status
	l.NextPaymentDate = acc.NextPaymentDate
}

// PrincipalRepaid sums principal applied by recorded payments.
func (l *Loan) PrincipalRepaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.Payments {
		total = total.Add(p.PrincipalPaid)
	}
	return total
}

// LoanStats aggregates a user's loans.
type LoanStats struct {
	TotalLoans       int64           `json:"totalLoans"`
	ActiveLoans      int64           `json:"activeLoans"`
	PendingLoans     int64           `json:"pendingLoans"`
	CompletedLoans   int64           `json:"completedLoans"`
	DefaultedLoans   int64           `json:"defaultedLoans"`
	TotalPrincipal   decimal.Decimal `json:"totalPrincipal"`
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	MonthlyEMI       decimal.Decimal `json:"monthlyEmi"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	TotalInterest    decimal.Decimal `json:"totalInterestPaid"`
}

type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	GetByID(ctx context.Context, userID uuid.UUID, id int32) (*Loan, error)
	List(ctx context.Context, userID uuid.UUID, status *amortization.Status) ([]*Loan, error)
	// Update persists loan if its stored version still equals loan.Version and
	// returns ErrVersionConflict otherwise.
	Update(ctx context.Context, loan *Loan) (*Loan, error)
	Delete(ctx context.Context, userID uuid.UUID, id int32) error
	// AddPayment stores payment and the loan's new account fields in one
	// transaction, guarded by the same version check as Update.
	AddPayment(ctx context.Context, loan *Loan, payment *LoanPayment) (*Loan, error)
	ActivatePending(ctx context.Context, asOf time.Time) ([]*Loan, error)
	Stats(ctx context.Context, userID uuid.UUID) (*LoanStats, error)
}

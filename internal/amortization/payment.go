package amortization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a single amount paid against a loan.
type Payment struct {
	Date   time.Time
	Amount decimal.Decimal
	Method string
	Note   string
}

// PaymentRecord is the history entry produced by ApplyPayment.
//
// InterestShortfall is interest due for the period that the payment did not
// cover; it is reported but never carried into later periods. ExcessAmount is
// the part of the payment left over after interest and the whole remaining
// balance were paid.
type PaymentRecord struct {
	PaymentDate           time.Time       `json:"paymentDate"`
	AmountPaid            decimal.Decimal `json:"amountPaid"`
	PrincipalPaid         decimal.Decimal `json:"principalPaid"`
	InterestPaid          decimal.Decimal `json:"interestPaid"`
	InterestDue           decimal.Decimal `json:"interestDue"`
	InterestShortfall     decimal.Decimal `json:"interestShortfall"`
	ExcessAmount          decimal.Decimal `json:"excessAmount"`
	RemainingBalanceAfter decimal.Decimal `json:"remainingBalanceAfter"`
	PaymentMethod         string          `json:"paymentMethod"`
	Note                  string          `json:"note,omitempty"`
}

// PaymentResult is the record plus the account fields the caller persists.
type PaymentResult struct {
	Record           PaymentRecord
	RemainingBalance decimal.Decimal
	Status           Status
	NextPaymentDate  *time.Time
}

// PeriodInterest is one period of simple interest on balance, rounded to the
// minor unit.
func PeriodInterest(balance, annualRatePercent decimal.Decimal) decimal.Decimal {
	return balance.Mul(MonthlyRate(annualRatePercent)).Round(MinorUnitPlaces)
}

// ApplyPayment splits p into interest and principal against remainingBalance
// and returns the resulting balance, status and next due date.
//
// Interest for the period is charged on the pre-payment balance and is paid
// first. Principal paid is clamped to [0, remainingBalance], so the balance
// never goes negative and an underpayment never increases it. The status
// changes only to completed, when the balance reaches zero.
func ApplyPayment(remainingBalance, annualRatePercent decimal.Decimal, status Status, p Payment) (PaymentResult, error) {
	if !p.Amount.IsPositive() {
		return PaymentResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if remainingBalance.IsNegative() {
		return PaymentResult{}, fmt.Errorf("%w: remaining balance is negative", ErrInvalidPayment)
	}
	if annualRatePercent.IsNegative() || annualRatePercent.GreaterThan(hundred) {
		return PaymentResult{}, fmt.Errorf("%w: interest rate must be between 0 and 100", ErrInvalidLoanTerms)
	}

	interestDue := PeriodInterest(remainingBalance, annualRatePercent)
	interestPaid := decimal.Min(interestDue, p.Amount)

	principalPaid := p.Amount.Sub(interestDue)
	if principalPaid.IsNegative() {
		principalPaid = decimal.Zero
	}
	principalPaid = decimal.Min(principalPaid, remainingBalance)

	newBalance := remainingBalance.Sub(principalPaid)
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}

	newStatus := status
	if newBalance.IsZero() {
		newStatus = StatusCompleted
	}

	var next *time.Time
	if newStatus == StatusActive && newBalance.IsPositive() {
		d := p.Date.AddDate(0, 1, 0)
		next = &d
	}

	return PaymentResult{
		Record: PaymentRecord{
			PaymentDate:           p.Date,
			AmountPaid:            p.Amount,
			PrincipalPaid:         principalPaid,
			InterestPaid:          interestPaid,
			InterestDue:           interestDue,
			InterestShortfall:     interestDue.Sub(interestPaid),
			ExcessAmount:          p.Amount.Sub(interestPaid).Sub(principalPaid),
			RemainingBalanceAfter: newBalance,
			PaymentMethod:         p.Method,
			Note:                  p.Note,
		},
		RemainingBalance: newBalance,
		Status:           newStatus,
		NextPaymentDate:  next,
	}, nil
}

// Package amortization computes equal-monthly-installment (EMI) loan figures
// and applies payments to a loan balance.
//
// Every function in this package is pure: no I/O, no logging, no shared
// state. Monetary values are decimals rounded to the currency minor unit
// (2 places, half away from zero) only at the boundaries documented on each
// function.
package amortization

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLoanTerms = errors.New("invalid loan terms")
	ErrInvalidPayment   = errors.New("invalid payment")
)

// MinorUnitPlaces is the rounding precision for every monetary result.
const MinorUnitPlaces = 2

// ratePrecision bounds intermediate rate arithmetic so (1+r)^n stays small.
const ratePrecision = 28

var (
	one        = decimal.NewFromInt(1)
	hundred    = decimal.NewFromInt(100)
	monthsRate = decimal.NewFromInt(12 * 100)
)

// Status is the lifecycle state of a loan account.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDefaulted Status = "defaulted"
)

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusDefaulted:
		return true
	}
	return false
}

// Terms are the inputs a loan is created from.
type Terms struct {
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	TermMonths        int
	StartDate         time.Time
}

// Installment is the fixed periodic payment and the totals derived from it.
type Installment struct {
	Installment   decimal.Decimal `json:"installment"`
	TotalPayable  decimal.Decimal `json:"totalPayable"`
	TotalInterest decimal.Decimal `json:"totalInterest"`
}

// Account holds the derived and mutable fields of a loan.
type Account struct {
	MonthlyInstallment decimal.Decimal
	TotalPayable       decimal.Decimal
	TotalInterest      decimal.Decimal
	EndDate            time.Time
	RemainingBalance   decimal.Decimal
	Status             Status
	NextPaymentDate    *time.Time
}

// ValidateTerms checks the principal, rate and term preconditions.
func ValidateTerms(principal, annualRatePercent decimal.Decimal, termMonths int) error {
	if principal.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: principal must be positive", ErrInvalidLoanTerms)
	}
	if annualRatePercent.IsNegative() || annualRatePercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: interest rate must be between 0 and 100", ErrInvalidLoanTerms)
	}
	if termMonths < 1 {
		return fmt.Errorf("%w: term must be at least 1 month", ErrInvalidLoanTerms)
	}
	return nil
}

// MonthlyRate converts an annual percentage into a per-period fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(monthsRate, ratePrecision)
}

// ComputeInstallment returns the fixed installment that amortizes principal
// to zero over termMonths, plus the totals derived from the rounded value:
//
//	r           = rate / 1200
//	installment = P * r * (1+r)^n / ((1+r)^n - 1)   (P / n when r == 0)
//	total       = round(installment) * n
func ComputeInstallment(principal, annualRatePercent decimal.Decimal, termMonths int) (Installment, error) {
	if err := ValidateTerms(principal, annualRatePercent, termMonths); err != nil {
		return Installment{}, err
	}

	n := decimal.NewFromInt(int64(termMonths))
	r := MonthlyRate(annualRatePercent)

	var installment decimal.Decimal
	if r.IsZero() {
		installment = principal.DivRound(n, ratePrecision)
	} else {
		factor := compound(r, termMonths)
		installment = principal.Mul(r).Mul(factor).DivRound(factor.Sub(one), ratePrecision)
	}
	installment = installment.Round(MinorUnitPlaces)

	totalPayable := installment.Mul(n)
	return Installment{
		Installment:   installment,
		TotalPayable:  totalPayable,
		TotalInterest: totalPayable.Sub(principal),
	}, nil
}

// Calculate is the stateless EMI calculator entry point.
func Calculate(principal, annualRatePercent decimal.Decimal, termMonths int) (Installment, error) {
	return ComputeInstallment(principal, annualRatePercent, termMonths)
}

// ComputeEndDate adds termMonths calendar months to startDate using
// time.AddDate, so day overflow normalizes the way the time package does
// (Jan 31 + 1 month is Mar 3 in a non-leap year).
func ComputeEndDate(startDate time.Time, termMonths int) time.Time {
	return startDate.AddDate(0, termMonths, 0)
}

// NewAccount derives the account fields of a freshly created loan. A loan
// whose start date is after now begins pending; otherwise it is active and
// its first payment is due on the start date.
func NewAccount(terms Terms, now time.Time) (Account, error) {
	inst, err := ComputeInstallment(terms.Principal, terms.AnnualRatePercent, terms.TermMonths)
	if err != nil {
		return Account{}, err
	}

	acc := Account{
		MonthlyInstallment: inst.Installment,
		TotalPayable:       inst.TotalPayable,
		TotalInterest:      inst.TotalInterest,
		EndDate:            ComputeEndDate(terms.StartDate, terms.TermMonths),
		RemainingBalance:   terms.Principal,
		Status:             StatusActive,
	}
	if startsAfter(terms.StartDate, now) {
		acc.Status = StatusPending
		return acc, nil
	}
	next := terms.StartDate
	acc.NextPaymentDate = &next
	return acc, nil
}

// Reprice recomputes the derived fields after a terms edit. principalRepaid
// is the sum of principal already applied by earlier payments.
func Reprice(terms Terms, principalRepaid decimal.Decimal, status Status) (Account, error) {
	inst, err := ComputeInstallment(terms.Principal, terms.AnnualRatePercent, terms.TermMonths)
	if err != nil {
		return Account{}, err
	}

	remaining := terms.Principal.Sub(principalRepaid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	switch {
	case remaining.IsZero():
		status = StatusCompleted
	case status == StatusCompleted:
		status = StatusActive
	}

	return Account{
		MonthlyInstallment: inst.Installment,
		TotalPayable:       inst.TotalPayable,
		TotalInterest:      inst.TotalInterest,
		EndDate:            ComputeEndDate(terms.StartDate, terms.TermMonths),
		RemainingBalance:   remaining,
		Status:             status,
	}, nil
}

// compound returns (1+r)^n by repeated squaring, rounding each step to
// ratePrecision places.
func compound(r decimal.Decimal, n int) decimal.Decimal {
	result := one
	base := one.Add(r)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(ratePrecision)
		}
		base = base.Mul(base).Round(ratePrecision)
		n >>= 1
	}
	return result
}

func startsAfter(start, now time.Time) bool {
	sy, sm, sd := start.Date()
	ny, nm, nd := now.In(start.Location()).Date()
	return time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC).After(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
}

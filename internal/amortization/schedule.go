package amortization

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is one period of an amortization schedule.
type ScheduleEntry struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"dueDate"`
	Payment          decimal.Decimal `json:"payment"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
}

// Schedule lays out every installment for terms. Period k is due k-1 months
// after the start date. Interest is computed exactly as ApplyPayment does, so
// paying each entry's Payment in order leaves a zero balance; the final
// period carries the rounding residual.
func Schedule(terms Terms) ([]ScheduleEntry, error) {
	inst, err := ComputeInstallment(terms.Principal, terms.AnnualRatePercent, terms.TermMonths)
	if err != nil {
		return nil, err
	}

	entries := make([]ScheduleEntry, 0, terms.TermMonths)
	balance := terms.Principal

	for period := 1; period <= terms.TermMonths && balance.IsPositive(); period++ {
		interest := PeriodInterest(balance, terms.AnnualRatePercent)
		principal := inst.Installment.Sub(interest)
		payment := inst.Installment

		if period == terms.TermMonths || principal.GreaterThanOrEqual(balance) {
			principal = balance
			payment = principal.Add(interest)
		}
		balance = balance.Sub(principal)

		entries = append(entries, ScheduleEntry{
			Period:           period,
			DueDate:          terms.StartDate.AddDate(0, period-1, 0),
			Payment:          payment,
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: balance,
		})
	}

	return entries, nil
}

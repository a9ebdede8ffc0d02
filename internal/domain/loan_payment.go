package domain

import (
	"time"

	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/shopspring/decimal"
)

// LoanPayment is a stored payment history entry.
type LoanPayment struct {
	ID                    int32           `json:"id"`
	LoanID                int32           `json:"loanId"`
	PaymentDate           time.Time       `json:"paymentDate"`
	AmountPaid            decimal.Decimal `json:"amountPaid"`
	PrincipalPaid         decimal.Decimal `json:"principalPaid"`
	InterestPaid          decimal.Decimal `json:"interestPaid"`
	InterestDue           decimal.Decimal `json:"interestDue"`
	InterestShortfall     decimal.Decimal `json:"interestShortfall"`
	ExcessAmount          decimal.Decimal `json:"excessAmount"`
	RemainingBalanceAfter decimal.Decimal `json:"remainingBalanceAfter"`
	PaymentMethod         PaymentMethod   `json:"paymentMethod"`
	Note                  *string         `json:"note,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// NewLoanPayment converts an engine record into a history entry for loanID.
func NewLoanPayment(loanID int32, rec amortization.PaymentRecord) *LoanPayment {
	p := &LoanPayment{
		LoanID:                loanID,
		PaymentDate:           rec.PaymentDate,
		AmountPaid:            rec.AmountPaid,
		PrincipalPaid:         rec.PrincipalPaid,
		InterestPaid:          rec.InterestPaid,
		InterestDue:           rec.InterestDue,
		InterestShortfall:     rec.InterestShortfall,
		ExcessAmount:          rec.ExcessAmount,
		RemainingBalanceAfter: rec.RemainingBalanceAfter,
		PaymentMethod:         PaymentMethod(rec.PaymentMethod),
	}
	if rec.Note != "" {
		note := rec.Note
		p.Note = &note
	}
	return p
}

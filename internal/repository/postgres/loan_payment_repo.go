package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const loanPaymentColumns = `id, loan_id, payment_date, amount_paid, principal_paid, interest_paid, interest_due,
	interest_shortfall, excess_amount, remaining_balance_after, payment_method, note, created_at`

// insertLoanPayment stores a payment history entry. Callers run it inside the
// transaction that updates the owning loan.
func insertLoanPayment(ctx context.Context, q Querier, p *domain.LoanPayment) (*domain.LoanPayment, error) {
	amounts := []decimal.Decimal{
		p.AmountPaid,
		p.PrincipalPaid,
		p.InterestPaid,
		p.InterestDue,
		p.InterestShortfall,
		p.ExcessAmount,
		p.RemainingBalanceAfter,
	}
	nums := make([]any, len(amounts))
	for i, d := range amounts {
		n, err := decimalToPgNumeric(d)
		if err != nil {
			return nil, fmt.Errorf("invalid payment amount: %w", err)
		}
		nums[i] = n
	}

	args := append([]any{p.LoanID, timeToPgDate(p.PaymentDate)}, nums...)
	args = append(args, string(p.PaymentMethod), stringPtrToPgText(p.Note))

	return scanLoanPayment(q.QueryRow(ctx, `
		INSERT INTO loan_payments (loan_id, payment_date, amount_paid, principal_paid, interest_paid, interest_due,
			interest_shortfall, excess_amount, remaining_balance_after, payment_method, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+loanPaymentColumns,
		args...,
	))
}

// attachPayments loads the payment history of every loan in one query,
// oldest payment first.
func attachPayments(ctx context.Context, q Querier, loans []*domain.Loan) error {
	if len(loans) == 0 {
		return nil
	}

	byID := make(map[int32]*domain.Loan, len(loans))
	ids := make([]int32, 0, len(loans))
	for _, l := range loans {
		l.Payments = []*domain.LoanPayment{}
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT `+loanPaymentColumns+` FROM loan_payments
		WHERE loan_id = ANY($1)
		ORDER BY payment_date, id`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanLoanPayment(rows)
		if err != nil {
			return err
		}
		if l, ok := byID[p.LoanID]; ok {
			l.Payments = append(l.Payments, p)
		}
	}
	return rows.Err()
}

func scanLoanPayment(row pgx.Row) (*domain.LoanPayment, error) {
	var (
		p                                           domain.LoanPayment
		paymentDate                                 pgtype.Date
		amount, principal, interest, due, shortfall pgtype.Numeric
		excess, balanceAfter                        pgtype.Numeric
		method                                      string
		note                                        pgtype.Text
	)
	err := row.Scan(
		&p.ID,
		&p.LoanID,
		&paymentDate,
		&amount,
		&principal,
		&interest,
		&due,
		&shortfall,
		&excess,
		&balanceAfter,
		&method,
		&note,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PaymentDate = pgDateToTime(paymentDate)
	p.AmountPaid = pgNumericToDecimal(amount)
	p.PrincipalPaid = pgNumericToDecimal(principal)
	p.InterestPaid = pgNumericToDecimal(interest)
	p.InterestDue = pgNumericToDecimal(due)
	p.InterestShortfall = pgNumericToDecimal(shortfall)
	p.ExcessAmount = pgNumericToDecimal(excess)
	p.RemainingBalanceAfter = pgNumericToDecimal(balanceAfter)
	p.PaymentMethod = domain.PaymentMethod(method)
	p.Note = pgTextToStringPtr(note)
	return &p, nil
}

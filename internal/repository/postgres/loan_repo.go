package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
)

const loanColumns = `id, user_id, loan_type, lender_name, principal, interest_rate, term_months, start_date, notes,
	monthly_installment, total_payable, total_interest, end_date, remaining_balance, status,
	next_payment_date, version, created_at, updated_at`

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

// loanParams holds the pgtype conversions shared by insert and update
type loanParams struct {
	principal, rate, installment, totalPayable, totalInterest, balance pgtype.Numeric
}

func newLoanParams(loan *domain.Loan) (*loanParams, error) {
	var (
		p   loanParams
		err error
	)
	if p.principal, err = decimalToPgNumeric(loan.Principal); err != nil {
		return nil, fmt.Errorf("invalid principal: %w", err)
	}
	if p.rate, err = decimalToPgNumeric(loan.InterestRate); err != nil {
		return nil, fmt.Errorf("invalid interest rate: %w", err)
	}
	if p.installment, err = decimalToPgNumeric(loan.MonthlyInstallment); err != nil {
		return nil, fmt.Errorf("invalid monthly installment: %w", err)
	}
	if p.totalPayable, err = decimalToPgNumeric(loan.TotalPayable); err != nil {
		return nil, fmt.Errorf("invalid total payable: %w", err)
	}
	if p.totalInterest, err = decimalToPgNumeric(loan.TotalInterest); err != nil {
		return nil, fmt.Errorf("invalid total interest: %w", err)
	}
	if p.balance, err = decimalToPgNumeric(loan.RemainingBalance); err != nil {
		return nil, fmt.Errorf("invalid remaining balance: %w", err)
	}
	return &p, nil
}

// Create creates a new loan
func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	p, err := newLoanParams(loan)
	if err != nil {
		return nil, err
	}

	created, err := scanLoan(r.pool.QueryRow(ctx, `
		INSERT INTO loans (user_id, loan_type, lender_name, principal, interest_rate, term_months, start_date, notes,
			monthly_installment, total_payable, total_interest, end_date, remaining_balance, status, next_payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+loanColumns,
		loan.UserID,
		string(loan.LoanType),
		loan.LenderName,
		p.principal,
		p.rate,
		loan.TermMonths,
		timeToPgDate(loan.StartDate),
		stringPtrToPgText(loan.Notes),
		p.installment,
		p.totalPayable,
		p.totalInterest,
		timeToPgDate(loan.EndDate),
		p.balance,
		string(loan.Status),
		timePtrToPgDate(loan.NextPaymentDate),
	))
	if err != nil {
		return nil, err
	}
	created.Payments = []*domain.LoanPayment{}
	return created, nil
}

// GetByID retrieves a loan and its payment history
func (r *LoanRepository) GetByID(ctx context.Context, userID uuid.UUID, id int32) (*domain.Loan, error) {
	loan, err := r.getLoan(ctx, r.pool, userID, id)
	if err != nil {
		return nil, err
	}
	if err := attachPayments(ctx, r.pool, []*domain.Loan{loan}); err != nil {
		return nil, err
	}
	return loan, nil
}

// List retrieves a user's loans, newest first, optionally filtered by status
func (r *LoanRepository) List(ctx context.Context, userID uuid.UUID, status *amortization.Status) ([]*domain.Loan, error) {
	var statusText pgtype.Text
	if status != nil {
		statusText = pgtype.Text{String: string(*status), Valid: true}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC`,
		userID, statusText,
	)
	if err != nil {
		return nil, err
	}
	loans, err := collectLoans(rows)
	if err != nil {
		return nil, err
	}
	if err := attachPayments(ctx, r.pool, loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// Update persists the loan when its stored version still matches loan.Version
func (r *LoanRepository) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	updated, err := r.compareAndSwap(ctx, r.pool, loan)
	if err != nil {
		return nil, err
	}
	if err := attachPayments(ctx, r.pool, []*domain.Loan{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a loan; its payments are removed by cascade
func (r *LoanRepository) Delete(ctx context.Context, userID uuid.UUID, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM loans WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

// AddPayment records payment and the loan's updated account fields atomically
func (r *LoanRepository) AddPayment(ctx context.Context, loan *domain.Loan, payment *domain.LoanPayment) (*domain.Loan, error) {
	var updated *domain.Loan
	err := WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		updated, err = r.compareAndSwap(ctx, tx, loan)
		if err != nil {
			return err
		}
		payment.LoanID = updated.ID
		if _, err := insertLoanPayment(ctx, tx, payment); err != nil {
			return err
		}
		return attachPayments(ctx, tx, []*domain.Loan{updated})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ActivatePending moves pending loans whose start date has arrived to active
func (r *LoanRepository) ActivatePending(ctx context.Context, asOf time.Time) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE loans
		SET status = 'active', next_payment_date = start_date, version = version + 1, updated_at = NOW()
		WHERE status = 'pending' AND start_date <= $1
		RETURNING `+loanColumns,
		timeToPgDate(asOf),
	)
	if err != nil {
		return nil, err
	}
	return collectLoans(rows)
}

// Stats aggregates the user's loans and their payment history
func (r *LoanRepository) Stats(ctx context.Context, userID uuid.UUID) (*domain.LoanStats, error) {
	var (
		stats                                   domain.LoanStats
		principal, outstanding, emi, paid, intr pgtype.Numeric
	)
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE l.status = 'active'),
			COUNT(*) FILTER (WHERE l.status = 'pending'),
			COUNT(*) FILTER (WHERE l.status = 'completed'),
			COUNT(*) FILTER (WHERE l.status = 'defaulted'),
			COALESCE(SUM(l.principal), 0),
			COALESCE(SUM(l.remaining_balance) FILTER (WHERE l.status <> 'completed'), 0),
			COALESCE(SUM(l.monthly_installment) FILTER (WHERE l.status = 'active'), 0),
			COALESCE(SUM(p.amount_paid), 0),
			COALESCE(SUM(p.interest_paid), 0)
		FROM loans l
		LEFT JOIN (
			SELECT loan_id, SUM(amount_paid) AS amount_paid, SUM(interest_paid) AS interest_paid
			FROM loan_payments
			GROUP BY loan_id
		) p ON p.loan_id = l.id
		WHERE l.user_id = $1`,
		userID,
	).Scan(
		&stats.TotalLoans,
		&stats.ActiveLoans,
		&stats.PendingLoans,
		&stats.CompletedLoans,
		&stats.DefaultedLoans,
		&principal,
		&outstanding,
		&emi,
		&paid,
		&intr,
	)
	if err != nil {
		return nil, err
	}
	stats.TotalPrincipal = pgNumericToDecimal(principal)
	stats.TotalOutstanding = pgNumericToDecimal(outstanding)
	stats.MonthlyEMI = pgNumericToDecimal(emi)
	stats.TotalPaid = pgNumericToDecimal(paid)
	stats.TotalInterest = pgNumericToDecimal(intr)
	return &stats, nil
}

func (r *LoanRepository) getLoan(ctx context.Context, q Querier, userID uuid.UUID, id int32) (*domain.Loan, error) {
	loan, err := scanLoan(q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// compareAndSwap writes every mutable loan column and bumps the version.
// Zero matched rows means the loan is gone or was changed concurrently.
func (r *LoanRepository) compareAndSwap(ctx context.Context, q Querier, loan *domain.Loan) (*domain.Loan, error) {
	p, err := newLoanParams(loan)
	if err != nil {
		return nil, err
	}

	updated, err := scanLoan(q.QueryRow(ctx, `
		UPDATE loans
		SET loan_type = $4, lender_name = $5, principal = $6, interest_rate = $7, term_months = $8,
			start_date = $9, notes = $10, monthly_installment = $11, total_payable = $12, total_interest = $13,
			end_date = $14, remaining_balance = $15, status = $16, next_payment_date = $17,
			version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND id = $2 AND version = $3
		RETURNING `+loanColumns,
		loan.UserID,
		loan.ID,
		loan.Version,
		string(loan.LoanType),
		loan.LenderName,
		p.principal,
		p.rate,
		loan.TermMonths,
		timeToPgDate(loan.StartDate),
		stringPtrToPgText(loan.Notes),
		p.installment,
		p.totalPayable,
		p.totalInterest,
		timeToPgDate(loan.EndDate),
		p.balance,
		string(loan.Status),
		timePtrToPgDate(loan.NextPaymentDate),
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM loans WHERE user_id = $1 AND id = $2)`, loan.UserID, loan.ID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrLoanNotFound
	}
	return nil, domain.ErrVersionConflict
}

func collectLoans(rows pgx.Rows) ([]*domain.Loan, error) {
	defer rows.Close()

	loans := make([]*domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		l                                                                  domain.Loan
		loanType, status                                                   string
		principal, rate, installment, totalPayable, totalInterest, balance pgtype.Numeric
		startDate, endDate, nextPayment                                    pgtype.Date
		notes                                                              pgtype.Text
	)
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&loanType,
		&l.LenderName,
		&principal,
		&rate,
		&l.TermMonths,
		&startDate,
		&notes,
		&installment,
		&totalPayable,
		&totalInterest,
		&endDate,
		&balance,
		&status,
		&nextPayment,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.LoanType = domain.LoanType(loanType)
	l.Status = amortization.Status(status)
	l.Principal = pgNumericToDecimal(principal)
	l.InterestRate = pgNumericToDecimal(rate)
	l.MonthlyInstallment = pgNumericToDecimal(installment)
	l.TotalPayable = pgNumericToDecimal(totalPayable)
	l.TotalInterest = pgNumericToDecimal(totalInterest)
	l.RemainingBalance = pgNumericToDecimal(balance)
	l.StartDate = pgDateToTime(startDate)
	l.EndDate = pgDateToTime(endDate)
	l.NextPaymentDate = pgDateToTimePtr(nextPayment)
	l.Notes = pgTextToStringPtr(notes)
	return &l, nil
}

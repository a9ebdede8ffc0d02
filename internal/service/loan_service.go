package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/util"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// maxPaymentAttempts bounds the read-apply-swap loop when concurrent
// payments race on the same loan
const maxPaymentAttempts = 3

// LoanService handles the loan lifecycle: creation, edits, payments and
// activation of pending loans
type LoanService struct {
	loanRepo  domain.LoanRepository
	publisher websocket.EventPublisher
	now       func() time.Time
}

// NewLoanService creates a new LoanService
func NewLoanService(loanRepo domain.LoanRepository, publisher websocket.EventPublisher) *LoanService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &LoanService{
		loanRepo:  loanRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateLoanInput holds the input for creating a loan
type CreateLoanInput struct {
	LoanType     domain.LoanType
	LenderName   string
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	TermMonths   int32
	StartDate    time.Time
	Notes        *string
}

// UpdateLoanInput holds a partial loan edit. Nil fields are left unchanged.
// Status is the explicit lifecycle override (for example marking a loan
// defaulted).
type UpdateLoanInput struct {
	LoanType     *domain.LoanType
	LenderName   *string
	Principal    *decimal.Decimal
	InterestRate *decimal.Decimal
	TermMonths   *int32
	StartDate    *time.Time
	Notes        *string
	Status       *amortization.Status
}

// AddPaymentInput holds a payment against a loan
type AddPaymentInput struct {
	Amount        decimal.Decimal
	PaymentDate   *time.Time
	PaymentMethod domain.PaymentMethod
	Note          *string
}

// CalculateEMIInput holds the inputs of the stateless calculator
type CalculateEMIInput struct {
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	TermMonths   int32
}

// PaymentOutcome is the loan after a payment plus the stored history entry
type PaymentOutcome struct {
	Loan    *domain.Loan        `json:"loan"`
	Payment *domain.LoanPayment `json:"payment"`
}

// CreateLoan validates the input, derives the installment figures and stores the loan
func (s *LoanService) CreateLoan(ctx context.Context, userID uuid.UUID, input CreateLoanInput) (*domain.Loan, error) {
	loan := &domain.Loan{
		UserID:       userID,
		LoanType:     input.LoanType,
		LenderName:   strings.TrimSpace(input.LenderName),
		Principal:    input.Principal.Round(2),
		InterestRate: input.InterestRate,
		TermMonths:   input.TermMonths,
		StartDate:    util.StartOfDay(input.StartDate),
		Notes:        trimOptional(input.Notes),
	}

	acc, err := amortization.NewAccount(loan.Terms(), s.now())
	if err != nil {
		return nil, err
	}
	loan.ApplyAccount(acc)

	if err := loan.Validate(); err != nil {
		return nil, err
	}

	created, err := s.loanRepo.Create(ctx, loan)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int32("loan_id", created.ID).
		Str("status", string(created.Status)).
		Str("installment", created.MonthlyInstallment.StringFixed(2)).
		Msg("Loan created")
	s.publisher.Publish(userID, websocket.LoanCreated(created))
	return created, nil
}

// GetLoan retrieves a loan with its payment history
func (s *LoanService) GetLoan(ctx context.Context, userID uuid.UUID, id int32) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, userID, id)
}

// ListLoans retrieves all of a user's loans, optionally filtered by status
func (s *LoanService) ListLoans(ctx context.Context, userID uuid.UUID, status *amortization.Status) ([]*domain.Loan, error) {
	if status != nil && !status.Valid() {
		return nil, domain.ErrLoanStatusInvalid
	}
	return s.loanRepo.List(ctx, userID, status)
}

// ListLoansByStatus retrieves a user's loans in one lifecycle state
func (s *LoanService) ListLoansByStatus(ctx context.Context, userID uuid.UUID, status amortization.Status) ([]*domain.Loan, error) {
	return s.ListLoans(ctx, userID, &status)
}

// UpdateLoan applies a partial edit. A change to principal, rate, term or
// start date recomputes the installment figures; principal already repaid
// stays repaid.
func (s *LoanService) UpdateLoan(ctx context.Context, userID uuid.UUID, id int32, input UpdateLoanInput) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && !input.Status.Valid() {
		return nil, domain.ErrLoanStatusInvalid
	}

	if input.LoanType != nil {
		loan.LoanType = *input.LoanType
	}
	if input.LenderName != nil {
		loan.LenderName = strings.TrimSpace(*input.LenderName)
	}
	if input.Notes != nil {
		loan.Notes = trimOptional(input.Notes)
	}

	termsChanged := false
	if input.Principal != nil && !input.Principal.Round(2).Equal(loan.Principal) {
		loan.Principal = input.Principal.Round(2)
		termsChanged = true
	}
	if input.InterestRate != nil && !input.InterestRate.Equal(loan.InterestRate) {
		loan.InterestRate = *input.InterestRate
		termsChanged = true
	}
	if input.TermMonths != nil && *input.TermMonths != loan.TermMonths {
		loan.TermMonths = *input.TermMonths
		termsChanged = true
	}
	if input.StartDate != nil && !util.StartOfDay(*input.StartDate).Equal(loan.StartDate) {
		loan.StartDate = util.StartOfDay(*input.StartDate)
		termsChanged = true
	}

	if termsChanged {
		if err := s.reprice(loan); err != nil {
			return nil, err
		}
	}
	if input.Status != nil && *input.Status != loan.Status {
		if err := setStatus(loan, *input.Status); err != nil {
			return nil, err
		}
	}

	if err := loan.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.loanRepo.Update(ctx, loan)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int32("loan_id", updated.ID).
		Bool("repriced", termsChanged).
		Str("status", string(updated.Status)).
		Msg("Loan updated")
	s.publisher.Publish(userID, websocket.LoanUpdated(updated))
	return updated, nil
}

// reprice recomputes the derived fields after a terms edit
func (s *LoanService) reprice(loan *domain.Loan) error {
	// Untouched loans are derived as if freshly created
	if len(loan.Payments) == 0 && (loan.Status == amortization.StatusPending || loan.Status == amortization.StatusActive) {
		acc, err := amortization.NewAccount(loan.Terms(), s.now())
		if err != nil {
			return err
		}
		loan.ApplyAccount(acc)
		return nil
	}

	previousNext := loan.NextPaymentDate
	acc, err := amortization.Reprice(loan.Terms(), loan.PrincipalRepaid(), loan.Status)
	if err != nil {
		return err
	}
	loan.ApplyAccount(acc)
	if loan.Status == amortization.StatusActive {
		loan.NextPaymentDate = previousNext
		if loan.NextPaymentDate == nil {
			next := nextDueDate(loan)
			loan.NextPaymentDate = &next
		}
	}
	return nil
}

// setStatus applies an explicit lifecycle change and keeps the next payment
// date consistent with it
func setStatus(loan *domain.Loan, status amortization.Status) error {
	if loan.RemainingBalance.IsZero() && status != amortization.StatusCompleted {
		return domain.ErrLoanBalanceSettled
	}
	loan.Status = status
	if status != amortization.StatusActive {
		loan.NextPaymentDate = nil
		return nil
	}
	if loan.NextPaymentDate == nil {
		next := nextDueDate(loan)
		loan.NextPaymentDate = &next
	}
	return nil
}

// nextDueDate is one month after the latest payment, or the start date when
// nothing has been paid
func nextDueDate(loan *domain.Loan) time.Time {
	if n := len(loan.Payments); n > 0 {
		return loan.Payments[n-1].PaymentDate.AddDate(0, 1, 0)
	}
	return loan.StartDate
}

// DeleteLoan removes a loan and its payment history
func (s *LoanService) DeleteLoan(ctx context.Context, userID uuid.UUID, id int32) error {
	if err := s.loanRepo.Delete(ctx, userID, id); err != nil {
		return err
	}

	log.Info().Str("user_id", userID.String()).Int32("loan_id", id).Msg("Loan deleted")
	s.publisher.Publish(userID, websocket.LoanDeleted(map[string]interface{}{"id": id}))
	return nil
}

// AddPayment applies a payment to the loan's current balance and stores the
// result. The write is conditional on the loan's version; a concurrent
// payment causes the balance to be re-read and the payment re-applied.
func (s *LoanService) AddPayment(ctx context.Context, userID uuid.UUID, id int32, input AddPaymentInput) (*PaymentOutcome, error) {
	method := input.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodBankTransfer
	}
	if !method.Valid() {
		return nil, domain.ErrPaymentMethodInvalid
	}
	note := trimOptional(input.Note)
	if note != nil && len([]rune(*note)) > domain.MaxNotesLength {
		return nil, domain.ErrNotesTooLong
	}

	paymentDate := s.now()
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}
	payment := amortization.Payment{
		Date:   util.StartOfDay(paymentDate),
		Amount: input.Amount.Round(2),
		Method: string(method),
	}
	if note != nil {
		payment.Note = *note
	}

	for attempt := 1; attempt <= maxPaymentAttempts; attempt++ {
		loan, err := s.loanRepo.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if loan.Status == amortization.StatusCompleted {
			return nil, domain.ErrLoanCompleted
		}

		result, err := amortization.ApplyPayment(loan.RemainingBalance, loan.InterestRate, loan.Status, payment)
		if err != nil {
			return nil, err
		}
		loan.RemainingBalance = result.RemainingBalance
		loan.Status = result.Status
		loan.NextPaymentDate = result.NextPaymentDate

		record := domain.NewLoanPayment(loan.ID, result.Record)
		updated, err := s.loanRepo.AddPayment(ctx, loan, record)
		if errors.Is(err, domain.ErrVersionConflict) {
			log.Warn().
				Str("user_id", userID.String()).
				Int32("loan_id", id).
				Int("attempt", attempt).
				Msg("Loan changed during payment, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		stored := record
		if n := len(updated.Payments); n > 0 {
			stored = updated.Payments[n-1]
		}

		log.Info().
			Str("user_id", userID.String()).
			Int32("loan_id", updated.ID).
			Str("amount", payment.Amount.StringFixed(2)).
			Str("remaining_balance", updated.RemainingBalance.StringFixed(2)).
			Str("status", string(updated.Status)).
			Msg("Loan payment recorded")
		s.publisher.Publish(userID, websocket.LoanPaymentCreated(stored))
		s.publisher.Publish(userID, websocket.LoanUpdated(updated))
		return &PaymentOutcome{Loan: updated, Payment: stored}, nil
	}

	return nil, domain.ErrVersionConflict
}

// CalculateEMI computes installment figures without storing anything
func (s *LoanService) CalculateEMI(input CalculateEMIInput) (amortization.Installment, error) {
	return amortization.Calculate(input.Principal.Round(2), input.InterestRate, int(input.TermMonths))
}

// GetLoanSchedule returns the full amortization schedule of a stored loan
func (s *LoanService) GetLoanSchedule(ctx context.Context, userID uuid.UUID, id int32) ([]amortization.ScheduleEntry, error) {
	loan, err := s.loanRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return amortization.Schedule(loan.Terms())
}

// GetLoanStats aggregates a user's loans
func (s *LoanService) GetLoanStats(ctx context.Context, userID uuid.UUID) (*domain.LoanStats, error) {
	return s.loanRepo.Stats(ctx, userID)
}

// ActivateDueLoans moves every pending loan whose start date has arrived to
// active and returns how many were activated
func (s *LoanService) ActivateDueLoans(ctx context.Context) (int, error) {
	loans, err := s.loanRepo.ActivatePending(ctx, util.StartOfDay(s.now()))
	if err != nil {
		return 0, err
	}
	for _, loan := range loans {
		log.Info().
			Str("user_id", loan.UserID.String()).
			Int32("loan_id", loan.ID).
			Msg("Loan activated")
		s.publisher.Publish(loan.UserID, websocket.LoanActivated(loan))
	}
	return len(loans), nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loanClock = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func setupLoanService() (*LoanService, *testutil.MockLoanRepository, *testutil.MockPublisher) {
	repo := testutil.NewMockLoanRepository()
	publisher := testutil.NewMockPublisher()
	svc := NewLoanService(repo, publisher)
	svc.now = func() time.Time { return loanClock }
	return svc, repo, publisher
}

func standardLoanInput() CreateLoanInput {
	return CreateLoanInput{
		LoanType:     domain.LoanTypePersonal,
		LenderName:   "  City Bank ",
		Principal:    decimal.NewFromInt(120000),
		InterestRate: decimal.NewFromInt(12),
		TermMonths:   12,
		StartDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func paymentOf(amount string) AddPaymentInput {
	date := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	return AddPaymentInput{Amount: decimal.RequireFromString(amount), PaymentDate: &date}
}

func TestLoanService_CreateLoan_Active(t *testing.T) {
	svc, _, publisher := setupLoanService()
	userID := uuid.New()

	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	assert.Equal(t, "City Bank", loan.LenderName)
	assert.Equal(t, amortization.StatusActive, loan.Status)
	assert.Equal(t, "10661.85", loan.MonthlyInstallment.StringFixed(2))
	assert.Equal(t, "127942.20", loan.TotalPayable.StringFixed(2))
	assert.Equal(t, "7942.20", loan.TotalInterest.StringFixed(2))
	assert.True(t, loan.RemainingBalance.Equal(decimal.NewFromInt(120000)))
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), loan.EndDate)
	require.NotNil(t, loan.NextPaymentDate)
	assert.Equal(t, loan.StartDate, *loan.NextPaymentDate)
	assert.Equal(t, int32(1), loan.Version)
	assert.Equal(t, []string{"loan.created"}, publisher.Types())
	assert.Equal(t, userID, publisher.Events[0].UserID)
}

func TestLoanService_CreateLoan_FutureStartIsPending(t *testing.T) {
	svc, _, _ := setupLoanService()
	input := standardLoanInput()
	input.StartDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	loan, err := svc.CreateLoan(context.Background(), uuid.New(), input)
	require.NoError(t, err)

	assert.Equal(t, amortization.StatusPending, loan.Status)
	assert.Nil(t, loan.NextPaymentDate)
}

func TestLoanService_CreateLoan_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateLoanInput)
		wantErr error
	}{
		{"zero principal", func(in *CreateLoanInput) { in.Principal = decimal.Zero }, amortization.ErrInvalidLoanTerms},
		{"rate over 100", func(in *CreateLoanInput) { in.InterestRate = decimal.NewFromInt(101) }, amortization.ErrInvalidLoanTerms},
		{"zero term", func(in *CreateLoanInput) { in.TermMonths = 0 }, amortization.ErrInvalidLoanTerms},
		{"bad loan type", func(in *CreateLoanInput) { in.LoanType = "yacht" }, domain.ErrLoanTypeInvalid},
		{"blank lender", func(in *CreateLoanInput) { in.LenderName = "   " }, domain.ErrLenderNameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, publisher := setupLoanService()
			input := standardLoanInput()
			tt.mutate(&input)

			_, err := svc.CreateLoan(context.Background(), uuid.New(), input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.Loans)
			assert.Empty(t, publisher.Events)
		})
	}
}

func TestLoanService_AddPayment_RegularInstallment(t *testing.T) {
	svc, _, publisher := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	outcome, err := svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("10661.85"))
	require.NoError(t, err)

	assert.Equal(t, "110538.15", outcome.Loan.RemainingBalance.StringFixed(2))
	assert.Equal(t, amortization.StatusActive, outcome.Loan.Status)
	assert.Equal(t, int32(2), outcome.Loan.Version)
	require.NotNil(t, outcome.Loan.NextPaymentDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *outcome.Loan.NextPaymentDate)

	require.Len(t, outcome.Loan.Payments, 1)
	assert.Equal(t, "1200.00", outcome.Payment.InterestPaid.StringFixed(2))
	assert.Equal(t, "9461.85", outcome.Payment.PrincipalPaid.StringFixed(2))
	assert.Equal(t, domain.PaymentMethodBankTransfer, outcome.Payment.PaymentMethod)
	assert.NotZero(t, outcome.Payment.ID)

	assert.Equal(t, []string{"loan.created", "loan_payment.created", "loan.updated"}, publisher.Types())
}

func TestLoanService_AddPayment_RetriesOnVersionConflict(t *testing.T) {
	svc, repo, _ := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	repo.Conflicts = 2
	outcome, err := svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("10661.85"))
	require.NoError(t, err)

	assert.Equal(t, 3, repo.UpdateCalls)
	assert.Len(t, outcome.Loan.Payments, 1)
	assert.Equal(t, "110538.15", outcome.Loan.RemainingBalance.StringFixed(2))
}

func TestLoanService_AddPayment_GivesUpAfterThreeConflicts(t *testing.T) {
	svc, repo, publisher := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	repo.Conflicts = maxPaymentAttempts
	_, err = svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("10661.85"))

	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.Empty(t, repo.Loans[loan.ID].Payments)
	assert.Equal(t, []string{"loan.created"}, publisher.Types())
}

func TestLoanService_AddPayment_PayoffCompletesLoan(t *testing.T) {
	svc, _, _ := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	outcome, err := svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("125000"))
	require.NoError(t, err)

	assert.True(t, outcome.Loan.RemainingBalance.IsZero())
	assert.Equal(t, amortization.StatusCompleted, outcome.Loan.Status)
	assert.Nil(t, outcome.Loan.NextPaymentDate)
	assert.Equal(t, "3800.00", outcome.Payment.ExcessAmount.StringFixed(2))

	_, err = svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("100"))
	assert.ErrorIs(t, err, domain.ErrLoanCompleted)
}

func TestLoanService_AddPayment_InvalidInput(t *testing.T) {
	svc, _, _ := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	_, err = svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("0"))
	assert.ErrorIs(t, err, amortization.ErrInvalidPayment)

	input := paymentOf("100")
	input.PaymentMethod = "barter"
	_, err = svc.AddPayment(context.Background(), userID, loan.ID, input)
	assert.ErrorIs(t, err, domain.ErrPaymentMethodInvalid)

	_, err = svc.AddPayment(context.Background(), uuid.New(), loan.ID, paymentOf("100"))
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)
}

func TestLoanService_UpdateLoan_RepricesUntouchedLoan(t *testing.T) {
	svc, _, publisher := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	term := int32(24)
	updated, err := svc.UpdateLoan(context.Background(), userID, loan.ID, UpdateLoanInput{TermMonths: &term})
	require.NoError(t, err)

	expected, err := amortization.ComputeInstallment(decimal.NewFromInt(120000), decimal.NewFromInt(12), 24)
	require.NoError(t, err)
	assert.True(t, expected.Installment.Equal(updated.MonthlyInstallment))
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), updated.EndDate)
	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(120000)))
	assert.Equal(t, int32(2), updated.Version)
	assert.Equal(t, "loan.updated", publisher.Types()[1])
}

func TestLoanService_UpdateLoan_KeepsRepaidPrincipal(t *testing.T) {
	svc, _, _ := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)
	_, err = svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("10661.85"))
	require.NoError(t, err)

	principal := decimal.NewFromInt(130000)
	updated, err := svc.UpdateLoan(context.Background(), userID, loan.ID, UpdateLoanInput{Principal: &principal})
	require.NoError(t, err)

	assert.Equal(t, "120538.15", updated.RemainingBalance.StringFixed(2))
	assert.Equal(t, amortization.StatusActive, updated.Status)
	require.NotNil(t, updated.NextPaymentDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *updated.NextPaymentDate)
	assert.Len(t, updated.Payments, 1)
}

func TestLoanService_UpdateLoan_Status(t *testing.T) {
	svc, _, _ := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	defaulted := amortization.StatusDefaulted
	updated, err := svc.UpdateLoan(context.Background(), userID, loan.ID, UpdateLoanInput{Status: &defaulted})
	require.NoError(t, err)
	assert.Equal(t, amortization.StatusDefaulted, updated.Status)
	assert.Nil(t, updated.NextPaymentDate)

	active := amortization.StatusActive
	updated, err = svc.UpdateLoan(context.Background(), userID, loan.ID, UpdateLoanInput{Status: &active})
	require.NoError(t, err)
	require.NotNil(t, updated.NextPaymentDate)
	assert.Equal(t, updated.StartDate, *updated.NextPaymentDate)

	bogus := amortization.Status("frozen")
	_, err = svc.UpdateLoan(context.Background(), userID, loan.ID, UpdateLoanInput{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrLoanStatusInvalid)
}

func TestLoanService_UpdateLoan_SettledLoanStaysCompleted(t *testing.T) {
	svc, _, _ := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)
	_, err = svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("125000"))
	require.NoError(t, err)

	active := amortization.StatusActive
	_, err = svc.UpdateLoan(context.Background(), userID, loan.ID, UpdateLoanInput{Status: &active})
	assert.ErrorIs(t, err, domain.ErrLoanBalanceSettled)
}

func TestLoanService_DeleteLoan(t *testing.T) {
	svc, repo, publisher := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLoan(context.Background(), userID, loan.ID))
	assert.Empty(t, repo.Loans)
	assert.Equal(t, "loan.deleted", publisher.Types()[1])

	assert.ErrorIs(t, svc.DeleteLoan(context.Background(), userID, loan.ID), domain.ErrLoanNotFound)
}

func TestLoanService_ListLoans(t *testing.T) {
	svc, _, _ := setupLoanService()
	userID := uuid.New()
	_, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)
	future := standardLoanInput()
	future.StartDate = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateLoan(context.Background(), userID, future)
	require.NoError(t, err)
	_, err = svc.CreateLoan(context.Background(), uuid.New(), standardLoanInput())
	require.NoError(t, err)

	all, err := svc.ListLoans(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.ListLoansByStatus(context.Background(), userID, amortization.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, amortization.StatusPending, pending[0].Status)

	bogus := amortization.Status("frozen")
	_, err = svc.ListLoans(context.Background(), userID, &bogus)
	assert.ErrorIs(t, err, domain.ErrLoanStatusInvalid)
}

func TestLoanService_ActivateDueLoans(t *testing.T) {
	svc, _, publisher := setupLoanService()
	userID := uuid.New()
	input := standardLoanInput()
	input.StartDate = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	loan, err := svc.CreateLoan(context.Background(), userID, input)
	require.NoError(t, err)
	require.Equal(t, amortization.StatusPending, loan.Status)

	count, err := svc.ActivateDueLoans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	svc.now = func() time.Time { return time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC) }
	count, err = svc.ActivateDueLoans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	activated, err := svc.GetLoan(context.Background(), userID, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, amortization.StatusActive, activated.Status)
	require.NotNil(t, activated.NextPaymentDate)
	assert.Equal(t, input.StartDate, *activated.NextPaymentDate)
	assert.Equal(t, "loan.activated", publisher.Types()[1])
}

func TestLoanService_CalculateEMI(t *testing.T) {
	svc, repo, _ := setupLoanService()

	inst, err := svc.CalculateEMI(CalculateEMIInput{
		Principal:    decimal.NewFromInt(120000),
		InterestRate: decimal.NewFromInt(12),
		TermMonths:   12,
	})
	require.NoError(t, err)
	assert.Equal(t, "10661.85", inst.Installment.StringFixed(2))
	assert.Empty(t, repo.Loans)

	_, err = svc.CalculateEMI(CalculateEMIInput{Principal: decimal.NewFromInt(-5), InterestRate: decimal.NewFromInt(12), TermMonths: 12})
	assert.ErrorIs(t, err, amortization.ErrInvalidLoanTerms)
}

func TestLoanService_ScheduleAndStats(t *testing.T) {
	svc, _, _ := setupLoanService()
	userID := uuid.New()
	loan, err := svc.CreateLoan(context.Background(), userID, standardLoanInput())
	require.NoError(t, err)
	_, err = svc.AddPayment(context.Background(), userID, loan.ID, paymentOf("10661.85"))
	require.NoError(t, err)

	schedule, err := svc.GetLoanSchedule(context.Background(), userID, loan.ID)
	require.NoError(t, err)
	require.Len(t, schedule, 12)
	assert.True(t, schedule[11].RemainingBalance.IsZero())

	stats, err := svc.GetLoanStats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalLoans)
	assert.Equal(t, int64(1), stats.ActiveLoans)
	assert.Equal(t, "110538.15", stats.TotalOutstanding.StringFixed(2))
	assert.Equal(t, "10661.85", stats.MonthlyEMI.StringFixed(2))
	assert.Equal(t, "1200.00", stats.TotalInterest.StringFixed(2))
}

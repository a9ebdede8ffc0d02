package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingActivator struct {
	calls atomic.Int32
	err   error
}

func (a *countingActivator) ActivateDueLoans(context.Context) (int, error) {
	a.calls.Add(1)
	return 2, a.err
}

func TestLoanActivationWorker_DefaultConfig(t *testing.T) {
	config := DefaultLoanActivationWorkerConfig()
	assert.Equal(t, "5 * * * *", config.Schedule)

	worker, err := NewLoanActivationWorker(&countingActivator{}, zerolog.Nop(), LoanActivationWorkerConfig{})
	require.NoError(t, err)
	assert.Equal(t, "5 * * * *", worker.schedule)
	assert.False(t, worker.IsRunning())
}

func TestLoanActivationWorker_InvalidSchedule(t *testing.T) {
	_, err := NewLoanActivationWorker(&countingActivator{}, zerolog.Nop(), LoanActivationWorkerConfig{Schedule: "every tuesday"})
	assert.Error(t, err)
}

func TestLoanActivationWorker_StartRunsImmediately(t *testing.T) {
	activator := &countingActivator{}
	worker, err := NewLoanActivationWorker(activator, zerolog.Nop(), DefaultLoanActivationWorkerConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, worker.Start(ctx))
	require.NoError(t, worker.Start(ctx)) // idempotent
	assert.True(t, worker.IsRunning())

	assert.Eventually(t, func() bool { return activator.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	worker.Stop()
	assert.False(t, worker.IsRunning())
	worker.Stop() // no-op when stopped
}

func TestLoanActivationWorker_RunOnce(t *testing.T) {
	activator := &countingActivator{}
	worker, err := NewLoanActivationWorker(activator, zerolog.Nop(), DefaultLoanActivationWorkerConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, worker.RunOnce(context.Background()))

	activator.err = errors.New("database unavailable")
	assert.Equal(t, 0, worker.RunOnce(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 0, worker.RunOnce(ctx))
	assert.Equal(t, int32(2), activator.calls.Load())
}

func TestLoanActivationWorker_WithLoanService(t *testing.T) {
	repo := testutil.NewMockLoanRepository()
	loans := NewLoanService(repo, nil)
	loans.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	userID := uuid.New()
	repo.AddLoan(&domain.Loan{
		UserID:    userID,
		Principal: decimal.NewFromInt(1000),
		StartDate: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		Status:    amortization.StatusPending,
	})
	repo.AddLoan(&domain.Loan{
		UserID:    userID,
		Principal: decimal.NewFromInt(1000),
		StartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:    amortization.StatusPending,
	})

	worker, err := NewLoanActivationWorker(loans, zerolog.Nop(), DefaultLoanActivationWorkerConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, worker.RunOnce(context.Background()))
	assert.Equal(t, amortization.StatusActive, repo.Loans[1].Status)
	assert.Equal(t, amortization.StatusPending, repo.Loans[2].Status)
}

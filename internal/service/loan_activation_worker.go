package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// LoanActivator moves pending loans whose start date has arrived to active
type LoanActivator interface {
	ActivateDueLoans(ctx context.Context) (int, error)
}

// LoanActivationWorker is a background worker that activates due loans on a
// cron schedule
type LoanActivationWorker struct {
	activator LoanActivator
	logger    zerolog.Logger
	schedule  string
	cron      *cron.Cron
	mu        sync.Mutex
	running   bool
}

// LoanActivationWorkerConfig holds configuration for the loan activation worker
type LoanActivationWorkerConfig struct {
	Schedule string // Standard 5-field cron spec, evaluated in UTC
}

// DefaultLoanActivationWorkerConfig returns sensible defaults
func DefaultLoanActivationWorkerConfig() LoanActivationWorkerConfig {
	return LoanActivationWorkerConfig{
		Schedule: "5 * * * *", // Every hour, five past
	}
}

// NewLoanActivationWorker creates a new loan activation worker
func NewLoanActivationWorker(activator LoanActivator, logger zerolog.Logger, config LoanActivationWorkerConfig) (*LoanActivationWorker, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultLoanActivationWorkerConfig().Schedule
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("invalid loan activation schedule %q: %w", config.Schedule, err)
	}

	return &LoanActivationWorker{
		activator: activator,
		logger:    logger.With().Str("component", "loan_activation_worker").Logger(),
		schedule:  config.Schedule,
		cron:      cron.New(cron.WithLocation(time.UTC)),
	}, nil
}

// Start runs one activation pass immediately and then schedules the rest
func (w *LoanActivationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if _, err := w.cron.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule loan activation: %w", err)
	}

	w.logger.Info().Str("schedule", w.schedule).Msg("Starting loan activation worker")
	w.running = true
	go w.RunOnce(ctx)
	w.cron.Start()
	return nil
}

// Stop waits for a running pass to finish and stops the schedule
func (w *LoanActivationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping loan activation worker")
	<-w.cron.Stop().Done()
	w.logger.Info().Msg("Loan activation worker stopped")
}

// RunOnce activates every due loan
func (w *LoanActivationWorker) RunOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	startTime := time.Now()
	activated, err := w.activator.ActivateDueLoans(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to activate due loans")
		return 0
	}

	w.logger.Info().
		Int("activated", activated).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed loan activation")
	return activated
}

// IsRunning returns whether the worker is currently running
func (w *LoanActivationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

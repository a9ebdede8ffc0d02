package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/util"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TransactionService handles transaction-related business logic
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	publisher       websocket.EventPublisher
	now             func() time.Time
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(transactionRepo domain.TransactionRepository, publisher websocket.EventPublisher) *TransactionService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &TransactionService{
		transactionRepo: transactionRepo,
		publisher:       publisher,
		now:             time.Now,
	}
}

// CreateTransactionInput holds the input for creating a transaction
type CreateTransactionInput struct {
	Type               domain.TransactionType
	Description        string
	Amount             decimal.Decimal
	Category           domain.Category
	Date               *time.Time
	Notes              *string
	Recurring          bool
	RecurringFrequency *domain.RecurringFrequency
	Tags               []string
}

// UpdateTransactionInput holds a partial edit; nil fields are left unchanged
type UpdateTransactionInput struct {
	Type               *domain.TransactionType
	Description        *string
	Amount             *decimal.Decimal
	Category           *domain.Category
	Date               *time.Time
	Notes              *string
	Recurring          *bool
	RecurringFrequency *domain.RecurringFrequency
	Tags               []string
}

// CreateTransaction creates a new transaction with validation
func (s *TransactionService) CreateTransaction(ctx context.Context, userID uuid.UUID, input CreateTransactionInput) (*domain.Transaction, error) {
	// Default date to now if not provided
	date := s.now().UTC()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	transaction := &domain.Transaction{
		UserID:             userID,
		Type:               input.Type,
		Description:        strings.TrimSpace(input.Description),
		Amount:             input.Amount.Round(2),
		Category:           input.Category,
		Date:               date,
		Notes:              trimOptional(input.Notes),
		Recurring:          input.Recurring,
		RecurringFrequency: input.RecurringFrequency,
		Tags:               normalizeTags(input.Tags),
	}
	if !transaction.Recurring {
		transaction.RecurringFrequency = nil
	}
	if err := transaction.Validate(); err != nil {
		return nil, err
	}

	created, err := s.transactionRepo.Create(ctx, transaction)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int32("transaction_id", created.ID).
		Str("type", string(created.Type)).
		Msg("Transaction created")
	s.publisher.Publish(userID, websocket.TransactionCreated(created))
	return created, nil
}

// GetTransactions retrieves a user's transactions with optional filters and pagination
func (s *TransactionService) GetTransactions(ctx context.Context, userID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters != nil {
		if filters.Type != nil && !filters.Type.Valid() {
			return nil, domain.ErrTransactionTypeInvalid
		}
		if filters.Category != nil && !filters.Category.Valid() {
			return nil, domain.ErrCategoryInvalid
		}
		if filters.StartDate != nil && filters.EndDate != nil && !filters.StartDate.Before(*filters.EndDate) {
			return nil, domain.ErrDateRangeInvalid
		}
	}
	return s.transactionRepo.List(ctx, userID, filters)
}

// GetTransactionByID retrieves a single transaction owned by the user
func (s *TransactionService) GetTransactionByID(ctx context.Context, userID uuid.UUID, id int32) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, userID, id)
}

// GetTransactionsByCategory lists one category, newest first
func (s *TransactionService) GetTransactionsByCategory(ctx context.Context, userID uuid.UUID, category domain.Category, page, pageSize int32) (*domain.PaginatedTransactions, error) {
	if !category.Valid() {
		return nil, domain.ErrCategoryInvalid
	}
	return s.transactionRepo.List(ctx, userID, &domain.TransactionFilters{
		Category: &category,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetTransactionsByDateRange lists transactions dated from startDate through
// endDate, both calendar days inclusive
func (s *TransactionService) GetTransactionsByDateRange(ctx context.Context, userID uuid.UUID, startDate, endDate time.Time) ([]*domain.Transaction, error) {
	start := util.StartOfDay(startDate)
	end := util.StartOfDay(endDate).AddDate(0, 0, 1)
	if !start.Before(end) {
		return nil, domain.ErrDateRangeInvalid
	}
	return s.transactionRepo.ListBetween(ctx, userID, start, end)
}

// UpdateTransaction applies a partial edit and re-validates the result
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID uuid.UUID, id int32, input UpdateTransactionInput) (*domain.Transaction, error) {
	transaction, err := s.transactionRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Type != nil {
		transaction.Type = *input.Type
	}
	if input.Description != nil {
		transaction.Description = strings.TrimSpace(*input.Description)
	}
	if input.Amount != nil {
		transaction.Amount = input.Amount.Round(2)
	}
	if input.Category != nil {
		transaction.Category = *input.Category
	}
	if input.Date != nil {
		transaction.Date = input.Date.UTC()
	}
	if input.Notes != nil {
		transaction.Notes = trimOptional(input.Notes)
	}
	if input.Recurring != nil {
		transaction.Recurring = *input.Recurring
	}
	if input.RecurringFrequency != nil {
		transaction.RecurringFrequency = input.RecurringFrequency
	}
	if !transaction.Recurring {
		transaction.RecurringFrequency = nil
	}
	if input.Tags != nil {
		transaction.Tags = normalizeTags(input.Tags)
	}

	if err := transaction.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.transactionRepo.Update(ctx, transaction)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(userID, websocket.TransactionUpdated(updated))
	return updated, nil
}

// DeleteTransaction removes a transaction
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID uuid.UUID, id int32) error {
	if err := s.transactionRepo.Delete(ctx, userID, id); err != nil {
		return err
	}

	log.Info().Str("user_id", userID.String()).Int32("transaction_id", id).Msg("Transaction deleted")
	s.publisher.Publish(userID, websocket.TransactionDeleted(map[string]interface{}{"id": id}))
	return nil
}

// normalizeTags trims tags and drops blanks and duplicates, keeping order
func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

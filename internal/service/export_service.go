package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/repository/storage"
	"github.com/planpocket/planpocket/planpocket-backend/internal/util"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

const exportURLExpiry = 24 * time.Hour

var exportHeader = []string{
	"date", "type", "category", "description", "amount", "notes", "recurring", "recurringFrequency", "tags",
}

// ExportService writes transaction history to CSV in object storage
type ExportService struct {
	storage         storage.ObjectRepository
	transactionRepo domain.TransactionRepository
	publisher       websocket.EventPublisher
	urlExpiry       time.Duration
	now             func() time.Time
}

// NewExportService creates a new ExportService. A nil store disables exports.
func NewExportService(store storage.ObjectRepository, transactionRepo domain.TransactionRepository, publisher websocket.EventPublisher) *ExportService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &ExportService{
		storage:         store,
		transactionRepo: transactionRepo,
		publisher:       publisher,
		urlExpiry:       exportURLExpiry,
		now:             time.Now,
	}
}

// IsEnabled reports whether object storage is configured
func (s *ExportService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// ExportTransactions uploads every transaction dated from startDate through
// endDate (calendar days, inclusive) and returns a presigned download URL
func (s *ExportService) ExportTransactions(ctx context.Context, userID uuid.UUID, startDate, endDate time.Time) (*domain.TransactionExport, error) {
	if !s.IsEnabled() {
		return nil, ErrStorageNotConfigured
	}

	start := util.StartOfDay(startDate)
	end := util.StartOfDay(endDate).AddDate(0, 0, 1)
	if !start.Before(end) {
		return nil, domain.ErrDateRangeInvalid
	}

	transactions, err := s.transactionRepo.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	data, err := encodeTransactionsCSV(transactions)
	if err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	key := storage.ObjectKey(userID, storage.KindExport, "transactions", ".csv")
	if _, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "text/csv", int64(len(data))); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, err := s.storage.PresignGet(ctx, key, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}

	export := &domain.TransactionExport{
		Key:       key,
		URL:       url,
		Rows:      len(transactions),
		StartDate: start,
		EndDate:   util.StartOfDay(endDate),
		ExpiresAt: s.now().UTC().Add(s.urlExpiry),
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("key", key).
		Int("rows", export.Rows).
		Msg("Transactions exported")
	s.publisher.Publish(userID, websocket.TransactionsExported(export))
	return export, nil
}

func encodeTransactionsCSV(transactions []*domain.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, t := range transactions {
		notes := ""
		if t.Notes != nil {
			notes = *t.Notes
		}
		frequency := ""
		if t.RecurringFrequency != nil {
			frequency = string(*t.RecurringFrequency)
		}
		record := []string{
			t.Date.UTC().Format(util.DateLayout),
			string(t.Type),
			string(t.Category),
			t.Description,
			t.Amount.StringFixed(2),
			notes,
			strconv.FormatBool(t.Recurring),
			frequency,
			strings.Join(t.Tags, ";"),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

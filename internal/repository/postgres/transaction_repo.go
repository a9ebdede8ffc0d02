package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
)

const transactionColumns = `id, user_id, type, description, amount, category, date, notes,
	recurring, recurring_frequency, tags, created_at, updated_at`

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create creates a new transaction
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (user_id, type, description, amount, category, date, notes, recurring, recurring_frequency, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+transactionColumns,
		t.UserID,
		string(t.Type),
		t.Description,
		amount,
		string(t.Category),
		t.Date,
		stringPtrToPgText(t.Notes),
		t.Recurring,
		frequencyToPgText(t.RecurringFrequency),
		tagsOrEmpty(t.Tags),
	)
	return scanTransaction(row)
}

// GetByID retrieves a transaction by its ID for a user
func (r *TransactionRepository) GetByID(ctx context.Context, userID uuid.UUID, id int32) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves a user's transactions with optional filters and pagination,
// newest first
func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	page := int32(1)
	pageSize := int32(domain.DefaultPageSize)
	if filters != nil {
		if filters.Page > 0 {
			page = filters.Page
		}
		if filters.PageSize > 0 {
			pageSize = filters.PageSize
			if pageSize > domain.MaxPageSize {
				pageSize = domain.MaxPageSize
			}
		}
	}
	offset := (page - 1) * pageSize

	where, args := transactionFilterClause(userID, filters)

	var totalItems int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&totalItems); err != nil {
		return nil, err
	}

	args = append(args, pageSize, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)-1, len(args),
	), args...)
	if err != nil {
		return nil, err
	}
	result, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}

	totalPages := int32(totalItems / int64(pageSize))
	if totalItems%int64(pageSize) > 0 {
		totalPages++
	}

	return &domain.PaginatedTransactions{
		Data:       result,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}, nil
}

// ListBetween returns every transaction dated in [start, end), newest first
func (r *TransactionRepository) ListBetween(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date DESC, id DESC`,
		userID, start, end,
	)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// Recent returns the user's latest transactions
func (r *TransactionRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// Update replaces the editable fields of a transaction
func (r *TransactionRepository) Update(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE transactions
		SET type = $3, description = $4, amount = $5, category = $6, date = $7, notes = $8,
			recurring = $9, recurring_frequency = $10, tags = $11, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+transactionColumns,
		t.UserID,
		t.ID,
		string(t.Type),
		t.Description,
		amount,
		string(t.Category),
		t.Date,
		stringPtrToPgText(t.Notes),
		t.Recurring,
		frequencyToPgText(t.RecurringFrequency),
		tagsOrEmpty(t.Tags),
	)
	updated, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a transaction
func (r *TransactionRepository) Delete(ctx context.Context, userID uuid.UUID, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// SumByType totals income and expense in [start, end); nil bounds are open
func (r *TransactionRepository) SumByType(ctx context.Context, userID uuid.UUID, start, end *time.Time) (*domain.TypeTotals, error) {
	var income, expense pgtype.Numeric
	totals := &domain.TypeTotals{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
			COUNT(*) FILTER (WHERE type = 'income'),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0),
			COUNT(*) FILTER (WHERE type = 'expense')
		FROM transactions
		WHERE user_id = $1
			AND ($2::timestamptz IS NULL OR date >= $2)
			AND ($3::timestamptz IS NULL OR date < $3)`,
		userID, timePtrToPgTimestamptz(start), timePtrToPgTimestamptz(end),
	).Scan(&income, &totals.IncomeCount, &expense, &totals.ExpenseCount)
	if err != nil {
		return nil, err
	}
	totals.Income = pgNumericToDecimal(income)
	totals.Expense = pgNumericToDecimal(expense)
	return totals, nil
}

// SumByCategory groups totals by type and category, largest total first
func (r *TransactionRepository) SumByCategory(ctx context.Context, userID uuid.UUID, q domain.CategoryQuery) ([]*domain.CategoryTotal, error) {
	var txType pgtype.Text
	if q.Type != nil {
		txType = pgtype.Text{String: string(*q.Type), Valid: true}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT type, category, SUM(amount), COUNT(*), ROUND(AVG(amount), 2)
		FROM transactions
		WHERE user_id = $1
			AND ($2::timestamptz IS NULL OR date >= $2)
			AND ($3::timestamptz IS NULL OR date < $3)
			AND ($4::text IS NULL OR type = $4)
		GROUP BY type, category
		ORDER BY SUM(amount) DESC, category`,
		userID, timePtrToPgTimestamptz(q.Start), timePtrToPgTimestamptz(q.End), txType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.CategoryTotal
	for rows.Next() {
		var (
			ct            domain.CategoryTotal
			typ, category string
			total, avg    pgtype.Numeric
		)
		if err := rows.Scan(&typ, &category, &total, &ct.Count, &avg); err != nil {
			return nil, err
		}
		ct.Type = domain.TransactionType(typ)
		ct.Category = domain.Category(category)
		ct.Total = pgNumericToDecimal(total)
		ct.Average = pgNumericToDecimal(avg)
		result = append(result, &ct)
	}
	return result, rows.Err()
}

// SumByPeriod buckets income and expense by q.Granularity in UTC. Buckets
// are returned oldest first; a positive q.Limit keeps only the latest ones.
func (r *TransactionRepository) SumByPeriod(ctx context.Context, userID uuid.UUID, q domain.PeriodQuery) ([]*domain.PeriodTotal, error) {
	var limit pgtype.Int8
	if q.Limit > 0 {
		limit = pgtype.Int8{Int64: int64(q.Limit), Valid: true}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT bucket, income, expense, cnt FROM (
			SELECT
				date_trunc($2::text, date AT TIME ZONE 'UTC') AS bucket,
				COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0) AS income,
				COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0) AS expense,
				COUNT(*) AS cnt
			FROM transactions
			WHERE user_id = $1
				AND ($3::timestamptz IS NULL OR date >= $3)
				AND ($4::timestamptz IS NULL OR date < $4)
			GROUP BY bucket
			ORDER BY bucket DESC
			LIMIT $5
		) b
		ORDER BY bucket ASC`,
		userID, string(q.Granularity), timePtrToPgTimestamptz(q.Start), timePtrToPgTimestamptz(q.End), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.PeriodTotal
	for rows.Next() {
		var (
			pt              domain.PeriodTotal
			bucket          pgtype.Timestamp
			income, expense pgtype.Numeric
		)
		if err := rows.Scan(&bucket, &income, &expense, &pt.TransactionCount); err != nil {
			return nil, err
		}
		pt.PeriodStart = bucket.Time.UTC()
		pt.Income = pgNumericToDecimal(income)
		pt.Expense = pgNumericToDecimal(expense)
		result = append(result, &pt)
	}
	return result, rows.Err()
}

func transactionFilterClause(userID uuid.UUID, filters *domain.TransactionFilters) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filters != nil {
		if filters.Type != nil {
			add("type = $%d", string(*filters.Type))
		}
		if filters.Category != nil {
			add("category = $%d", string(*filters.Category))
		}
		if filters.StartDate != nil {
			add("date >= $%d", *filters.StartDate)
		}
		if filters.EndDate != nil {
			add("date < $%d", *filters.EndDate)
		}
	}
	return strings.Join(conds, " AND "), args
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()

	result := make([]*domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                domain.Transaction
		typ, category    string
		amount           pgtype.Numeric
		notes, frequency pgtype.Text
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&typ,
		&t.Description,
		&amount,
		&category,
		&t.Date,
		&notes,
		&t.Recurring,
		&frequency,
		&t.Tags,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Type = domain.TransactionType(typ)
	t.Category = domain.Category(category)
	t.Amount = pgNumericToDecimal(amount)
	t.Notes = pgTextToStringPtr(notes)
	if frequency.Valid {
		f := domain.RecurringFrequency(frequency.String)
		t.RecurringFrequency = &f
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

func frequencyToPgText(f *domain.RecurringFrequency) pgtype.Text {
	if f == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*f), Valid: true}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func timePtrToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrTransactionTypeInvalid    = errors.New("transaction type must be income or expense")
	ErrDescriptionRequired       = errors.New("please add a description")
	ErrDescriptionTooLong        = errors.New("description cannot be more than 200 characters")
	ErrTransactionAmountInvalid  = errors.New("amount must be greater than 0")
	ErrCategoryInvalid           = errors.New("please select a valid category")
	ErrNotesTooLong              = errors.New("notes cannot be more than 500 characters")
	ErrRecurringFrequencyInvalid = errors.New("recurring transactions need a daily, weekly, monthly or yearly frequency")
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type Category string

// Income categories
const (
	CategorySalary      Category = "salary"
	CategoryBusiness    Category = "business"
	CategoryInvestment  Category = "investment"
	CategoryFreelance   Category = "freelance"
	CategoryBonus       Category = "bonus"
	CategoryOtherIncome Category = "other-income"
)

// Expense categories
const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryUtilities      Category = "utilities"
	CategoryEntertainment  Category = "entertainment"
	CategoryHealthcare     Category = "healthcare"
	CategoryShopping       Category = "shopping"
	CategoryEducation      Category = "education"
	CategoryTravel         Category = "travel"
	CategoryInsurance      Category = "insurance"
	CategoryRent           Category = "rent"
	CategoryGroceries      Category = "groceries"
	CategoryFuel           Category = "fuel"
	CategoryMaintenance    Category = "maintenance"
	CategorySubscriptions  Category = "subscriptions"
	CategoryCharity        Category = "charity"
	CategoryOtherExpense   Category = "other-expense"
)

var validCategories = map[Category]bool{
	CategorySalary: true, CategoryBusiness: true, CategoryInvestment: true,
	CategoryFreelance: true, CategoryBonus: true, CategoryOtherIncome: true,
	CategoryFood: true, CategoryTransportation: true, CategoryUtilities: true,
	CategoryEntertainment: true, CategoryHealthcare: true, CategoryShopping: true,
	CategoryEducation: true, CategoryTravel: true, CategoryInsurance: true,
	CategoryRent: true, CategoryGroceries: true, CategoryFuel: true,
	CategoryMaintenance: true, CategorySubscriptions: true, CategoryCharity: true,
	CategoryOtherExpense: true,
}

func (c Category) Valid() bool {
	return validCategories[c]
}

type RecurringFrequency string

const (
	FrequencyDaily   RecurringFrequency = "daily"
	FrequencyWeekly  RecurringFrequency = "weekly"
	FrequencyMonthly RecurringFrequency = "monthly"
	FrequencyYearly  RecurringFrequency = "yearly"
)

func (f RecurringFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

type Transaction struct {
	ID                 int32               `json:"id"`
	UserID             uuid.UUID           `json:"userId"`
	Type               TransactionType     `json:"type"`
	Description        string              `json:"description"`
	Amount             decimal.Decimal     `json:"amount"`
	Category           Category            `json:"category"`
	Date               time.Time           `json:"date"`
	Notes              *string             `json:"notes,omitempty"`
	Recurring          bool                `json:"recurring"`
	RecurringFrequency *RecurringFrequency `json:"recurringFrequency,omitempty"`
	Tags               []string            `json:"tags"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrTransactionTypeInvalid
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrDescriptionRequired
	}
	if len([]rune(desc)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !t.Amount.IsPositive() {
		return ErrTransactionAmountInvalid
	}
	if !t.Category.Valid() {
		return ErrCategoryInvalid
	}
	if t.Notes != nil && len([]rune(*t.Notes)) > MaxNotesLength {
		return ErrNotesTooLong
	}
	if t.Recurring && (t.RecurringFrequency == nil || !t.RecurringFrequency.Valid()) {
		return ErrRecurringFrequencyInvalid
	}
	if t.RecurringFrequency != nil && !t.RecurringFrequency.Valid() {
		return ErrRecurringFrequencyInvalid
	}
	return nil
}

type TransactionFilters struct {
	Type      *TransactionType
	Category  *Category
	StartDate *time.Time
	EndDate   *time.Time
	Page      int32
	PageSize  int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
	TotalPages int32          `json:"totalPages"`
}

// Granularity is the bucket width of a period aggregation.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// PeriodQuery selects buckets of [Start, End). A positive Limit keeps only the
// latest Limit non-empty buckets.
type PeriodQuery struct {
	Granularity Granularity
	Start       *time.Time
	End         *time.Time
	Limit       int
}

// PeriodTotal is income and expense summed over one bucket. PeriodStart is
// the bucket's first instant in UTC.
type PeriodTotal struct {
	PeriodStart      time.Time       `json:"periodStart"`
	Income           decimal.Decimal `json:"income"`
	Expense          decimal.Decimal `json:"expense"`
	TransactionCount int64           `json:"transactionCount"`
}

type CategoryQuery struct {
	Start *time.Time
	End   *time.Time
	Type  *TransactionType
}

type CategoryTotal struct {
	Type     TransactionType `json:"type"`
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
	Average  decimal.Decimal `json:"average"`
}

// TypeTotals sums transactions per type over a range.
type TypeTotals struct {
	Income       decimal.Decimal `json:"income"`
	IncomeCount  int64           `json:"incomeCount"`
	Expense      decimal.Decimal `json:"expense"`
	ExpenseCount int64           `json:"expenseCount"`
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) (*Transaction, error)
	GetByID(ctx context.Context, userID uuid.UUID, id int32) (*Transaction, error)
	List(ctx context.Context, userID uuid.UUID, filters *TransactionFilters) (*PaginatedTransactions, error)
	ListBetween(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*Transaction, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error)
	Update(ctx context.Context, transaction *Transaction) (*Transaction, error)
	Delete(ctx context.Context, userID uuid.UUID, id int32) error
	SumByType(ctx context.Context, userID uuid.UUID, start, end *time.Time) (*TypeTotals, error)
	SumByCategory(ctx context.Context, userID uuid.UUID, q CategoryQuery) ([]*CategoryTotal, error)
	SumByPeriod(ctx context.Context, userID uuid.UUID, q PeriodQuery) ([]*PeriodTotal, error)
}

package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPeriodInvalid    = errors.New("invalid period. Use monthly, quarterly, or yearly")
	ErrTrendInvalid     = errors.New("invalid period. Use daily, weekly, or monthly")
	ErrMonthInvalid     = errors.New("month must be between 1 and 12")
	ErrYearInvalid      = errors.New("year is out of range")
	ErrDateRangeInvalid = errors.New("start date must be before end date")
)

const (
	RecentTransactionLimit = 5
	DefaultTrendLimit      = 12
	MaxTrendLimit          = 120
)

type TypeCounts struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
}

type PeriodSummary struct {
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	TransactionCount TypeCounts      `json:"transactionCount"`
}

type CurrentMonthSummary struct {
	PeriodSummary
	BudgetUtilization decimal.Decimal `json:"budgetUtilization"`
	Remaining         decimal.Decimal `json:"remaining"`
}

type LoanSummary struct {
	TotalPrincipal        decimal.Decimal `json:"totalLoanAmount"`
	TotalRemainingBalance decimal.Decimal `json:"totalRemainingBalance"`
	TotalMonthlyEMI       decimal.Decimal `json:"totalMonthlyEMI"`
	ActiveLoans           int64           `json:"activeLoans"`
}

type SummaryUser struct {
	FullName      string          `json:"fullName"`
	Email         string          `json:"email"`
	AnnualIncome  decimal.Decimal `json:"annualIncome"`
	MonthlyIncome decimal.Decimal `json:"monthlyIncome"`
}

// FinancialSummary is the overview returned by GET /summary
type FinancialSummary struct {
	User               SummaryUser         `json:"user"`
	CurrentMonth       CurrentMonthSummary `json:"currentMonth"`
	AllTime            PeriodSummary       `json:"allTime"`
	Loans              LoanSummary         `json:"loans"`
	RecentTransactions []*Transaction      `json:"recentTransactions"`
}

type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int64           `json:"count"`
}

type TypeBreakdown struct {
	Type       TransactionType  `json:"type"`
	Categories []CategoryAmount `json:"categories"`
	Total      decimal.Decimal  `json:"total"`
}

type DailyAmount struct {
	Day     int             `json:"day"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type MonthlyAnalysis struct {
	Year              int             `json:"year"`
	Month             int             `json:"month"`
	Transactions      []*Transaction  `json:"transactions"`
	CategoryBreakdown []TypeBreakdown `json:"categoryBreakdown"`
	DailyBreakdown    []DailyAmount   `json:"dailyBreakdown"`
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	TransactionCount  int             `json:"transactionCount"`
}

type MonthAmount struct {
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type YearlyAnalysis struct {
	Year                  int              `json:"year"`
	MonthlyBreakdown      []MonthAmount    `json:"monthlyBreakdown"`
	YearlyCategories      []*CategoryTotal `json:"yearlyCategories"`
	TotalIncome           decimal.Decimal  `json:"totalIncome"`
	TotalExpenses         decimal.Decimal  `json:"totalExpenses"`
	NetAmount             decimal.Decimal  `json:"netAmount"`
	AverageMonthlyIncome  decimal.Decimal  `json:"averageMonthlyIncome"`
	AverageMonthlyExpense decimal.Decimal  `json:"averageMonthlyExpense"`
}

type CategoryBreakdown struct {
	Categories []*CategoryTotal `json:"categories"`
	StartDate  *time.Time       `json:"startDate,omitempty"`
	EndDate    *time.Time       `json:"endDate,omitempty"`
	Type       *TransactionType `json:"type,omitempty"`
}

// TrendPeriod is the bucket width accepted by spending trends.
type TrendPeriod string

const (
	TrendDaily   TrendPeriod = "daily"
	TrendWeekly  TrendPeriod = "weekly"
	TrendMonthly TrendPeriod = "monthly"
)

func (p TrendPeriod) Granularity() (Granularity, bool) {
	switch p {
	case TrendDaily:
		return GranularityDay, true
	case TrendWeekly:
		return GranularityWeek, true
	case TrendMonthly:
		return GranularityMonth, true
	}
	return "", false
}

type SpendingTrends struct {
	Period        TrendPeriod     `json:"period"`
	Trends        []*PeriodTotal  `json:"trends"`
	Periods       int             `json:"periods"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
}

// CashFlowPeriod is the bucket width accepted by cash flow analysis.
type CashFlowPeriod string

const (
	CashFlowMonthly   CashFlowPeriod = "monthly"
	CashFlowQuarterly CashFlowPeriod = "quarterly"
	CashFlowYearly    CashFlowPeriod = "yearly"
)

type CashFlowEntry struct {
	PeriodStart    time.Time       `json:"periodStart"`
	Label          string          `json:"label"`
	Income         decimal.Decimal `json:"income"`
	Expense        decimal.Decimal `json:"expense"`
	NetCashFlow    decimal.Decimal `json:"netCashFlow"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
}

type CashFlow struct {
	Period           CashFlowPeriod  `json:"period"`
	Entries          []CashFlowEntry `json:"cashFlow"`
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	TotalNetCashFlow decimal.Decimal `json:"totalNetCashFlow"`
	FinalBalance     decimal.Decimal `json:"finalBalance"`
}

// TransactionExport describes an uploaded CSV export.
type TransactionExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	ExpiresAt time.Time `json:"expiresAt"`
}

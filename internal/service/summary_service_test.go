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

var summaryClock = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func setupSummaryService(t *testing.T) (*SummaryService, *testutil.MockTransactionRepository, *testutil.MockLoanRepository, uuid.UUID) {
	t.Helper()
	userRepo := testutil.NewMockUserRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	loanRepo := testutil.NewMockLoanRepository()

	userID := uuid.New()
	userRepo.AddUser(&domain.User{
		ID:            userID,
		FullName:      "Asha Perera",
		Email:         "asha@example.com",
		AnnualIncome:  decimal.NewFromInt(60000),
		MonthlyIncome: decimal.NewFromInt(5000),
	})

	add := func(typ domain.TransactionType, category domain.Category, amount int64, date time.Time) {
		transactionRepo.AddTransaction(&domain.Transaction{
			UserID:      userID,
			Type:        typ,
			Description: string(category),
			Amount:      decimal.NewFromInt(amount),
			Category:    category,
			Date:        date,
			Tags:        []string{},
		})
	}
	add(domain.TransactionTypeIncome, domain.CategorySalary, 5000, day(2024, 3, 1))
	add(domain.TransactionTypeExpense, domain.CategoryFood, 200, day(2024, 3, 5))
	add(domain.TransactionTypeExpense, domain.CategoryTransportation, 50, day(2024, 3, 5))
	add(domain.TransactionTypeExpense, domain.CategoryFood, 300, day(2024, 2, 10))
	add(domain.TransactionTypeIncome, domain.CategoryFreelance, 1000, day(2023, 12, 31))

	// Another user's data must never leak into aggregates
	transactionRepo.AddTransaction(&domain.Transaction{
		UserID:   uuid.New(),
		Type:     domain.TransactionTypeExpense,
		Amount:   decimal.NewFromInt(999),
		Category: domain.CategoryRent,
		Date:     day(2024, 3, 2),
	})

	svc := NewSummaryService(userRepo, transactionRepo, loanRepo)
	svc.now = func() time.Time { return summaryClock }
	return svc, transactionRepo, loanRepo, userID
}

func assertDec(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestSummaryService_GetFinancialSummary(t *testing.T) {
	svc, _, loanRepo, userID := setupSummaryService(t)
	loanRepo.AddLoan(&domain.Loan{
		UserID:             userID,
		Principal:          decimal.NewFromInt(24000),
		MonthlyInstallment: decimal.NewFromInt(1000),
		RemainingBalance:   decimal.NewFromInt(20000),
		Status:             amortization.StatusActive,
	})

	summary, err := svc.GetFinancialSummary(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, "Asha Perera", summary.User.FullName)
	assertDec(t, "5000", summary.CurrentMonth.Income)
	assertDec(t, "250", summary.CurrentMonth.Expenses)
	assertDec(t, "4750", summary.CurrentMonth.NetAmount)
	assert.Equal(t, int64(1), summary.CurrentMonth.TransactionCount.Income)
	assert.Equal(t, int64(2), summary.CurrentMonth.TransactionCount.Expense)
	assertDec(t, "5", summary.CurrentMonth.BudgetUtilization)
	assertDec(t, "4750", summary.CurrentMonth.Remaining)

	assertDec(t, "6000", summary.AllTime.Income)
	assertDec(t, "550", summary.AllTime.Expenses)

	assertDec(t, "24000", summary.Loans.TotalPrincipal)
	assertDec(t, "20000", summary.Loans.TotalRemainingBalance)
	assertDec(t, "1000", summary.Loans.TotalMonthlyEMI)
	assert.Equal(t, int64(1), summary.Loans.ActiveLoans)

	require.Len(t, summary.RecentTransactions, domain.RecentTransactionLimit)
	assert.Equal(t, domain.CategoryTransportation, summary.RecentTransactions[0].Category)
	assert.Equal(t, domain.CategoryFreelance, summary.RecentTransactions[4].Category)
}

func TestSummaryService_GetFinancialSummary_NoIncome(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)
	user, _ := svc.userRepo.GetByID(context.Background(), userID)
	user.MonthlyIncome = decimal.Zero

	summary, err := svc.GetFinancialSummary(context.Background(), userID)
	require.NoError(t, err)
	assertDec(t, "0", summary.CurrentMonth.BudgetUtilization)
	assertDec(t, "-250", summary.CurrentMonth.Remaining)
}

func TestSummaryService_GetMonthlyAnalysis(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)

	analysis, err := svc.GetMonthlyAnalysis(context.Background(), userID, 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, analysis.TransactionCount)
	assertDec(t, "5000", analysis.TotalIncome)
	assertDec(t, "250", analysis.TotalExpenses)

	require.Len(t, analysis.CategoryBreakdown, 2)
	income := analysis.CategoryBreakdown[0]
	assert.Equal(t, domain.TransactionTypeIncome, income.Type)
	assertDec(t, "5000", income.Total)
	expense := analysis.CategoryBreakdown[1]
	require.Len(t, expense.Categories, 2)
	assert.Equal(t, domain.CategoryFood, expense.Categories[0].Category)
	assert.Equal(t, domain.CategoryTransportation, expense.Categories[1].Category)
	assertDec(t, "250", expense.Total)

	require.Len(t, analysis.DailyBreakdown, 2)
	assert.Equal(t, 1, analysis.DailyBreakdown[0].Day)
	assertDec(t, "5000", analysis.DailyBreakdown[0].Income)
	assert.Equal(t, 5, analysis.DailyBreakdown[1].Day)
	assertDec(t, "250", analysis.DailyBreakdown[1].Expense)
}

func TestSummaryService_GetMonthlyAnalysis_InvalidInput(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)

	_, err := svc.GetMonthlyAnalysis(context.Background(), userID, 2024, 13)
	assert.ErrorIs(t, err, domain.ErrMonthInvalid)

	_, err = svc.GetMonthlyAnalysis(context.Background(), userID, 0, 1)
	assert.ErrorIs(t, err, domain.ErrYearInvalid)
}

func TestSummaryService_GetYearlyAnalysis(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)

	analysis, err := svc.GetYearlyAnalysis(context.Background(), userID, 2024)
	require.NoError(t, err)

	require.Len(t, analysis.MonthlyBreakdown, 12)
	assert.Equal(t, 1, analysis.MonthlyBreakdown[0].Month)
	assertDec(t, "0", analysis.MonthlyBreakdown[0].Income)
	assertDec(t, "300", analysis.MonthlyBreakdown[1].Expense)
	assertDec(t, "5000", analysis.MonthlyBreakdown[2].Income)
	assertDec(t, "250", analysis.MonthlyBreakdown[2].Expense)

	assertDec(t, "5000", analysis.TotalIncome)
	assertDec(t, "550", analysis.TotalExpenses)
	assertDec(t, "4450", analysis.NetAmount)
	assertDec(t, "416.67", analysis.AverageMonthlyIncome)
	assertDec(t, "45.83", analysis.AverageMonthlyExpense)

	require.Len(t, analysis.YearlyCategories, 3)
	assert.Equal(t, domain.CategorySalary, analysis.YearlyCategories[0].Category)
	food := analysis.YearlyCategories[1]
	assert.Equal(t, domain.CategoryFood, food.Category)
	assert.Equal(t, int64(2), food.Count)
	assertDec(t, "250", food.Average)
}

func TestSummaryService_GetCategoryBreakdown(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)
	start, end := day(2024, 3, 1), day(2024, 3, 5)
	expense := domain.TransactionTypeExpense

	breakdown, err := svc.GetCategoryBreakdown(context.Background(), userID, &start, &end, &expense)
	require.NoError(t, err)
	require.Len(t, breakdown.Categories, 2)
	assert.Equal(t, domain.CategoryFood, breakdown.Categories[0].Category)
	assertDec(t, "200", breakdown.Categories[0].Total)

	all, err := svc.GetCategoryBreakdown(context.Background(), userID, nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all.Categories, 4)

	_, err = svc.GetCategoryBreakdown(context.Background(), userID, &end, &start, nil)
	assert.ErrorIs(t, err, domain.ErrDateRangeInvalid)

	bogus := domain.TransactionType("transfer")
	_, err = svc.GetCategoryBreakdown(context.Background(), userID, nil, nil, &bogus)
	assert.ErrorIs(t, err, domain.ErrTransactionTypeInvalid)
}

func TestSummaryService_GetSpendingTrends(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)

	trends, err := svc.GetSpendingTrends(context.Background(), userID, domain.TrendMonthly, 2)
	require.NoError(t, err)
	require.Equal(t, 2, trends.Periods)
	assert.Equal(t, day(2024, 2, 1), trends.Trends[0].PeriodStart)
	assert.Equal(t, day(2024, 3, 1), trends.Trends[1].PeriodStart)
	assertDec(t, "5000", trends.TotalIncome)
	assertDec(t, "550", trends.TotalExpenses)

	weekly, err := svc.GetSpendingTrends(context.Background(), userID, domain.TrendWeekly, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, weekly.Periods)
	assert.Equal(t, day(2024, 3, 4), weekly.Trends[3].PeriodStart)

	_, err = svc.GetSpendingTrends(context.Background(), userID, "hourly", 5)
	assert.ErrorIs(t, err, domain.ErrTrendInvalid)
}

func TestSummaryService_GetSpendingTrends_ClampsLimit(t *testing.T) {
	svc, transactionRepo, _, userID := setupSummaryService(t)
	var got domain.PeriodQuery
	transactionRepo.SumByPeriodFn = func(_ uuid.UUID, q domain.PeriodQuery) ([]*domain.PeriodTotal, error) {
		got = q
		return nil, nil
	}

	trends, err := svc.GetSpendingTrends(context.Background(), userID, domain.TrendDaily, 10000)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTrendLimit, got.Limit)
	assert.Equal(t, domain.GranularityDay, got.Granularity)
	assert.NotNil(t, trends.Trends)
	assert.Equal(t, 0, trends.Periods)
}

func TestSummaryService_GetCashFlow_Monthly(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)

	flow, err := svc.GetCashFlow(context.Background(), userID, domain.CashFlowMonthly)
	require.NoError(t, err)

	require.Len(t, flow.Entries, 12)
	assert.Equal(t, "2023-04", flow.Entries[0].Label)
	assert.Equal(t, "2024-03", flow.Entries[11].Label)
	assertDec(t, "0", flow.Entries[0].RunningBalance)
	assertDec(t, "1000", flow.Entries[8].NetCashFlow)
	assertDec(t, "1000", flow.Entries[9].RunningBalance)
	assertDec(t, "-300", flow.Entries[10].NetCashFlow)
	assertDec(t, "700", flow.Entries[10].RunningBalance)
	assertDec(t, "5450", flow.Entries[11].RunningBalance)
	assertDec(t, "5450", flow.FinalBalance)
	assertDec(t, "5450", flow.TotalNetCashFlow)
}

func TestSummaryService_GetCashFlow_QuarterlyAndYearly(t *testing.T) {
	svc, _, _, userID := setupSummaryService(t)

	quarterly, err := svc.GetCashFlow(context.Background(), userID, domain.CashFlowQuarterly)
	require.NoError(t, err)
	require.Len(t, quarterly.Entries, 9)
	assert.Equal(t, "2022-Q1", quarterly.Entries[0].Label)
	assert.Equal(t, "2023-Q4", quarterly.Entries[7].Label)
	assertDec(t, "1000", quarterly.Entries[7].Income)
	assert.Equal(t, "2024-Q1", quarterly.Entries[8].Label)
	assertDec(t, "4450", quarterly.Entries[8].NetCashFlow)
	assertDec(t, "5450", quarterly.FinalBalance)

	yearly, err := svc.GetCashFlow(context.Background(), userID, domain.CashFlowYearly)
	require.NoError(t, err)
	require.Len(t, yearly.Entries, 5)
	assert.Equal(t, "2020", yearly.Entries[0].Label)
	assert.Equal(t, "2024", yearly.Entries[4].Label)
	assertDec(t, "5450", yearly.FinalBalance)

	_, err = svc.GetCashFlow(context.Background(), userID, "weekly")
	assert.ErrorIs(t, err, domain.ErrPeriodInvalid)
}

func TestSummaryService_GetDashboard(t *testing.T) {
	svc, _, loanRepo, userID := setupSummaryService(t)
	loanRepo.AddLoan(&domain.Loan{
		UserID:             userID,
		Principal:          decimal.NewFromInt(24000),
		MonthlyInstallment: decimal.NewFromInt(1000),
		RemainingBalance:   decimal.NewFromInt(20000),
		Status:             amortization.StatusActive,
	})

	metrics, err := svc.GetDashboard(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, domain.DashboardWindowDays, metrics.WindowDays)
	assertDec(t, "5000", metrics.Income)
	assertDec(t, "250", metrics.Expenses)
	assertDec(t, "1000", metrics.TotalLoanInstallment)
	assertDec(t, "20000", metrics.OutstandingDebt)
	assertDec(t, "3750", metrics.NetCashFlow)
	assertDec(t, "20", metrics.DebtToIncomeRatio)
	assertDec(t, "75", metrics.SavingsRate)
	assertDec(t, "4750", metrics.Remaining)
	assertDec(t, "5", metrics.BudgetUsedPercent)
}

func TestDashboardMetrics_NoIncome(t *testing.T) {
	m := DashboardMetrics(decimal.Zero, decimal.NewFromInt(400), decimal.NewFromInt(100), decimal.Zero)

	assertDec(t, "-500", m.NetCashFlow)
	assertDec(t, "0", m.DebtToIncomeRatio)
	assertDec(t, "0", m.SavingsRate)
	assertDec(t, "0", m.BudgetUsedPercent)
	assertDec(t, "0", m.Remaining)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/util"
	"github.com/shopspring/decimal"
)

const (
	minYear = 1900
	maxYear = 9999

	cashFlowMonths   = 12
	cashFlowQuarters = 3 // years of quarters
	cashFlowYears    = 5
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// SummaryService builds read-only financial aggregations
type SummaryService struct {
	userRepo        domain.UserRepository
	transactionRepo domain.TransactionRepository
	loanRepo        domain.LoanRepository
	now             func() time.Time
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(userRepo domain.UserRepository, transactionRepo domain.TransactionRepository, loanRepo domain.LoanRepository) *SummaryService {
	return &SummaryService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		loanRepo:        loanRepo,
		now:             time.Now,
	}
}

// GetFinancialSummary returns the current month, all-time totals, the loan
// position and the latest transactions
func (s *SummaryService) GetFinancialSummary(ctx context.Context, userID uuid.UUID) (*domain.FinancialSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	monthStart, monthEnd := util.MonthRange(now.Year(), now.Month())
	current, err := s.transactionRepo.SumByType(ctx, userID, &monthStart, &monthEnd)
	if err != nil {
		return nil, err
	}
	allTime, err := s.transactionRepo.SumByType(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	stats, err := s.loanRepo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.transactionRepo.Recent(ctx, userID, domain.RecentTransactionLimit)
	if err != nil {
		return nil, err
	}

	utilization := decimal.Zero
	if user.MonthlyIncome.IsPositive() {
		utilization = current.Expense.Div(user.MonthlyIncome).Mul(hundred).Round(0)
	}

	return &domain.FinancialSummary{
		User: domain.SummaryUser{
			FullName:      user.FullName,
			Email:         user.Email,
			AnnualIncome:  user.AnnualIncome,
			MonthlyIncome: user.MonthlyIncome,
		},
		CurrentMonth: domain.CurrentMonthSummary{
			PeriodSummary:     periodSummary(current),
			BudgetUtilization: utilization,
			Remaining:         user.MonthlyIncome.Sub(current.Expense),
		},
		AllTime: periodSummary(allTime),
		Loans: domain.LoanSummary{
			TotalPrincipal:        stats.TotalPrincipal,
			TotalRemainingBalance: stats.TotalOutstanding,
			TotalMonthlyEMI:       stats.MonthlyEMI,
			ActiveLoans:           stats.ActiveLoans,
		},
		RecentTransactions: recent,
	}, nil
}

func periodSummary(t *domain.TypeTotals) domain.PeriodSummary {
	return domain.PeriodSummary{
		Income:    t.Income,
		Expenses:  t.Expense,
		NetAmount: t.Income.Sub(t.Expense),
		TransactionCount: domain.TypeCounts{
			Income:  t.IncomeCount,
			Expense: t.ExpenseCount,
		},
	}
}

// GetMonthlyAnalysis breaks one calendar month down by category and by day
func (s *SummaryService) GetMonthlyAnalysis(ctx context.Context, userID uuid.UUID, year, month int) (*domain.MonthlyAnalysis, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, domain.ErrMonthInvalid
	}

	start, end := util.MonthRange(year, time.Month(month))
	transactions, err := s.transactionRepo.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	analysis := &domain.MonthlyAnalysis{
		Year:             year,
		Month:            month,
		Transactions:     transactions,
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TransactionCount: len(transactions),
	}

	byType := map[domain.TransactionType]map[domain.Category]*domain.CategoryAmount{}
	byDay := map[int]*domain.DailyAmount{}
	for _, t := range transactions {
		cats, ok := byType[t.Type]
		if !ok {
			cats = map[domain.Category]*domain.CategoryAmount{}
			byType[t.Type] = cats
		}
		ca, ok := cats[t.Category]
		if !ok {
			ca = &domain.CategoryAmount{Category: t.Category, Amount: decimal.Zero}
			cats[t.Category] = ca
		}
		ca.Amount = ca.Amount.Add(t.Amount)
		ca.Count++

		day := t.Date.UTC().Day()
		da, ok := byDay[day]
		if !ok {
			da = &domain.DailyAmount{Day: day, Income: decimal.Zero, Expense: decimal.Zero}
			byDay[day] = da
		}
		if t.Type == domain.TransactionTypeIncome {
			da.Income = da.Income.Add(t.Amount)
			analysis.TotalIncome = analysis.TotalIncome.Add(t.Amount)
		} else {
			da.Expense = da.Expense.Add(t.Amount)
			analysis.TotalExpenses = analysis.TotalExpenses.Add(t.Amount)
		}
	}

	analysis.CategoryBreakdown = make([]domain.TypeBreakdown, 0, len(byType))
	for _, typ := range []domain.TransactionType{domain.TransactionTypeIncome, domain.TransactionTypeExpense} {
		cats, ok := byType[typ]
		if !ok {
			continue
		}
		tb := domain.TypeBreakdown{Type: typ, Total: decimal.Zero}
		for _, ca := range cats {
			tb.Categories = append(tb.Categories, *ca)
			tb.Total = tb.Total.Add(ca.Amount)
		}
		sort.Slice(tb.Categories, func(i, j int) bool {
			if c := tb.Categories[i].Amount.Cmp(tb.Categories[j].Amount); c != 0 {
				return c > 0
			}
			return tb.Categories[i].Category < tb.Categories[j].Category
		})
		analysis.CategoryBreakdown = append(analysis.CategoryBreakdown, tb)
	}

	analysis.DailyBreakdown = make([]domain.DailyAmount, 0, len(byDay))
	for _, da := range byDay {
		analysis.DailyBreakdown = append(analysis.DailyBreakdown, *da)
	}
	sort.Slice(analysis.DailyBreakdown, func(i, j int) bool {
		return analysis.DailyBreakdown[i].Day < analysis.DailyBreakdown[j].Day
	})

	return analysis, nil
}

// GetYearlyAnalysis returns per-month totals, category totals and monthly
// averages for a calendar year
func (s *SummaryService) GetYearlyAnalysis(ctx context.Context, userID uuid.UUID, year int) (*domain.YearlyAnalysis, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	start, end := util.YearRange(year)
	periods, err := s.transactionRepo.SumByPeriod(ctx, userID, domain.PeriodQuery{
		Granularity: domain.GranularityMonth,
		Start:       &start,
		End:         &end,
	})
	if err != nil {
		return nil, err
	}
	categories, err := s.transactionRepo.SumByCategory(ctx, userID, domain.CategoryQuery{Start: &start, End: &end})
	if err != nil {
		return nil, err
	}

	analysis := &domain.YearlyAnalysis{
		Year:             year,
		MonthlyBreakdown: make([]domain.MonthAmount, 12),
		YearlyCategories: categories,
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
	}
	for i := range analysis.MonthlyBreakdown {
		analysis.MonthlyBreakdown[i] = domain.MonthAmount{Month: i + 1, Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, p := range periods {
		m := &analysis.MonthlyBreakdown[int(p.PeriodStart.Month())-1]
		m.Income = m.Income.Add(p.Income)
		m.Expense = m.Expense.Add(p.Expense)
		analysis.TotalIncome = analysis.TotalIncome.Add(p.Income)
		analysis.TotalExpenses = analysis.TotalExpenses.Add(p.Expense)
	}
	if analysis.YearlyCategories == nil {
		analysis.YearlyCategories = []*domain.CategoryTotal{}
	}

	analysis.NetAmount = analysis.TotalIncome.Sub(analysis.TotalExpenses)
	analysis.AverageMonthlyIncome = analysis.TotalIncome.Div(twelve).Round(2)
	analysis.AverageMonthlyExpense = analysis.TotalExpenses.Div(twelve).Round(2)
	return analysis, nil
}

// GetCategoryBreakdown totals each category, largest first. start and end
// are calendar days, both inclusive; either may be nil.
func (s *SummaryService) GetCategoryBreakdown(ctx context.Context, userID uuid.UUID, start, end *time.Time, txType *domain.TransactionType) (*domain.CategoryBreakdown, error) {
	if txType != nil && !txType.Valid() {
		return nil, domain.ErrTransactionTypeInvalid
	}

	q := domain.CategoryQuery{Type: txType}
	if start != nil {
		from := util.StartOfDay(*start)
		q.Start = &from
	}
	if end != nil {
		until := util.StartOfDay(*end).AddDate(0, 0, 1)
		q.End = &until
	}
	if q.Start != nil && q.End != nil && !q.Start.Before(*q.End) {
		return nil, domain.ErrDateRangeInvalid
	}

	categories, err := s.transactionRepo.SumByCategory(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []*domain.CategoryTotal{}
	}
	return &domain.CategoryBreakdown{
		Categories: categories,
		StartDate:  start,
		EndDate:    end,
		Type:       txType,
	}, nil
}

// GetSpendingTrends returns the latest limit non-empty periods, oldest first
func (s *SummaryService) GetSpendingTrends(ctx context.Context, userID uuid.UUID, period domain.TrendPeriod, limit int) (*domain.SpendingTrends, error) {
	granularity, ok := period.Granularity()
	if !ok {
		return nil, domain.ErrTrendInvalid
	}
	if limit <= 0 {
		limit = domain.DefaultTrendLimit
	}
	if limit > domain.MaxTrendLimit {
		limit = domain.MaxTrendLimit
	}

	periods, err := s.transactionRepo.SumByPeriod(ctx, userID, domain.PeriodQuery{
		Granularity: granularity,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []*domain.PeriodTotal{}
	}

	trends := &domain.SpendingTrends{
		Period:        period,
		Trends:        periods,
		Periods:       len(periods),
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, p := range periods {
		trends.TotalIncome = trends.TotalIncome.Add(p.Income)
		trends.TotalExpenses = trends.TotalExpenses.Add(p.Expense)
	}
	return trends, nil
}

// GetCashFlow returns net cash flow per period with a running balance:
// the last 12 months, the quarters of the last 3 years, or the last 5 years.
// Periods without transactions are included with zero totals.
func (s *SummaryService) GetCashFlow(ctx context.Context, userID uuid.UUID, period domain.CashFlowPeriod) (*domain.CashFlow, error) {
	now := s.now().UTC()

	var (
		granularity domain.Granularity
		start       time.Time
		step        func(time.Time) time.Time
		label       func(time.Time) string
	)
	switch period {
	case domain.CashFlowMonthly:
		granularity = domain.GranularityMonth
		current, _ := util.MonthRange(now.Year(), now.Month())
		start = current.AddDate(0, -(cashFlowMonths - 1), 0)
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		label = func(t time.Time) string { return t.Format("2006-01") }
	case domain.CashFlowQuarterly:
		granularity = domain.GranularityQuarter
		start, _ = util.YearRange(now.Year() - (cashFlowQuarters - 1))
		step = func(t time.Time) time.Time { return t.AddDate(0, 3, 0) }
		label = func(t time.Time) string { return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1) }
	case domain.CashFlowYearly:
		granularity = domain.GranularityYear
		start, _ = util.YearRange(now.Year() - (cashFlowYears - 1))
		step = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
		label = func(t time.Time) string { return fmt.Sprintf("%d", t.Year()) }
	default:
		return nil, domain.ErrPeriodInvalid
	}

	// Buckets run from start through the one containing now
	var buckets []time.Time
	for b := start; !b.After(now); b = step(b) {
		buckets = append(buckets, b)
	}
	end := step(buckets[len(buckets)-1])

	periods, err := s.transactionRepo.SumByPeriod(ctx, userID, domain.PeriodQuery{
		Granularity: granularity,
		Start:       &start,
		End:         &end,
	})
	if err != nil {
		return nil, err
	}
	byStart := make(map[time.Time]*domain.PeriodTotal, len(periods))
	for _, p := range periods {
		byStart[p.PeriodStart.UTC()] = p
	}

	flow := &domain.CashFlow{
		Period:           period,
		Entries:          make([]domain.CashFlowEntry, 0, len(buckets)),
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TotalNetCashFlow: decimal.Zero,
	}
	running := decimal.Zero
	for _, b := range buckets {
		income, expense := decimal.Zero, decimal.Zero
		if p, ok := byStart[b]; ok {
			income, expense = p.Income, p.Expense
		}
		net := income.Sub(expense)
		running = running.Add(net)
		flow.Entries = append(flow.Entries, domain.CashFlowEntry{
			PeriodStart:    b,
			Label:          label(b),
			Income:         income,
			Expense:        expense,
			NetCashFlow:    net,
			RunningBalance: running,
		})
		flow.TotalIncome = flow.TotalIncome.Add(income)
		flow.TotalExpenses = flow.TotalExpenses.Add(expense)
	}
	flow.TotalNetCashFlow = flow.TotalIncome.Sub(flow.TotalExpenses)
	flow.FinalBalance = running
	return flow, nil
}

// GetDashboard computes the headline ratios over the trailing 30 days
// including today
func (s *SummaryService) GetDashboard(ctx context.Context, userID uuid.UUID) (*domain.DashboardMetrics, error) {
	end := util.StartOfDay(s.now()).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -domain.DashboardWindowDays)

	totals, err := s.transactionRepo.SumByType(ctx, userID, &start, &end)
	if err != nil {
		return nil, err
	}
	stats, err := s.loanRepo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return DashboardMetrics(totals.Income, totals.Expense, stats.MonthlyEMI, stats.TotalOutstanding), nil
}

// DashboardMetrics derives the dashboard ratios. Ratios are 0 when there is
// no income.
func DashboardMetrics(income, expenses, installments, outstanding decimal.Decimal) *domain.DashboardMetrics {
	m := &domain.DashboardMetrics{
		WindowDays:           domain.DashboardWindowDays,
		Income:               income,
		Expenses:             expenses,
		TotalLoanInstallment: installments,
		OutstandingDebt:      outstanding,
		NetCashFlow:          income.Sub(expenses).Sub(installments),
		DebtToIncomeRatio:    decimal.Zero,
		SavingsRate:          decimal.Zero,
		Remaining:            decimal.Max(decimal.Zero, income.Sub(expenses)),
		BudgetUsedPercent:    decimal.Zero,
	}
	if income.IsPositive() {
		m.DebtToIncomeRatio = installments.Div(income).Mul(hundred).Round(2)
		m.SavingsRate = m.NetCashFlow.Div(income).Mul(hundred).Round(2)
		m.BudgetUsedPercent = expenses.Div(income).Mul(hundred).Round(2)
	}
	return m
}

func validateYear(year int) error {
	if year < minYear || year > maxYear {
		return domain.ErrYearInvalid
	}
	return nil
}

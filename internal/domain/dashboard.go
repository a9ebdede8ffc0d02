package domain

import "github.com/shopspring/decimal"

// DashboardWindowDays is the trailing window income and expenses are summed over.
const DashboardWindowDays = 30

// DashboardMetrics contains the headline figures of the user dashboard
type DashboardMetrics struct {
	WindowDays           int             `json:"windowDays"`
	Income               decimal.Decimal `json:"income"`
	Expenses             decimal.Decimal `json:"expenses"`
	TotalLoanInstallment decimal.Decimal `json:"totalLoanInstallment"`
	OutstandingDebt      decimal.Decimal `json:"outstandingDebt"`
	NetCashFlow          decimal.Decimal `json:"netCashFlow"`
	DebtToIncomeRatio    decimal.Decimal `json:"debtToIncomeRatio"`
	SavingsRate          decimal.Decimal `json:"savingsRate"`
	Remaining            decimal.Decimal `json:"remaining"`
	BudgetUsedPercent    decimal.Decimal `json:"budgetUsedPercent"`
}

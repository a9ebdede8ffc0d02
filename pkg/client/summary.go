package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
)

// Summary returns the current month, all-time and loan totals
func (c *Client) Summary(ctx context.Context) (*FinancialSummary, error) {
	var summary FinancialSummary
	if err := c.do(ctx, http.MethodGet, "/summary", nil, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// MonthlyAnalysis returns the breakdown of one calendar month
func (c *Client) MonthlyAnalysis(ctx context.Context, year int, month time.Month) (*MonthlyAnalysis, error) {
	var analysis MonthlyAnalysis
	path := fmt.Sprintf("/summary/monthly/%d/%d", year, int(month))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// YearlyAnalysis returns the month by month breakdown of a year
func (c *Client) YearlyAnalysis(ctx context.Context, year int) (*YearlyAnalysis, error) {
	var analysis YearlyAnalysis
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/summary/yearly/%d", year), nil, nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// SpendingTrends returns up to limit periods of income and expense
func (c *Client) SpendingTrends(ctx context.Context, period domain.TrendPeriod, limit int) (*SpendingTrends, error) {
	query := url.Values{}
	if period != "" {
		query.Set("period", string(period))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var trends SpendingTrends
	if err := c.do(ctx, http.MethodGet, "/summary/spending-trends", query, nil, &trends); err != nil {
		return nil, err
	}
	return &trends, nil
}

// CashFlow returns net cash flow per period with a running balance
func (c *Client) CashFlow(ctx context.Context, period domain.CashFlowPeriod) (*CashFlow, error) {
	var cashFlow CashFlow
	if err := c.do(ctx, http.MethodGet, "/summary/cash-flow/"+string(period), nil, nil, &cashFlow); err != nil {
		return nil, err
	}
	return &cashFlow, nil
}

// ExportTransactions asks the server for a CSV export of an inclusive date range
func (c *Client) ExportTransactions(ctx context.Context, start, end time.Time) (*TransactionExport, error) {
	body := map[string]string{"startDate": Date(start), "endDate": Date(end)}
	var export TransactionExport
	if err := c.do(ctx, http.MethodPost, "/summary/exports", nil, body, &export); err != nil {
		return nil, err
	}
	return &export, nil
}

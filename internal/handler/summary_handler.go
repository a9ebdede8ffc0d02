package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/middleware"
	"github.com/planpocket/planpocket/planpocket-backend/internal/service"
	"github.com/planpocket/planpocket/planpocket-backend/internal/util"
)

// SummaryHandler handles read-only financial aggregations and exports
type SummaryHandler struct {
	summaryService *service.SummaryService
	exportService  *service.ExportService
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(summaryService *service.SummaryService, exportService *service.ExportService) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService, exportService: exportService}
}

// ExportRequest represents the transaction export request body
type ExportRequest struct {
	StartDate string `json:"startDate"` // YYYY-MM-DD, inclusive
	EndDate   string `json:"endDate"`   // YYYY-MM-DD, inclusive
}

// GetFinancialSummary godoc
// @Summary Get the financial summary
// @Description Current month, all-time totals, loan totals and the 5 most recent transactions
// @Tags summary
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.FinancialSummary
// @Failure 401 {object} ProblemDetails
// @Router /summary [get]
func (h *SummaryHandler) GetFinancialSummary(c echo.Context) error {
	summary, err := h.summaryService.GetFinancialSummary(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return handleServiceError(c, err, "get summary")
	}
	return c.JSON(http.StatusOK, summary)
}

// GetMonthlyAnalysis godoc
// @Summary Get the analysis of one month
// @Tags summary
// @Produce json
// @Security BearerAuth
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} domain.MonthlyAnalysis
// @Failure 400 {object} ProblemDetails
// @Router /summary/monthly/{year}/{month} [get]
func (h *SummaryHandler) GetMonthlyAnalysis(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return invalidNumber(c, "year")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return invalidNumber(c, "month")
	}

	analysis, err := h.summaryService.GetMonthlyAnalysis(c.Request().Context(), middleware.GetUserID(c), year, month)
	if err != nil {
		return handleServiceError(c, err, "get monthly analysis")
	}
	return c.JSON(http.StatusOK, analysis)
}

// GetYearlyAnalysis godoc
// @Summary Get the analysis of one year
// @Tags summary
// @Produce json
// @Security BearerAuth
// @Param year path int true "Year"
// @Success 200 {object} domain.YearlyAnalysis
// @Failure 400 {object} ProblemDetails
// @Router /summary/yearly/{year} [get]
func (h *SummaryHandler) GetYearlyAnalysis(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return invalidNumber(c, "year")
	}

	analysis, err := h.summaryService.GetYearlyAnalysis(c.Request().Context(), middleware.GetUserID(c), year)
	if err != nil {
		return handleServiceError(c, err, "get yearly analysis")
	}
	return c.JSON(http.StatusOK, analysis)
}

// GetCategoryBreakdown godoc
// @Summary Get totals per category
// @Tags summary
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "YYYY-MM-DD, inclusive"
// @Param endDate query string false "YYYY-MM-DD, inclusive"
// @Param type query string false "income or expense"
// @Success 200 {object} domain.CategoryBreakdown
// @Failure 400 {object} ProblemDetails
// @Router /summary/category-breakdown [get]
func (h *SummaryHandler) GetCategoryBreakdown(c echo.Context) error {
	start, err := parseDateQuery(c, "startDate")
	if err != nil {
		return invalidDate(c, "startDate")
	}
	end, err := parseDateQuery(c, "endDate")
	if err != nil {
		return invalidDate(c, "endDate")
	}
	var txType *domain.TransactionType
	if t := c.QueryParam("type"); t != "" {
		tt := domain.TransactionType(t)
		txType = &tt
	}

	breakdown, err := h.summaryService.GetCategoryBreakdown(c.Request().Context(), middleware.GetUserID(c), start, end, txType)
	if err != nil {
		return handleServiceError(c, err, "get category breakdown")
	}
	return c.JSON(http.StatusOK, breakdown)
}

// GetSpendingTrends godoc
// @Summary Get income and expense per period
// @Tags summary
// @Produce json
// @Security BearerAuth
// @Param period query string false "daily, weekly or monthly" default(monthly)
// @Param limit query int false "Number of periods (max 120)" default(12)
// @Success 200 {object} domain.SpendingTrends
// @Failure 400 {object} ProblemDetails
// @Router /summary/spending-trends [get]
func (h *SummaryHandler) GetSpendingTrends(c echo.Context) error {
	period := domain.TrendMonthly
	if p := c.QueryParam("period"); p != "" {
		period = domain.TrendPeriod(p)
	}
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "limit", Message: "Must be a positive integer"},
			})
		}
		limit = n
	}

	trends, err := h.summaryService.GetSpendingTrends(c.Request().Context(), middleware.GetUserID(c), period, limit)
	if err != nil {
		return handleServiceError(c, err, "get spending trends")
	}
	return c.JSON(http.StatusOK, trends)
}

// GetCashFlow godoc
// @Summary Get net cash flow with a running balance
// @Tags summary
// @Produce json
// @Security BearerAuth
// @Param period path string true "monthly, quarterly or yearly"
// @Success 200 {object} domain.CashFlow
// @Failure 400 {object} ProblemDetails
// @Router /summary/cash-flow/{period} [get]
func (h *SummaryHandler) GetCashFlow(c echo.Context) error {
	cashFlow, err := h.summaryService.GetCashFlow(c.Request().Context(), middleware.GetUserID(c), domain.CashFlowPeriod(c.Param("period")))
	if err != nil {
		return handleServiceError(c, err, "get cash flow")
	}
	return c.JSON(http.StatusOK, cashFlow)
}

// ExportTransactions godoc
// @Summary Export transactions as CSV
// @Description Uploads a CSV of the range to object storage and returns a temporary download URL
// @Tags summary
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExportRequest true "Date range"
// @Success 201 {object} domain.TransactionExport
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /summary/exports [post]
func (h *SummaryHandler) ExportTransactions(c echo.Context) error {
	if !h.exportService.IsEnabled() {
		return NewServiceUnavailableError(c, "Exports are disabled (storage not configured)")
	}

	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	start, err := util.ParseDate(req.StartDate)
	if err != nil {
		return invalidDate(c, "startDate")
	}
	end, err := util.ParseDate(req.EndDate)
	if err != nil {
		return invalidDate(c, "endDate")
	}

	export, err := h.exportService.ExportTransactions(c.Request().Context(), middleware.GetUserID(c), start, end)
	if err != nil {
		return handleServiceError(c, err, "export transactions")
	}
	return c.JSON(http.StatusCreated, export)
}

func invalidNumber(c echo.Context, field string) error {
	return NewValidationError(c, "Validation failed", []ValidationError{
		{Field: field, Message: "Must be a number"},
	})
}

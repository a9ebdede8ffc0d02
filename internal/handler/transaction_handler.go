package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/middleware"
	"github.com/planpocket/planpocket/planpocket-backend/internal/service"
	"github.com/planpocket/planpocket/planpocket-backend/internal/util"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the create transaction request body
type CreateTransactionRequest struct {
	Type               domain.TransactionType     `json:"type"`
	Description        string                     `json:"description"`
	Amount             decimal.Decimal            `json:"amount" swaggertype:"string"`
	Category           domain.Category            `json:"category"`
	Date               *string                    `json:"date,omitempty"` // YYYY-MM-DD, defaults to now
	Notes              *string                    `json:"notes,omitempty"`
	Recurring          bool                       `json:"recurring"`
	RecurringFrequency *domain.RecurringFrequency `json:"recurringFrequency,omitempty"`
	Tags               []string                   `json:"tags,omitempty"`
}

// UpdateTransactionRequest represents the update transaction request body.
// Omitted fields are left unchanged.
type UpdateTransactionRequest struct {
	Type               *domain.TransactionType    `json:"type,omitempty"`
	Description        *string                    `json:"description,omitempty"`
	Amount             *decimal.Decimal           `json:"amount,omitempty" swaggertype:"string"`
	Category           *domain.Category           `json:"category,omitempty"`
	Date               *string                    `json:"date,omitempty"`
	Notes              *string                    `json:"notes,omitempty"`
	Recurring          *bool                      `json:"recurring,omitempty"`
	RecurringFrequency *domain.RecurringFrequency `json:"recurringFrequency,omitempty"`
	Tags               []string                   `json:"tags,omitempty"`
}

// CreateTransaction godoc
// @Summary Create a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "Transaction"
// @Success 201 {object} domain.Transaction
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /transactions [post]
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		return invalidDate(c, "date")
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request().Context(), middleware.GetUserID(c), service.CreateTransactionInput{
		Type:               req.Type,
		Description:        req.Description,
		Amount:             req.Amount,
		Category:           req.Category,
		Date:               date,
		Notes:              req.Notes,
		Recurring:          req.Recurring,
		RecurringFrequency: req.RecurringFrequency,
		Tags:               req.Tags,
	})
	if err != nil {
		return handleServiceError(c, err, "create transaction")
	}

	return c.JSON(http.StatusCreated, transaction)
}

// GetTransactions godoc
// @Summary List transactions
// @Description Newest first. startDate and endDate are inclusive calendar days.
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param type query string false "income or expense"
// @Param category query string false "Category"
// @Param startDate query string false "YYYY-MM-DD"
// @Param endDate query string false "YYYY-MM-DD"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(20)
// @Success 200 {object} domain.PaginatedTransactions
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /transactions [get]
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	filters := &domain.TransactionFilters{}
	filters.Page, filters.PageSize = parsePagination(c)

	if t := c.QueryParam("type"); t != "" {
		txType := domain.TransactionType(t)
		filters.Type = &txType
	}
	if cat := c.QueryParam("category"); cat != "" {
		category := domain.Category(cat)
		filters.Category = &category
	}

	start, err := parseDateQuery(c, "startDate")
	if err != nil {
		return invalidDate(c, "startDate")
	}
	filters.StartDate = start

	end, err := parseDateQuery(c, "endDate")
	if err != nil {
		return invalidDate(c, "endDate")
	}
	if end != nil {
		exclusive := util.StartOfDay(*end).AddDate(0, 0, 1)
		filters.EndDate = &exclusive
	}

	result, err := h.transactionService.GetTransactions(c.Request().Context(), middleware.GetUserID(c), filters)
	if err != nil {
		return handleServiceError(c, err, "get transactions")
	}

	return c.JSON(http.StatusOK, result)
}

// GetTransaction godoc
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} domain.Transaction
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidTransactionID(c)
	}

	transaction, err := h.transactionService.GetTransactionByID(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return handleServiceError(c, err, "get transaction")
	}

	return c.JSON(http.StatusOK, transaction)
}

// UpdateTransaction godoc
// @Summary Update a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Param request body UpdateTransactionRequest true "Fields to change"
// @Success 200 {object} domain.Transaction
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidTransactionID(c)
	}

	var req UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		return invalidDate(c, "date")
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request().Context(), middleware.GetUserID(c), id, service.UpdateTransactionInput{
		Type:               req.Type,
		Description:        req.Description,
		Amount:             req.Amount,
		Category:           req.Category,
		Date:               date,
		Notes:              req.Notes,
		Recurring:          req.Recurring,
		RecurringFrequency: req.RecurringFrequency,
		Tags:               req.Tags,
	})
	if err != nil {
		return handleServiceError(c, err, "update transaction")
	}

	return c.JSON(http.StatusOK, transaction)
}

// DeleteTransaction godoc
// @Summary Delete a transaction
// @Tags transactions
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 204
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidTransactionID(c)
	}

	if err := h.transactionService.DeleteTransaction(c.Request().Context(), middleware.GetUserID(c), id); err != nil {
		return handleServiceError(c, err, "delete transaction")
	}

	return c.NoContent(http.StatusNoContent)
}

// GetTransactionsByCategory godoc
// @Summary List transactions in a category
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param category path string true "Category"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(20)
// @Success 200 {object} domain.PaginatedTransactions
// @Failure 400 {object} ProblemDetails
// @Router /transactions/category/{category} [get]
func (h *TransactionHandler) GetTransactionsByCategory(c echo.Context) error {
	page, pageSize := parsePagination(c)

	result, err := h.transactionService.GetTransactionsByCategory(c.Request().Context(), middleware.GetUserID(c),
		domain.Category(c.Param("category")), page, pageSize)
	if err != nil {
		return handleServiceError(c, err, "get transactions")
	}

	return c.JSON(http.StatusOK, result)
}

// GetTransactionsByDateRange godoc
// @Summary List transactions between two dates
// @Description Both dates are inclusive calendar days
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param startDate path string true "YYYY-MM-DD"
// @Param endDate path string true "YYYY-MM-DD"
// @Success 200 {array} domain.Transaction
// @Failure 400 {object} ProblemDetails
// @Router /transactions/date-range/{startDate}/{endDate} [get]
func (h *TransactionHandler) GetTransactionsByDateRange(c echo.Context) error {
	start, err := util.ParseDate(c.Param("startDate"))
	if err != nil {
		return invalidDate(c, "startDate")
	}
	end, err := util.ParseDate(c.Param("endDate"))
	if err != nil {
		return invalidDate(c, "endDate")
	}

	transactions, err := h.transactionService.GetTransactionsByDateRange(c.Request().Context(), middleware.GetUserID(c), start, end)
	if err != nil {
		return handleServiceError(c, err, "get transactions")
	}

	return c.JSON(http.StatusOK, transactions)
}

func invalidTransactionID(c echo.Context) error {
	return NewValidationError(c, "Invalid transaction ID", []ValidationError{
		{Field: "id", Message: "Must be a positive integer"},
	})
}

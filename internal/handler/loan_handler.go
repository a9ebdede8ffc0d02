package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/middleware"
	"github.com/planpocket/planpocket/planpocket-backend/internal/service"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents the create loan request body
type CreateLoanRequest struct {
	LoanType     domain.LoanType `json:"loanType"`
	LenderName   string          `json:"lenderName"`
	Principal    decimal.Decimal `json:"principal" swaggertype:"string"`
	InterestRate decimal.Decimal `json:"interestRate" swaggertype:"string"` // annual percentage, 0-100
	TermMonths   int32           `json:"termMonths"`
	StartDate    string          `json:"startDate"` // YYYY-MM-DD
	Notes        *string         `json:"notes,omitempty"`
}

// UpdateLoanRequest represents the update loan request body.
// Omitted fields are left unchanged; changing principal, rate, term or
// start date reprices the loan.
type UpdateLoanRequest struct {
	LoanType     *domain.LoanType     `json:"loanType,omitempty"`
	LenderName   *string              `json:"lenderName,omitempty"`
	Principal    *decimal.Decimal     `json:"principal,omitempty" swaggertype:"string"`
	InterestRate *decimal.Decimal     `json:"interestRate,omitempty" swaggertype:"string"`
	TermMonths   *int32               `json:"termMonths,omitempty"`
	StartDate    *string              `json:"startDate,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
	Status       *amortization.Status `json:"status,omitempty"`
}

// AddPaymentRequest represents a loan payment
type AddPaymentRequest struct {
	Amount        decimal.Decimal      `json:"amount" swaggertype:"string"`
	PaymentDate   *string              `json:"paymentDate,omitempty"` // YYYY-MM-DD, defaults to today
	PaymentMethod domain.PaymentMethod `json:"paymentMethod,omitempty"`
	Note          *string              `json:"note,omitempty"`
}

// CalculateEMIRequest represents the calculator request body
type CalculateEMIRequest struct {
	Principal    decimal.Decimal `json:"principal" swaggertype:"string"`
	InterestRate decimal.Decimal `json:"interestRate" swaggertype:"string"`
	TermMonths   int32           `json:"termMonths"`
}

// CreateLoan godoc
// @Summary Create a loan
// @Description Computes the monthly installment, totals and end date. Loans starting in the future are pending until their start date.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateLoanRequest true "Loan terms"
// @Success 201 {object} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	startDate, err := parseOptionalDate(&req.StartDate)
	if err != nil {
		return invalidDate(c, "startDate")
	}
	if startDate == nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "startDate", Message: "Start date is required"},
		})
	}

	loan, err := h.loanService.CreateLoan(c.Request().Context(), middleware.GetUserID(c), service.CreateLoanInput{
		LoanType:     req.LoanType,
		LenderName:   req.LenderName,
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		TermMonths:   req.TermMonths,
		StartDate:    *startDate,
		Notes:        req.Notes,
	})
	if err != nil {
		return handleServiceError(c, err, "create loan")
	}

	return c.JSON(http.StatusCreated, loan)
}

// GetLoans godoc
// @Summary List loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status: pending, active, completed, defaulted"
// @Success 200 {array} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /loans [get]
func (h *LoanHandler) GetLoans(c echo.Context) error {
	var status *amortization.Status
	if s := c.QueryParam("status"); s != "" && s != "all" {
		st := amortization.Status(s)
		status = &st
	}

	loans, err := h.loanService.ListLoans(c.Request().Context(), middleware.GetUserID(c), status)
	if err != nil {
		return handleServiceError(c, err, "get loans")
	}

	return c.JSON(http.StatusOK, loans)
}

// GetLoansByStatus godoc
// @Summary List loans with a status
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param status path string true "pending, active, completed or defaulted"
// @Success 200 {array} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Router /loans/status/{status} [get]
func (h *LoanHandler) GetLoansByStatus(c echo.Context) error {
	loans, err := h.loanService.ListLoansByStatus(c.Request().Context(), middleware.GetUserID(c), amortization.Status(c.Param("status")))
	if err != nil {
		return handleServiceError(c, err, "get loans")
	}
	return c.JSON(http.StatusOK, loans)
}

// GetLoan godoc
// @Summary Get a loan with its payment history
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidLoanID(c)
	}

	loan, err := h.loanService.GetLoan(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return handleServiceError(c, err, "get loan")
	}

	return c.JSON(http.StatusOK, loan)
}

// UpdateLoan godoc
// @Summary Update a loan
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param request body UpdateLoanRequest true "Fields to change"
// @Success 200 {object} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id} [put]
func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidLoanID(c)
	}

	var req UpdateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return invalidDate(c, "startDate")
	}

	loan, err := h.loanService.UpdateLoan(c.Request().Context(), middleware.GetUserID(c), id, service.UpdateLoanInput{
		LoanType:     req.LoanType,
		LenderName:   req.LenderName,
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		TermMonths:   req.TermMonths,
		StartDate:    startDate,
		Notes:        req.Notes,
		Status:       req.Status,
	})
	if err != nil {
		return handleServiceError(c, err, "update loan")
	}

	return c.JSON(http.StatusOK, loan)
}

// DeleteLoan godoc
// @Summary Delete a loan and its payments
// @Tags loans
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 204
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id} [delete]
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidLoanID(c)
	}

	if err := h.loanService.DeleteLoan(c.Request().Context(), middleware.GetUserID(c), id); err != nil {
		return handleServiceError(c, err, "delete loan")
	}

	return c.NoContent(http.StatusNoContent)
}

// AddPayment godoc
// @Summary Record a loan payment
// @Description Interest accrued for the month is settled first; the rest reduces the principal. Overpayment closes the loan and is reported as excess.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param request body AddPaymentRequest true "Payment"
// @Success 201 {object} service.PaymentOutcome
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id}/payments [post]
func (h *LoanHandler) AddPayment(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidLoanID(c)
	}

	var req AddPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	paymentDate, err := parseOptionalDate(req.PaymentDate)
	if err != nil {
		return invalidDate(c, "paymentDate")
	}

	outcome, err := h.loanService.AddPayment(c.Request().Context(), middleware.GetUserID(c), id, service.AddPaymentInput{
		Amount:        req.Amount,
		PaymentDate:   paymentDate,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	})
	if err != nil {
		return handleServiceError(c, err, "record payment")
	}

	return c.JSON(http.StatusCreated, outcome)
}

// GetLoanSchedule godoc
// @Summary Get a loan's amortization schedule
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {array} amortization.ScheduleEntry
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id}/schedule [get]
func (h *LoanHandler) GetLoanSchedule(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidLoanID(c)
	}

	schedule, err := h.loanService.GetLoanSchedule(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return handleServiceError(c, err, "get schedule")
	}

	return c.JSON(http.StatusOK, schedule)
}

// CalculateEMI godoc
// @Summary Calculate a monthly installment
// @Description Stateless calculator; nothing is stored
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CalculateEMIRequest true "Loan terms"
// @Success 200 {object} amortization.Installment
// @Failure 400 {object} ProblemDetails
// @Router /loans/calculate-emi [post]
func (h *LoanHandler) CalculateEMI(c echo.Context) error {
	var req CalculateEMIRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.loanService.CalculateEMI(service.CalculateEMIInput{
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		TermMonths:   req.TermMonths,
	})
	if err != nil {
		return handleServiceError(c, err, "calculate EMI")
	}

	return c.JSON(http.StatusOK, result)
}

// GetLoanStats godoc
// @Summary Get loan statistics
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.LoanStats
// @Failure 401 {object} ProblemDetails
// @Router /loans/stats/summary [get]
func (h *LoanHandler) GetLoanStats(c echo.Context) error {
	stats, err := h.loanService.GetLoanStats(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return handleServiceError(c, err, "get loan statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

func invalidLoanID(c echo.Context) error {
	return NewValidationError(c, "Invalid loan ID", []ValidationError{
		{Field: "id", Message: "Must be a positive integer"},
	})
}

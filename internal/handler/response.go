package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://planpocket.app/errors/validation"
	ErrorTypeNotFound     = "https://planpocket.app/errors/not-found"
	ErrorTypeUnauthorized = "https://planpocket.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://planpocket.app/errors/forbidden"
	ErrorTypeConflict     = "https://planpocket.app/errors/conflict"
	ErrorTypeUnavailable  = "https://planpocket.app/errors/service-unavailable"
	ErrorTypeInternal     = "https://planpocket.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, ProblemDetails{
		Type:     ErrorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return c.JSON(http.StatusForbidden, ProblemDetails{
		Type:     ErrorTypeForbidden,
		Title:    "Forbidden",
		Status:   http.StatusForbidden,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return c.JSON(http.StatusConflict, ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewServiceUnavailableError creates a service unavailable error response
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
		Type:     ErrorTypeUnavailable,
		Title:    "Service Unavailable",
		Status:   http.StatusServiceUnavailable,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// fieldErrors maps domain validation errors to the request field they describe
var fieldErrors = []struct {
	err   error
	field string
}{
	{domain.ErrFullNameInvalid, "fullName"},
	{domain.ErrEmailInvalid, "email"},
	{domain.ErrPasswordTooShort, "password"},
	{domain.ErrCurrentPassword, "currentPassword"},
	{domain.ErrAnnualIncomeInvalid, "annualIncome"},
	{domain.ErrTransactionTypeInvalid, "type"},
	{domain.ErrDescriptionRequired, "description"},
	{domain.ErrDescriptionTooLong, "description"},
	{domain.ErrTransactionAmountInvalid, "amount"},
	{domain.ErrCategoryInvalid, "category"},
	{domain.ErrNotesTooLong, "notes"},
	{domain.ErrRecurringFrequencyInvalid, "recurringFrequency"},
	{domain.ErrLoanTypeInvalid, "loanType"},
	{domain.ErrLenderNameInvalid, "lenderName"},
	{domain.ErrLoanStatusInvalid, "status"},
	{domain.ErrPaymentMethodInvalid, "paymentMethod"},
	{domain.ErrLoanBalanceSettled, "status"},
	{domain.ErrDateRangeInvalid, "startDate"},
	{domain.ErrMonthInvalid, "month"},
	{domain.ErrYearInvalid, "year"},
	{domain.ErrPeriodInvalid, "period"},
	{domain.ErrTrendInvalid, "period"},
	{amortization.ErrInvalidLoanTerms, "terms"},
	{amortization.ErrInvalidPayment, "amount"},
}

// handleServiceError writes the Problem Details response for an error
// returned by a service. Unrecognised errors are logged and become a 500
// carrying the action that failed.
func handleServiceError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, capitalize(err.Error()))
	case errors.Is(err, domain.ErrEmailTaken):
		return NewConflictError(c, "User already exists")
	case errors.Is(err, domain.ErrVersionConflict):
		return NewConflictError(c, "The resource was modified by another request, please retry")
	case errors.Is(err, domain.ErrLoanCompleted):
		return NewConflictError(c, "Loan is already completed")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return NewUnauthorizedError(c, "Invalid email or password")
	case errors.Is(err, domain.ErrStorageUnavailable):
		return NewServiceUnavailableError(c, "File storage is not configured")
	}

	for _, fe := range fieldErrors {
		if errors.Is(err, fe.err) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: fe.field, Message: capitalize(err.Error())},
			})
		}
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Failed to " + action)
	return NewInternalError(c, "Failed to "+action)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

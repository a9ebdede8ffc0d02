package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/middleware"
	"github.com/planpocket/planpocket/planpocket-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProfileHandler handles profile, income, avatar and dashboard requests
type ProfileHandler struct {
	profileService *service.ProfileService
	avatarService  *service.AvatarService
	summaryService *service.SummaryService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService *service.ProfileService, avatarService *service.AvatarService, summaryService *service.SummaryService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		avatarService:  avatarService,
		summaryService: summaryService,
	}
}

// UpdateProfileRequest represents the update profile request body.
// Omitted fields are left unchanged; blank optional fields are cleared.
type UpdateProfileRequest struct {
	FullName       *string `json:"fullName,omitempty"`
	ContactNumber  *string `json:"contactNumber,omitempty"`
	Address        *string `json:"address,omitempty"`
	OccupationType *string `json:"occupationType,omitempty"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateIncomeRequest represents the update income request body
type UpdateIncomeRequest struct {
	AnnualIncome decimal.NullDecimal `json:"annualIncome" swaggertype:"string"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} domain.User
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /auth/profile [put]
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	user, err := h.profileService.UpdateProfile(c.Request().Context(), middleware.GetUserID(c), service.UpdateProfileInput{
		FullName:       req.FullName,
		ContactNumber:  req.ContactNumber,
		Address:        req.Address,
		OccupationType: req.OccupationType,
	})
	if err != nil {
		return handleServiceError(c, err, "update profile")
	}

	return c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /auth/change-password [put]
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return NewValidationError(c, "Please provide current and new password", []ValidationError{
			{Field: "currentPassword", Message: "Current and new password are required"},
		})
	}

	err := h.profileService.ChangePassword(c.Request().Context(), middleware.GetUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return handleServiceError(c, err, "change password")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

// UpdateIncome godoc
// @Summary Set the current user's annual income
// @Description Stores the annual income; the monthly income is derived as annual / 12 rounded to a whole amount
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateIncomeRequest true "Annual income"
// @Success 200 {object} domain.User
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /user/income [put]
func (h *ProfileHandler) UpdateIncome(c echo.Context) error {
	var req UpdateIncomeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "annualIncome", Message: "Annual income must be a number"},
		})
	}
	if !req.AnnualIncome.Valid {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "annualIncome", Message: "Annual income is required"},
		})
	}

	user, err := h.profileService.UpdateIncome(c.Request().Context(), middleware.GetUserID(c), req.AnnualIncome.Decimal)
	if err != nil {
		return handleServiceError(c, err, "update income")
	}

	return c.JSON(http.StatusOK, user)
}

// GetDashboard godoc
// @Summary Get dashboard metrics
// @Description Income and expenses of the last 30 days alongside loan obligations
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.DashboardMetrics
// @Failure 401 {object} ProblemDetails
// @Router /user/dashboard [get]
func (h *ProfileHandler) GetDashboard(c echo.Context) error {
	metrics, err := h.summaryService.GetDashboard(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return handleServiceError(c, err, "get dashboard")
	}
	return c.JSON(http.StatusOK, metrics)
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Description Accepts a JPEG or PNG up to 5MB and stores a square thumbnail
// @Tags user
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file"
// @Success 200 {object} domain.User
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /user/avatar [put]
func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	if !h.avatarService.IsEnabled() {
		return NewServiceUnavailableError(c, "Avatar uploads are disabled (storage not configured)")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > service.MaxImageSize {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "file", Message: "File too large. Maximum size is 5MB"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxImageSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	user, err := h.avatarService.Upload(c.Request().Context(), middleware.GetUserID(c), data, file.Filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageTooLarge),
			errors.Is(err, service.ErrInvalidFormat),
			errors.Is(err, service.ErrImageTooSmall),
			errors.Is(err, service.ErrInvalidImageData):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: capitalize(err.Error())},
			})
		default:
			return handleServiceError(c, err, "upload avatar")
		}
	}

	return c.JSON(http.StatusOK, user)
}

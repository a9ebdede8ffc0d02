package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/middleware"
	"github.com/planpocket/planpocket/planpocket-backend/internal/service"
)

// AuthHandler handles registration, login and the current user
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents the register request body
type RegisterRequest struct {
	FullName       string  `json:"fullName"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	ContactNumber  *string `json:"contactNumber,omitempty"`
	Address        *string `json:"address,omitempty"`
	OccupationType *string `json:"occupationType,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var errs []ValidationError
	if req.FullName == "" {
		errs = append(errs, ValidationError{Field: "fullName", Message: "Full name is required"})
	}
	if req.Email == "" {
		errs = append(errs, ValidationError{Field: "email", Message: "Email is required"})
	}
	if req.Password == "" {
		errs = append(errs, ValidationError{Field: "password", Message: "Password is required"})
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Validation failed", errs)
	}

	result, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		FullName:       req.FullName,
		Email:          req.Email,
		Password:       req.Password,
		ContactNumber:  req.ContactNumber,
		Address:        req.Address,
		OccupationType: req.OccupationType,
	})
	if err != nil {
		return handleServiceError(c, err, "register user")
	}

	return c.JSON(http.StatusCreated, result)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Email == "" || req.Password == "" {
		return NewValidationError(c, "Please provide email and password", []ValidationError{
			{Field: "email", Message: "Email and password are required"},
		})
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return handleServiceError(c, err, "log in")
	}

	return c.JSON(http.StatusOK, result)
}

// Me godoc
// @Summary Get the current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.User
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.authService.Me(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return handleServiceError(c, err, "get user")
	}
	return c.JSON(http.StatusOK, user)
}

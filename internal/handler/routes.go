package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Auth        *AuthHandler
	Profile     *ProfileHandler
	Transaction *TransactionHandler
	Loan        *LoanHandler
	Summary     *SummaryHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, h Handlers, apiMiddleware ...echo.MiddlewareFunc) {
	// API version 1
	api := e.Group("/api/v1", apiMiddleware...)
	authenticate := authMiddleware.Authenticate()

	// Auth routes (register and login are public)
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", h.Auth.Me, authenticate)
	auth.PUT("/profile", h.Profile.UpdateProfile, authenticate)
	auth.PUT("/change-password", h.Profile.ChangePassword, authenticate)

	// User routes (protected)
	user := api.Group("/user")
	user.Use(authenticate)
	user.PUT("/income", h.Profile.UpdateIncome)
	user.GET("/dashboard", h.Profile.GetDashboard)
	user.PUT("/avatar", h.Profile.UploadAvatar)

	// Transaction routes (protected)
	transactions := api.Group("/transactions")
	transactions.Use(authenticate)
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetTransactions)
	transactions.GET("/category/:category", h.Transaction.GetTransactionsByCategory)
	transactions.GET("/date-range/:startDate/:endDate", h.Transaction.GetTransactionsByDateRange)
	transactions.GET("/:id", h.Transaction.GetTransaction)
	transactions.PUT("/:id", h.Transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)

	// Loan routes (protected)
	loans := api.Group("/loans")
	loans.Use(authenticate)
	loans.POST("", h.Loan.CreateLoan)
	loans.GET("", h.Loan.GetLoans)
	loans.POST("/calculate-emi", h.Loan.CalculateEMI)
	loans.GET("/status/:status", h.Loan.GetLoansByStatus)
	loans.GET("/stats/summary", h.Loan.GetLoanStats)
	loans.GET("/:id", h.Loan.GetLoan)
	loans.PUT("/:id", h.Loan.UpdateLoan)
	loans.DELETE("/:id", h.Loan.DeleteLoan)
	loans.POST("/:id/payments", h.Loan.AddPayment)
	loans.GET("/:id/schedule", h.Loan.GetLoanSchedule)

	// Summary routes (protected)
	summary := api.Group("/summary")
	summary.Use(authenticate)
	summary.GET("", h.Summary.GetFinancialSummary)
	summary.GET("/monthly/:year/:month", h.Summary.GetMonthlyAnalysis)
	summary.GET("/yearly/:year", h.Summary.GetYearlyAnalysis)
	summary.GET("/category-breakdown", h.Summary.GetCategoryBreakdown)
	summary.GET("/spending-trends", h.Summary.GetSpendingTrends)
	summary.GET("/cash-flow/:period", h.Summary.GetCashFlow)
	summary.POST("/exports", h.Summary.ExportTransactions)
}

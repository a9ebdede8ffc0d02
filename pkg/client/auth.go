package client

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// Register creates an account and stores the returned token
func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, input, &result); err != nil {
		return nil, err
	}
	c.tokens.SetToken(result.Token)
	return &result, nil
}

// Login authenticates and stores the returned token
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &result); err != nil {
		return nil, err
	}
	c.tokens.SetToken(result.Token)
	return &result, nil
}

// Logout forgets the stored token. Tokens are stateless, so the server is not called.
func (c *Client) Logout() {
	c.tokens.Clear()
}

// Me returns the authenticated user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the authenticated user's profile
func (c *Client) UpdateProfile(ctx context.Context, input ProfileInput) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/auth/profile", nil, input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword replaces the password after checking the current one
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := map[string]string{"currentPassword": currentPassword, "newPassword": newPassword}
	return c.do(ctx, http.MethodPut, "/auth/change-password", nil, body, nil)
}

// UpdateIncome sets the annual income; the server derives the monthly figure
func (c *Client) UpdateIncome(ctx context.Context, annualIncome decimal.Decimal) (*User, error) {
	body := map[string]decimal.Decimal{"annualIncome": annualIncome}
	var user User
	if err := c.do(ctx, http.MethodPut, "/user/income", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Dashboard returns the trailing 30 day metrics
func (c *Client) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	var metrics DashboardMetrics
	if err := c.do(ctx, http.MethodGet, "/user/dashboard", nil, nil, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

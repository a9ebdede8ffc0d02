package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateLoan stores a loan with its derived installment
func (c *Client) CreateLoan(ctx context.Context, input LoanInput) (*Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodPost, "/loans", nil, input, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListLoans returns the caller's loans, optionally only those with status
func (c *Client) ListLoans(ctx context.Context, status LoanStatus) ([]*Loan, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": {string(status)}}
	}
	var loans []*Loan
	if err := c.do(ctx, http.MethodGet, "/loans", query, nil, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// GetLoan returns a loan with its payment history
func (c *Client) GetLoan(ctx context.Context, id int32) (*Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/loans/%d", id), nil, nil, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// UpdateLoan changes the fields set in update
func (c *Client) UpdateLoan(ctx context.Context, id int32, update LoanUpdate) (*Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/loans/%d", id), nil, update, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// DeleteLoan removes a loan and its payments
func (c *Client) DeleteLoan(ctx context.Context, id int32) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/loans/%d", id), nil, nil, nil)
}

// AddPayment records a payment against a loan
func (c *Client) AddPayment(ctx context.Context, loanID int32, input PaymentInput) (*PaymentOutcome, error) {
	var outcome PaymentOutcome
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/loans/%d/payments", loanID), nil, input, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// LoanSchedule returns the amortization schedule of a loan
func (c *Client) LoanSchedule(ctx context.Context, loanID int32) ([]ScheduleEntry, error) {
	var schedule []ScheduleEntry
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/loans/%d/schedule", loanID), nil, nil, &schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// CalculateEMI prices a loan without storing it
func (c *Client) CalculateEMI(ctx context.Context, input EMIInput) (*Installment, error) {
	var installment Installment
	if err := c.do(ctx, http.MethodPost, "/loans/calculate-emi", nil, input, &installment); err != nil {
		return nil, err
	}
	return &installment, nil
}

// LoanStats returns aggregate figures over the caller's loans
func (c *Client) LoanStats(ctx context.Context) (*LoanStats, error) {
	var stats LoanStats
	if err := c.do(ctx, http.MethodGet, "/loans/stats/summary", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

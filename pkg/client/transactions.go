package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CreateTransaction stores a new transaction
func (c *Client) CreateTransaction(ctx context.Context, input TransactionInput) (*Transaction, error) {
	var tx Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, input, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListTransactions returns one page of transactions, newest first
func (c *Client) ListTransactions(ctx context.Context, filter TransactionFilter) (*PaginatedTransactions, error) {
	query := url.Values{}
	if filter.Type != "" {
		query.Set("type", string(filter.Type))
	}
	if filter.Category != "" {
		query.Set("category", string(filter.Category))
	}
	if !filter.StartDate.IsZero() {
		query.Set("startDate", Date(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query.Set("endDate", Date(filter.EndDate))
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(filter.PageSize))
	}

	var page PaginatedTransactions
	if err := c.do(ctx, http.MethodGet, "/transactions", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTransaction returns one transaction
func (c *Client) GetTransaction(ctx context.Context, id int32) (*Transaction, error) {
	var tx Transaction
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/transactions/%d", id), nil, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateTransaction changes the fields set in update
func (c *Client) UpdateTransaction(ctx context.Context, id int32, update TransactionUpdate) (*Transaction, error) {
	var tx Transaction
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/transactions/%d", id), nil, update, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction removes a transaction
func (c *Client) DeleteTransaction(ctx context.Context, id int32) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/transactions/%d", id), nil, nil, nil)
}

// TransactionsBetween returns every transaction between two inclusive dates
func (c *Client) TransactionsBetween(ctx context.Context, start, end time.Time) ([]*Transaction, error) {
	var txs []*Transaction
	path := "/transactions/date-range/" + Date(start) + "/" + Date(end)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// FieldError is a validation failure on one request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response. The server's Problem Details body is
// decoded into it when present.
type APIError struct {
	StatusCode int          `json:"-"`
	Type       string       `json:"type"`
	Title      string       `json:"title"`
	Status     int          `json:"status"`
	Detail     string       `json:"detail"`
	Instance   string       `json:"instance"`
	Errors     []FieldError `json:"errors"`
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Title == "" {
		apiErr = &APIError{Title: http.StatusText(statusCode), Detail: string(body)}
	}
	apiErr.StatusCode = statusCode
	return apiErr
}

func (e *APIError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		msg = e.Detail
	}
	if len(e.Errors) > 0 {
		return fmt.Sprintf("planpocket: %d %s (%s: %s)", e.StatusCode, msg, e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("planpocket: %d %s", e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 from the API
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsConflict reports whether err is a 409 from the API
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

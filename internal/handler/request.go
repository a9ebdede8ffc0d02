package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/util"
)

// parseIDParam reads a positive int32 path parameter
func parseIDParam(c echo.Context, name string) (int32, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}

// parseOptionalDate parses a YYYY-MM-DD (or RFC 3339) date when present
func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := util.ParseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDateQuery parses an optional date query parameter
func parseDateQuery(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	return parseOptionalDate(&raw)
}

// parsePagination reads page and pageSize query parameters. Missing or
// malformed values fall back to zero so the repository applies its defaults.
func parsePagination(c echo.Context) (int32, int32) {
	var page, pageSize int32
	if p, err := strconv.ParseInt(c.QueryParam("page"), 10, 32); err == nil && p > 0 {
		page = int32(p)
	}
	if ps, err := strconv.ParseInt(c.QueryParam("pageSize"), 10, 32); err == nil && ps > 0 {
		pageSize = int32(ps)
	}
	return page, pageSize
}

func invalidDate(c echo.Context, field string) error {
	return NewValidationError(c, "Validation failed", []ValidationError{
		{Field: field, Message: "Must be a date in YYYY-MM-DD format"},
	})
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/auth"
)

type stubValidator struct {
	identity *auth.Identity
	err      error
	token    string
}

func (s *stubValidator) Validate(ctx context.Context, token string) (*auth.Identity, error) {
	s.token = token
	return s.identity, s.err
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		validator  *stubValidator
		wantStatus int
		wantUser   uuid.UUID
	}{
		{
			name:       "missing header",
			validator:  &stubValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			validator:  &stubValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty bearer",
			header:     "Bearer ",
			validator:  &stubValidator{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			header:     "Bearer bad",
			validator:  &stubValidator{err: errors.New("expired")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid token",
			header:     "bearer good",
			validator:  &stubValidator{identity: &auth.Identity{UserID: userID, Email: "jane@example.com"}},
			wantStatus: http.StatusOK,
			wantUser:   userID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var gotUser uuid.UUID
			var gotEmail string
			h := NewAuthMiddleware(tt.validator).Authenticate()(func(c echo.Context) error {
				gotUser = GetUserID(c)
				gotEmail = GetEmail(c)
				return c.NoContent(http.StatusOK)
			})

			if err := h(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if gotUser != tt.wantUser {
				t.Errorf("Expected user %s, got %s", tt.wantUser, gotUser)
			}
			if tt.wantStatus == http.StatusOK {
				if tt.validator.token != "good" {
					t.Errorf("Expected token %q to be validated, got %q", "good", tt.validator.token)
				}
				if gotEmail != "jane@example.com" {
					t.Errorf("Expected email in context, got %q", gotEmail)
				}
			}
		})
	}
}

func TestGetUserID_NotPresent(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if id := GetUserID(c); id != uuid.Nil {
		t.Errorf("Expected nil UUID, got %s", id)
	}
	if email := GetEmail(c); email != "" {
		t.Errorf("Expected empty email, got %q", email)
	}
}

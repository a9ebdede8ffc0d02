package domain

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("user already exists")
	ErrEmailInvalid        = errors.New("please provide a valid email")
	ErrFullNameInvalid     = errors.New("name must be between 2 and 50 characters")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters long")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrCurrentPassword     = errors.New("current password is incorrect")
	ErrAnnualIncomeInvalid = errors.New("annual income must be a positive number")
)

// User represents a registered account holder
type User struct {
	ID             uuid.UUID       `json:"id"`
	FullName       string          `json:"fullName"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	ContactNumber  *string         `json:"contactNumber,omitempty"`
	Address        *string         `json:"address,omitempty"`
	OccupationType *string         `json:"occupationType,omitempty"`
	AnnualIncome   decimal.Decimal `json:"annualIncome"`
	MonthlyIncome  decimal.Decimal `json:"monthlyIncome"`
	AvatarKey      *string         `json:"-"`
	AvatarURL      *string         `json:"avatarUrl,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email parses as a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateFullName checks the display name length.
func ValidateFullName(name string) error {
	n := len([]rune(strings.TrimSpace(name)))
	if n < MinFullNameLength || n > MaxFullNameLength {
		return ErrFullNameInvalid
	}
	return nil
}

// MonthlyIncomeFrom derives the stored monthly income from an annual figure,
// rounded to a whole unit.
func MonthlyIncomeFrom(annual decimal.Decimal) decimal.Decimal {
	return annual.Div(decimal.NewFromInt(12)).Round(0)
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateIncome(ctx context.Context, id uuid.UUID, annual, monthly decimal.Decimal) (*User, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarKey *string) (*User, error)
}

package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"jane@example.com", true},
		{"jane.doe+loans@mail.example.org", true},
		{"", false},
		{"jane", false},
		{"Jane <jane@example.com>", false},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateEmail(%q) = %v, want valid=%v", tt.email, err, tt.valid)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane@Example.COM "); got != "jane@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestValidateFullName(t *testing.T) {
	if err := ValidateFullName("Al"); err != nil {
		t.Errorf("two characters should be valid: %v", err)
	}
	if err := ValidateFullName("A"); err != ErrFullNameInvalid {
		t.Errorf("one character should be invalid, got %v", err)
	}
	if err := ValidateFullName("Ana María Pérez de la Fuente y Castellanos Ruiz del Río"); err != ErrFullNameInvalid {
		t.Errorf("long name should be invalid, got %v", err)
	}
}

func TestMonthlyIncomeFrom(t *testing.T) {
	tests := []struct {
		annual string
		want   string
	}{
		{"120000", "10000"},
		{"100000", "8333"},
		{"100006", "8334"},
		{"1", "0"},
	}

	for _, tt := range tests {
		got := MonthlyIncomeFrom(decimal.RequireFromString(tt.annual))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("MonthlyIncomeFrom(%s) = %s, want %s", tt.annual, got, tt.want)
		}
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func setupProfileService(t *testing.T) (*ProfileService, *testutil.MockUserRepository, *testutil.MockPublisher, uuid.UUID) {
	t.Helper()
	userRepo := testutil.NewMockUserRepository()
	publisher := testutil.NewMockPublisher()
	svc := NewProfileService(userRepo, nil, publisher)
	svc.hashCost = bcrypt.MinCost

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	userID := uuid.New()
	userRepo.AddUser(&domain.User{
		ID:           userID,
		FullName:     "Asha Perera",
		Email:        "asha@example.com",
		PasswordHash: string(hash),
	})
	return svc, userRepo, publisher, userID
}

func TestUpdateProfile(t *testing.T) {
	svc, _, publisher, userID := setupProfileService(t)

	name := "  Asha P. "
	occupation := "   "
	address := "12 Lake Rd"
	user, err := svc.UpdateProfile(context.Background(), userID, UpdateProfileInput{
		FullName:       &name,
		Address:        &address,
		OccupationType: &occupation,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.FullName != "Asha P." {
		t.Errorf("Expected trimmed name, got %q", user.FullName)
	}
	if user.Address == nil || *user.Address != "12 Lake Rd" {
		t.Errorf("Expected address, got %v", user.Address)
	}
	if user.OccupationType != nil {
		t.Errorf("Expected blank occupation to clear the field, got %v", *user.OccupationType)
	}
	if types := publisher.Types(); len(types) != 1 || types[0] != "profile.updated" {
		t.Errorf("Expected profile.updated event, got %v", types)
	}

	short := "A"
	if _, err := svc.UpdateProfile(context.Background(), userID, UpdateProfileInput{FullName: &short}); !errors.Is(err, domain.ErrFullNameInvalid) {
		t.Errorf("Expected ErrFullNameInvalid, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, userRepo, _, userID := setupProfileService(t)

	if err := svc.ChangePassword(context.Background(), userID, "wrong", "new-secret"); !errors.Is(err, domain.ErrCurrentPassword) {
		t.Errorf("Expected ErrCurrentPassword, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), userID, "secret1", "123"); !errors.Is(err, domain.ErrPasswordTooShort) {
		t.Errorf("Expected ErrPasswordTooShort, got %v", err)
	}

	if err := svc.ChangePassword(context.Background(), userID, "secret1", "new-secret"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	stored := userRepo.ByID[userID].PasswordHash
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte("new-secret")); err != nil {
		t.Errorf("Expected new password to be stored: %v", err)
	}
}

func TestUpdateIncome(t *testing.T) {
	svc, _, _, userID := setupProfileService(t)

	user, err := svc.UpdateIncome(context.Background(), userID, decimal.RequireFromString("1000000.004"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.AnnualIncome.StringFixed(2) != "1000000.00" {
		t.Errorf("Expected annual income 1000000.00, got %s", user.AnnualIncome.StringFixed(2))
	}
	if !user.MonthlyIncome.Equal(decimal.NewFromInt(83333)) {
		t.Errorf("Expected monthly income 83333, got %s", user.MonthlyIncome)
	}

	for _, bad := range []string{"0", "-100"} {
		if _, err := svc.UpdateIncome(context.Background(), userID, decimal.RequireFromString(bad)); !errors.Is(err, domain.ErrAnnualIncomeInvalid) {
			t.Errorf("Expected ErrAnnualIncomeInvalid for %s, got %v", bad, err)
		}
	}
}

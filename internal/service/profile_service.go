package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// ProfileService handles profile-related business logic
type ProfileService struct {
	userRepo  domain.UserRepository
	avatars   *AvatarService
	publisher websocket.EventPublisher
	hashCost  int
}

// NewProfileService creates a new ProfileService
func NewProfileService(userRepo domain.UserRepository, avatars *AvatarService, publisher websocket.EventPublisher) *ProfileService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &ProfileService{
		userRepo:  userRepo,
		avatars:   avatars,
		publisher: publisher,
		hashCost:  passwordHashCost,
	}
}

// UpdateProfileInput holds the editable profile fields. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	FullName       *string
	ContactNumber  *string
	Address        *string
	OccupationType *string
}

// UpdateProfile applies a partial profile edit
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if err := domain.ValidateFullName(name); err != nil {
			return nil, err
		}
		user.FullName = name
	}
	if input.ContactNumber != nil {
		user.ContactNumber = trimOptional(input.ContactNumber)
	}
	if input.Address != nil {
		user.Address = trimOptional(input.Address)
	}
	if input.OccupationType != nil {
		user.OccupationType = trimOptional(input.OccupationType)
	}

	updated, err := s.userRepo.UpdateProfile(ctx, user)
	if err != nil {
		return nil, err
	}
	s.avatars.Decorate(ctx, updated)
	s.publisher.Publish(userID, websocket.ProfileUpdated(updated))
	return updated, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *ProfileService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.ErrCurrentPassword
	}
	if len(newPassword) < domain.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	log.Info().Str("user_id", userID.String()).Msg("Password changed")
	return nil
}

// UpdateIncome stores the annual income and its derived monthly figure
func (s *ProfileService) UpdateIncome(ctx context.Context, userID uuid.UUID, annualIncome decimal.Decimal) (*domain.User, error) {
	if !annualIncome.IsPositive() {
		return nil, domain.ErrAnnualIncomeInvalid
	}
	annual := annualIncome.Round(2)

	updated, err := s.userRepo.UpdateIncome(ctx, userID, annual, domain.MonthlyIncomeFrom(annual))
	if err != nil {
		return nil, err
	}
	s.avatars.Decorate(ctx, updated)
	s.publisher.Publish(userID, websocket.ProfileUpdated(updated))
	return updated, nil
}

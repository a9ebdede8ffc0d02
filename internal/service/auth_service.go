package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost is the bcrypt work factor for stored passwords
const passwordHashCost = 12

// TokenIssuer signs access tokens for authenticated users
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string) (string, time.Time, error)
}

// AuthService handles registration, login and the current-user lookup
type AuthService struct {
	userRepo domain.UserRepository
	issuer   TokenIssuer
	avatars  *AvatarService
	hashCost int
}

// NewAuthService creates a new AuthService. avatars may be nil when object
// storage is not configured.
func NewAuthService(userRepo domain.UserRepository, issuer TokenIssuer, avatars *AvatarService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		issuer:   issuer,
		avatars:  avatars,
		hashCost: passwordHashCost,
	}
}

// RegisterInput holds the input for creating an account
type RegisterInput struct {
	FullName       string
	Email          string
	Password       string
	ContactNumber  *string
	Address        *string
	OccupationType *string
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// Register creates a user and signs them in
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	fullName := strings.TrimSpace(input.FullName)
	if err := domain.ValidateFullName(fullName); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if len(input.Password) < domain.MinPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &domain.User{
		FullName:       fullName,
		Email:          email,
		PasswordHash:   string(hash),
		ContactNumber:  trimOptional(input.ContactNumber),
		Address:        trimOptional(input.Address),
		OccupationType: trimOptional(input.OccupationType),
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User registered")
	return s.signIn(ctx, user)
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.signIn(ctx, user)
}

// Me returns the user behind an authenticated request
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.avatars.Decorate(ctx, user)
	return user, nil
}

func (s *AuthService) signIn(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.avatars.Decorate(ctx, user)
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// trimOptional trims s and maps blank values to nil
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

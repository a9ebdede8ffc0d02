// Package auth issues and validates the HS256 bearer tokens used by the API
// and the websocket endpoint.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/config"
)

// ErrInvalidToken is returned when a token fails validation
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller carried by a valid token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// CustomClaims contains the non-registered claims of an issued token
type CustomClaims struct {
	Email string `json:"email"`
}

// Validate implements validator.CustomClaims
func (c *CustomClaims) Validate(ctx context.Context) error {
	if c.Email == "" {
		return errors.New("email claim is required")
	}
	return nil
}

type issuedClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access tokens
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates a TokenIssuer from JWT settings
func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		expiry:   cfg.Expiry,
		now:      time.Now,
	}
}

// Issue returns a signed token for the user and its expiry time
func (i *TokenIssuer) Issue(userID uuid.UUID, email string) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.expiry)

	claims := issuedClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validator checks tokens produced by TokenIssuer
type Validator struct {
	validator *validator.Validator
}

// NewValidator creates a Validator for the same secret, issuer and audience
func NewValidator(cfg config.JWTConfig) (*Validator, error) {
	secret := []byte(cfg.Secret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &Validator{validator: jwtValidator}, nil
}

// Validate verifies token and returns the caller it identifies
func (v *Validator) Validate(ctx context.Context, token string) (*Identity, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(validatedClaims.RegisteredClaims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	identity := &Identity{UserID: userID}
	if custom, ok := validatedClaims.CustomClaims.(*CustomClaims); ok {
		identity.Email = custom.Email
	}
	return identity, nil
}

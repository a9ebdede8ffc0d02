package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const userColumns = `id, full_name, email, password_hash, contact_number, address, occupation_type,
	annual_income, monthly_income, avatar_key, created_at, updated_at`

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user; a duplicate email returns domain.ErrEmailTaken
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (full_name, email, password_hash, contact_number, address, occupation_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		user.FullName,
		user.Email,
		user.PasswordHash,
		stringPtrToPgText(user.ContactNumber),
		stringPtrToPgText(user.Address),
		stringPtrToPgText(user.OccupationType),
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

// UpdateProfile updates the editable profile fields
func (r *UserRepository) UpdateProfile(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.getOne(ctx, `
		UPDATE users
		SET full_name = $2, contact_number = $3, address = $4, occupation_type = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID,
		user.FullName,
		stringPtrToPgText(user.ContactNumber),
		stringPtrToPgText(user.Address),
		stringPtrToPgText(user.OccupationType),
	)
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateIncome stores annual and derived monthly income
func (r *UserRepository) UpdateIncome(ctx context.Context, id uuid.UUID, annual, monthly decimal.Decimal) (*domain.User, error) {
	annualNum, err := decimalToPgNumeric(annual)
	if err != nil {
		return nil, fmt.Errorf("invalid annual income: %w", err)
	}
	monthlyNum, err := decimalToPgNumeric(monthly)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly income: %w", err)
	}
	return r.getOne(ctx, `
		UPDATE users SET annual_income = $2, monthly_income = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, annualNum, monthlyNum,
	)
}

// UpdateAvatar sets or clears the stored avatar object key
func (r *UserRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarKey *string) (*domain.User, error) {
	return r.getOne(ctx, `
		UPDATE users SET avatar_key = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, stringPtrToPgText(avatarKey),
	)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, args ...any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u                                       domain.User
		contactNumber, address, occupation, key pgtype.Text
		annual, monthly                         pgtype.Numeric
	)
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&contactNumber,
		&address,
		&occupation,
		&annual,
		&monthly,
		&key,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ContactNumber = pgTextToStringPtr(contactNumber)
	u.Address = pgTextToStringPtr(address)
	u.OccupationType = pgTextToStringPtr(occupation)
	u.AnnualIncome = pgNumericToDecimal(annual)
	u.MonthlyIncome = pgNumericToDecimal(monthly)
	u.AvatarKey = pgTextToStringPtr(key)
	return &u, nil
}

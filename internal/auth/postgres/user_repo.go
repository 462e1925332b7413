// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/physicalai/authd/internal/auth"
)

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. A unique-constraint violation on the email
// index is reported as auth.ErrDuplicateEmail; this mapping is the
// authoritative duplicate check and holds under concurrent registrations.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := queryEngine(ctx, r.pool).Exec(ctx, `
		INSERT INTO users (
			id, email, name, password_hash,
			software_background, hardware_background, learning_goal,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID.String(),
		user.Email,
		user.Name,
		user.PasswordHash,
		string(user.SoftwareBackground),
		string(user.HardwareBackground),
		user.LearningGoal,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_DUPLICATE_EMAIL").
				With("email", user.Email).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := queryEngine(ctx, r.pool).QueryRow(ctx, `
		SELECT id, email, name, password_hash,
		       software_background, hardware_background, learning_goal,
		       is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. Exact match; emails are stored
// case-sensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := queryEngine(ctx, r.pool).QueryRow(ctx, `
		SELECT id, email, name, password_hash,
		       software_background, hardware_background, learning_goal,
		       is_active, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// UpdateProfile applies a partial update. Nil background values keep the
// stored column via COALESCE; learning_goal is written unconditionally, so
// a nil pointer clears it.
func (r *UserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, update auth.ProfileUpdate) (*auth.User, error) {
	var sw, hw *string
	if update.SoftwareBackground != nil {
		s := string(*update.SoftwareBackground)
		sw = &s
	}
	if update.HardwareBackground != nil {
		s := string(*update.HardwareBackground)
		hw = &s
	}

	row := queryEngine(ctx, r.pool).QueryRow(ctx, `
		UPDATE users SET
			software_background = COALESCE($2, software_background),
			hardware_background = COALESCE($3, hardware_background),
			learning_goal = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING id, email, name, password_hash,
		          software_background, hardware_background, learning_goal,
		          is_active, created_at, updated_at
	`, id.String(), sw, hw, update.LearningGoal, time.Now().UTC())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_UPDATE_PROFILE_FAILED").
			With("operation", "update profile").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		email        string
		name         string
		passwordHash string
		sw           string
		hw           string
		learningGoal *string
		isActive     bool
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&name,
		&passwordHash,
		&sw,
		&hw,
		&learningGoal,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:                 id,
		Email:              email,
		Name:               name,
		PasswordHash:       passwordHash,
		SoftwareBackground: auth.SoftwareBackground(sw),
		HardwareBackground: auth.HardwareBackground(hw),
		LearningGoal:       learningGoal,
		IsActive:           isActive,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

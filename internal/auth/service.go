// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Transactor runs a function inside a single database transaction.
// Repository calls made with the context passed to fn participate in that
// transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactor runs the function without any transaction. Used with
// in-memory repositories in tests.
type NopTransactor struct{}

// InTransaction calls fn directly.
func (NopTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service provides the registration, login, session and profile flows.
type Service struct {
	users      UserRepository
	sessions   SessionRepository
	hasher     PasswordHasher
	tx         Transactor
	sessionTTL time.Duration
}

// NewService creates a new Service. sessionTTL <= 0 falls back to
// DefaultSessionTTL.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, tx Transactor, sessionTTL time.Duration) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	if tx == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("transactor is required")
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		tx:         tx,
		sessionTTL: sessionTTL,
	}, nil
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks. We still run password verification so response time stays
// consistent. This is NOT a real credential - it is a fake hash that will
// never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterParams carries validated registration input.
type RegisterParams struct {
	Email              string
	Name               string
	Password           string
	SoftwareBackground SoftwareBackground
	HardwareBackground HardwareBackground
	LearningGoal       *string
}

// Register creates a user and issues their first session. User creation and
// session issuance commit as a single transaction; a failure at either step
// leaves no partial state behind. Returns the user, the session and the
// plaintext token.
//
// A colliding email surfaces as ErrDuplicateEmail from the repository's
// unique-constraint mapping; there is no advisory existence pre-check.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, *Session, string, error) {
	if err := ValidatePassword(params.Password); err != nil {
		return nil, nil, "", err
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(params.Email, params.Name, passwordHash,
		params.SoftwareBackground, params.HardwareBackground, params.LearningGoal)
	if err != nil {
		return nil, nil, "", err
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.ID, tokenHash, time.Now().UTC().Add(s.sessionTTL))
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, nil, "", oops.Code("AUTH_DUPLICATE_EMAIL").
				With("email", params.Email).
				Wrap(err)
		}
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "persist user and session").
			Wrap(err)
	}

	return user, session, token, nil
}

// Login authenticates a user by email and password and issues a new,
// independent session; existing sessions stay valid. Uses a dummy hash
// verification for unknown emails so timing does not reveal whether an
// account exists, and returns the same ErrInvalidCredentials for both
// unknown email and wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *Session, string, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// fall through with the dummy hash
	default:
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.ID, tokenHash, time.Now().UTC().Add(s.sessionTTL))
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	return user, session, token, nil
}

// ValidateSession resolves a plaintext token to a live session. An expired
// session is deleted on discovery (lazy reclamation) and reported as
// ErrSessionExpired; a second validation of the same token then yields
// ErrSessionInvalid. On success the LastAccessedAt timestamp is updated
// best effort.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}

	tokenHash := HashSessionToken(token)

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil {
			return nil, oops.Code("SESSION_VALIDATE_FAILED").
				With("operation", "delete expired session").
				Wrap(err)
		}
		return nil, oops.Code("SESSION_EXPIRED").Wrap(ErrSessionExpired)
	}

	_ = s.sessions.UpdateLastAccessed(ctx, session.ID, time.Now().UTC()) //nolint:errcheck // best effort, validation succeeds regardless

	return session, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("USER_NOT_FOUND").
				With("id", id.String()).
				Wrap(err)
		}
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// UpdateProfile applies a partial profile update. Omitted background fields
// keep their stored values; the learning goal is overwritten with whatever
// the update carries, including nil.
func (s *Service) UpdateProfile(ctx context.Context, id ulid.ULID, update ProfileUpdate) (*User, error) {
	if update.SoftwareBackground != nil && !update.SoftwareBackground.Valid() {
		return nil, oops.Code("USER_INVALID_BACKGROUND").
			With("software_background", string(*update.SoftwareBackground)).
			Errorf("unknown software background %q", *update.SoftwareBackground)
	}
	if update.HardwareBackground != nil && !update.HardwareBackground.Valid() {
		return nil, oops.Code("USER_INVALID_BACKGROUND").
			With("hardware_background", string(*update.HardwareBackground)).
			Errorf("unknown hardware background %q", *update.HardwareBackground)
	}

	user, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("USER_NOT_FOUND").
				With("id", id.String()).
				Wrap(err)
		}
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("operation", "update profile").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// Logout deletes every session belonging to the user, signing them out of
// all devices. Succeeds even when no sessions exist.
func (s *Service) Logout(ctx context.Context, userID ulid.ULID) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

var _ Transactor = NopTransactor{}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// emailRegex matches anything of the shape local@domain.tld without
// whitespace. Deliverability is not our problem; shape is.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SoftwareBackground describes the reader's programming experience.
type SoftwareBackground string

// Valid software background levels.
const (
	SoftwareBeginner     SoftwareBackground = "Beginner"
	SoftwareIntermediate SoftwareBackground = "Intermediate"
	SoftwareAdvanced     SoftwareBackground = "Advanced"
)

// Valid reports whether the value is a known level.
func (b SoftwareBackground) Valid() bool {
	switch b {
	case SoftwareBeginner, SoftwareIntermediate, SoftwareAdvanced:
		return true
	}
	return false
}

// HardwareBackground describes the reader's hardware experience.
type HardwareBackground string

// Valid hardware background levels.
const (
	HardwareNone        HardwareBackground = "None"
	HardwareArduino     HardwareBackground = "Arduino"
	HardwareRaspberryPi HardwareBackground = "RaspberryPi"
)

// Valid reports whether the value is a known level.
func (b HardwareBackground) Valid() bool {
	switch b {
	case HardwareNone, HardwareArduino, HardwareRaspberryPi:
		return true
	}
	return false
}

// User represents a reader account.
type User struct {
	ID                 ulid.ULID
	Email              string
	Name               string
	PasswordHash       string
	SoftwareBackground SoftwareBackground
	HardwareBackground HardwareBackground
	LearningGoal       *string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewUser creates a validated User instance. The password hash must already
// be computed; email and name must be non-empty and both background levels
// must be known values.
func NewUser(email, name, passwordHash string, sw SoftwareBackground, hw HardwareBackground, learningGoal *string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, oops.Code("USER_INVALID_NAME").Errorf("name cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !sw.Valid() {
		return nil, oops.Code("USER_INVALID_BACKGROUND").
			With("software_background", string(sw)).
			Errorf("unknown software background %q", sw)
	}
	if !hw.Valid() {
		return nil, oops.Code("USER_INVALID_BACKGROUND").
			With("hardware_background", string(hw)).
			Errorf("unknown hardware background %q", hw)
	}

	now := time.Now().UTC()
	return &User{
		ID:                 ulid.Make(),
		Email:              email,
		Name:               name,
		PasswordHash:       passwordHash,
		SoftwareBackground: sw,
		HardwareBackground: hw,
		LearningGoal:       learningGoal,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// ValidateEmail validates the shape of an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("USER_INVALID_EMAIL").
			With("email", email).
			Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword validates a plaintext password against policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("USER_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

// ProfileUpdate carries a partial profile update. Nil background fields keep
// the stored value. LearningGoal is written as-is on every update, including
// nil, which clears it.
type ProfileUpdate struct {
	SoftwareBackground *SoftwareBackground
	HardwareBackground *HardwareBackground
	LearningGoal       *string
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail when the email
	// unique constraint is violated.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email. Returns ErrNotFound if
	// absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateProfile applies a partial profile update and returns the
	// updated user. Returns ErrNotFound if the user no longer exists.
	UpdateProfile(ctx context.Context, id ulid.ULID, update ProfileUpdate) (*User, error)
}

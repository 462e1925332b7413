// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package auth

import "errors"

// Sentinel errors for the flows. The HTTP layer maps these to statuses;
// everything else surfaces as an internal error.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a registration collides with an
	// existing account. The unique index on users.email is the
	// authoritative check; repositories translate the constraint
	// violation into this error.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password. The message is deliberately uniform.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSessionInvalid is returned when a presented token does not
	// resolve to any stored session.
	ErrSessionInvalid = errors.New("invalid session token")

	// ErrSessionExpired is returned when a session exists but its expiry
	// has passed. The row is removed before this is returned.
	ErrSessionExpired = errors.New("session has expired")
)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

// Package auth implements the credential and session lifecycle for the
// textbook platform.
//
// # Domain Types
//
// Domain types (User, Session) should be created through their
// constructors:
//   - NewUser - creates a User with a validated email and password hash
//   - NewSession - creates a Session bound to a user with a future expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types.
//
// # Service
//
// Service coordinates the flows: registration, login, session validation,
// profile reads and updates, and logout. It owns the password hasher and
// both repositories; the HTTP layer never touches storage directly.
package auth

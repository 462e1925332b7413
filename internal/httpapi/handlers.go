// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/physicalai/authd/internal/auth"
	"github.com/physicalai/authd/internal/observability"
	"github.com/physicalai/authd/pkg/errutil"
)

// API holds the handler dependencies. Metrics may be nil, in which case no
// counters are recorded.
type API struct {
	svc     *auth.Service
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAPI creates the handler set around the auth service.
func NewAPI(svc *auth.Service, logger *slog.Logger, metrics *observability.Metrics) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{svc: svc, logger: logger, metrics: metrics}
}

// userPayload is the client-facing user shape. It never carries the
// password hash.
type userPayload struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	SoftwareBackground string  `json:"software_background"`
	HardwareBackground string  `json:"hardware_background"`
	LearningGoal       *string `json:"learning_goal"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
	IsActive           bool    `json:"is_active"`
}

type sessionPayload struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type authResponse struct {
	User    userPayload     `json:"user"`
	Session *sessionPayload `json:"session,omitempty"`
}

func toUserPayload(u *auth.User) userPayload {
	return userPayload{
		ID:                 u.ID.String(),
		Email:              u.Email,
		Name:               u.Name,
		SoftwareBackground: string(u.SoftwareBackground),
		HardwareBackground: string(u.HardwareBackground),
		LearningGoal:       u.LearningGoal,
		CreatedAt:          u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          u.UpdatedAt.UTC().Format(time.RFC3339),
		IsActive:           u.IsActive,
	}
}

func toSessionPayload(token string, s *auth.Session) *sessionPayload {
	return &sessionPayload{
		Token:     token,
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	user, session, token, err := a.svc.Register(r.Context(), auth.RegisterParams{
		Email:              req.Email,
		Name:               req.Name,
		Password:           req.Password,
		SoftwareBackground: auth.SoftwareBackground(req.SoftwareBackground),
		HardwareBackground: auth.HardwareBackground(req.HardwareBackground),
		LearningGoal:       req.LearningGoal,
	})
	if err != nil {
		a.recordRegistration(observability.OutcomeFailure)
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		errutil.LogError(r.Context(), a.logger, "registration failed", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	a.recordRegistration(observability.OutcomeSuccess)
	writeJSON(w, http.StatusOK, authResponse{
		User:    toUserPayload(user),
		Session: toSessionPayload(token, session),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	user, session, token, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.recordLogin(observability.OutcomeFailure)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		errutil.LogError(r.Context(), a.logger, "login failed", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	a.recordLogin(observability.OutcomeSuccess)
	writeJSON(w, http.StatusOK, authResponse{
		User:    toUserPayload(user),
		Session: toSessionPayload(token, session),
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	user, err := a.svc.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		errutil.LogError(r.Context(), a.logger, "get user failed", err)
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: toUserPayload(user)})
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	user, err := a.svc.UpdateProfile(r.Context(), userID, req.update())
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		errutil.LogError(r.Context(), a.logger, "profile update failed", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: toUserPayload(user)})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	if err := a.svc.Logout(r.Context(), userID); err != nil {
		errutil.LogError(r.Context(), a.logger, "logout failed", err)
		writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // banner write error is acceptable, client may disconnect
	w.Write([]byte("Auth Service is running!"))
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "auth"})
}

func (a *API) recordRegistration(outcome string) {
	if a.metrics != nil {
		a.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (a *API) recordLogin(outcome string) {
	if a.metrics != nil {
		a.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (a *API) recordSessionCheck(outcome string) {
	if a.metrics != nil {
		a.metrics.SessionChecksTotal.WithLabelValues(outcome).Inc()
	}
}

func (a *API) recordSessionPurged() {
	if a.metrics != nil {
		a.metrics.SessionsPurgedTotal.Inc()
	}
}

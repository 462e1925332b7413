// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/physicalai/authd/internal/auth"
	"github.com/physicalai/authd/internal/observability"
	"github.com/physicalai/authd/pkg/errutil"
)

// userIDKey carries the authenticated user's ID through the request context.
type userIDKey struct{}

// UserIDFromContext returns the user ID placed in the context by requireAuth.
func UserIDFromContext(ctx context.Context) (ulid.ULID, bool) {
	id, ok := ctx.Value(userIDKey{}).(ulid.ULID)
	return id, ok
}

// requireAuth gates a handler behind a valid Bearer session token. The
// resolved user ID is threaded to the handler via the request context.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			a.recordSessionCheck(observability.OutcomeFailure)
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		session, err := a.svc.ValidateSession(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionExpired):
				a.recordSessionCheck(observability.OutcomeExpired)
				// The expired row is reclaimed on first presentation.
				a.recordSessionPurged()
				writeError(w, http.StatusUnauthorized, "Session has expired")
			case errors.Is(err, auth.ErrSessionInvalid):
				a.recordSessionCheck(observability.OutcomeFailure)
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			default:
				a.recordSessionCheck(observability.OutcomeFailure)
				errutil.LogError(r.Context(), a.logger, "session validation failed", err)
				writeError(w, http.StatusInternalServerError, "Authentication failed")
			}
			return
		}

		a.recordSessionCheck(observability.OutcomeSuccess)
		ctx := context.WithValue(r.Context(), userIDKey{}, session.UserID)
		next(w, r.WithContext(ctx))
	}
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records per-route request latency and status. The matched
// pattern is the label, keeping cardinality bounded for arbitrary paths.
func (a *API) instrument(mux *http.ServeMux) http.Handler {
	if a.metrics == nil {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		mux.ServeHTTP(rec, r)

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		a.metrics.RequestDurationSeconds.
			WithLabelValues(route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

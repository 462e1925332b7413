// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package httpapi

import "net/http"

// Handler builds the API routing table. Method patterns reject mismatched
// verbs with 405 before any handler runs.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("GET /api/auth/me", a.requireAuth(a.handleMe))
	mux.HandleFunc("PUT /api/auth/profile", a.requireAuth(a.handleUpdateProfile))
	mux.HandleFunc("POST /api/auth/logout", a.requireAuth(a.handleLogout))

	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /{$}", a.handleRoot)

	return a.instrument(mux)
}

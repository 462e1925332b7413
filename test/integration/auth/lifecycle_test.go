// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

//go:build integration

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/physicalai/authd/internal/auth"
	"github.com/physicalai/authd/internal/httpapi"
)

var _ = Describe("Account lifecycle", func() {
	var (
		ctx context.Context
		ts  *httptest.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		api := httpapi.NewAPI(env.Service, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
		ts = httptest.NewServer(api.Handler())
	})

	AfterEach(func() {
		ts.Close()
	})

	call := func(method, path, token string, body any) (int, map[string]any) {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req, err := http.NewRequest(method, ts.URL+path, &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := ts.Client().Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		var decoded map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
		return resp.StatusCode, decoded
	}

	It("registers, reads, updates and logs out against a real database", func() {
		status, body := call(http.MethodPost, "/api/auth/register", "", map[string]any{
			"email":               "lifecycle@example.com",
			"name":                "Lifecycle",
			"password":            "sturdy-password",
			"software_background": "Beginner",
			"hardware_background": "None",
		})
		Expect(status).To(Equal(http.StatusOK))

		session, ok := body["session"].(map[string]any)
		Expect(ok).To(BeTrue())
		token, _ := session["token"].(string)
		Expect(token).To(HaveLen(64))

		status, body = call(http.MethodGet, "/api/auth/me", token, nil)
		Expect(status).To(Equal(http.StatusOK))
		user := body["user"].(map[string]any)
		Expect(user["email"]).To(Equal("lifecycle@example.com"))
		Expect(user).NotTo(HaveKey("password_hash"))

		status, body = call(http.MethodPut, "/api/auth/profile", token, map[string]any{
			"software_background": "Advanced",
			"learning_goal":       "Build a quadruped",
		})
		Expect(status).To(Equal(http.StatusOK))
		user = body["user"].(map[string]any)
		Expect(user["software_background"]).To(Equal("Advanced"))
		Expect(user["learning_goal"]).To(Equal("Build a quadruped"))

		status, _ = call(http.MethodPost, "/api/auth/logout", token, nil)
		Expect(status).To(Equal(http.StatusOK))

		status, _ = call(http.MethodGet, "/api/auth/me", token, nil)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a second registration with the same email", func() {
		payload := map[string]any{
			"email":               "once@example.com",
			"name":                "Once",
			"password":            "sturdy-password",
			"software_background": "Beginner",
			"hardware_background": "None",
		}
		status, _ := call(http.MethodPost, "/api/auth/register", "", payload)
		Expect(status).To(Equal(http.StatusOK))

		status, body := call(http.MethodPost, "/api/auth/register", "", payload)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body["error"]).To(Equal("User already exists"))
	})

	It("admits exactly one of many simultaneous registrations for the same email", func() {
		const attempts = 8
		payload := map[string]any{
			"email":               "stampede@example.com",
			"name":                "Stampede",
			"password":            "sturdy-password",
			"software_background": "Beginner",
			"hardware_background": "None",
		}

		statuses := make([]int, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				statuses[i], _ = call(http.MethodPost, "/api/auth/register", "", payload)
			}(i)
		}
		wg.Wait()

		var admitted, conflicts int
		for _, status := range statuses {
			switch status {
			case http.StatusOK:
				admitted++
			case http.StatusConflict:
				conflicts++
			}
		}
		Expect(admitted).To(Equal(1), "statuses: %v", statuses)
		Expect(conflicts).To(Equal(attempts-1), "statuses: %v", statuses)

		var rows int
		err := env.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM users WHERE email = $1", "stampede@example.com").Scan(&rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal(1))
	})

	It("reclaims an expired session on first use", func() {
		_, session, token, err := env.Service.Register(ctx, auth.RegisterParams{
			Email:              "expiring@example.com",
			Name:               "Expiring",
			Password:           "sturdy-password",
			SoftwareBackground: auth.SoftwareBeginner,
			HardwareBackground: auth.HardwareNone,
		})
		Expect(err).NotTo(HaveOccurred())
		expireSession(ctx, session.ID)

		_, err = env.Service.ValidateSession(ctx, token)
		Expect(err).To(MatchError(auth.ErrSessionExpired))

		// The reclaimed row is gone, so the same token is now merely unknown.
		_, err = env.Service.ValidateSession(ctx, token)
		Expect(err).To(MatchError(auth.ErrSessionInvalid))
	})
})

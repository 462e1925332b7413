// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

//go:build integration

package auth_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/physicalai/authd/internal/auth"
)

func createTestSession(ctx context.Context, userID ulid.ULID) (*auth.Session, string) {
	token, hash, err := auth.GenerateSessionToken()
	Expect(err).NotTo(HaveOccurred())
	session, err := auth.NewSession(userID, hash, time.Now().UTC().Add(time.Hour))
	Expect(err).NotTo(HaveOccurred())
	Expect(env.Sessions.Create(ctx, session)).To(Succeed())
	return session, token
}

// expireSession backdates a stored session so it reads as expired. The schema
// requires expires_at > created_at, so both columns move.
func expireSession(ctx context.Context, id ulid.ULID) {
	_, err := env.pool.Exec(ctx,
		"UPDATE sessions SET created_at = NOW() - INTERVAL '2 hours', expires_at = NOW() - INTERVAL '1 hour' WHERE id = $1",
		id.String())
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("SessionRepository", func() {
	var (
		ctx  context.Context
		user *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		user = createTestUser("session-owner@example.com")
		Expect(env.Users.Create(ctx, user)).To(Succeed())
	})

	Describe("GetByTokenHash", func() {
		It("round-trips a session through its token hash", func() {
			session, token := createTestSession(ctx, user.ID)

			got, err := env.Sessions.GetByTokenHash(ctx, auth.HashSessionToken(token))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(session.ID))
			Expect(got.UserID).To(Equal(user.ID))
			Expect(got.ExpiresAt).To(BeTemporally("~", session.ExpiresAt, time.Second))
		})

		It("returns ErrNotFound for an unknown hash", func() {
			_, err := env.Sessions.GetByTokenHash(ctx, auth.HashSessionToken("nope"))
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("DeleteByTokenHash", func() {
		It("removes the session", func() {
			_, token := createTestSession(ctx, user.ID)
			hash := auth.HashSessionToken(token)

			Expect(env.Sessions.DeleteByTokenHash(ctx, hash)).To(Succeed())

			_, err := env.Sessions.GetByTokenHash(ctx, hash)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("tolerates a hash that matches nothing", func() {
			Expect(env.Sessions.DeleteByTokenHash(ctx, auth.HashSessionToken("gone"))).To(Succeed())
		})
	})

	Describe("DeleteByUser", func() {
		It("removes every session of the user and no one else's", func() {
			createTestSession(ctx, user.ID)
			createTestSession(ctx, user.ID)

			other := createTestUser("other@example.com")
			Expect(env.Users.Create(ctx, other)).To(Succeed())
			_, otherToken := createTestSession(ctx, other.ID)

			Expect(env.Sessions.DeleteByUser(ctx, user.ID)).To(Succeed())

			var remaining int
			err := env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sessions").Scan(&remaining)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(Equal(1))

			_, err = env.Sessions.GetByTokenHash(ctx, auth.HashSessionToken(otherToken))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("DeleteExpired", func() {
		It("purges only sessions past their expiry", func() {
			expired, _ := createTestSession(ctx, user.ID)
			expireSession(ctx, expired.ID)
			_, liveToken := createTestSession(ctx, user.ID)

			purged, err := env.Sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(purged).To(Equal(int64(1)))

			_, err = env.Sessions.GetByTokenHash(ctx, auth.HashSessionToken(liveToken))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("UpdateLastAccessed", func() {
		It("persists the new timestamp", func() {
			session, token := createTestSession(ctx, user.ID)
			at := time.Now().UTC().Add(10 * time.Minute)

			Expect(env.Sessions.UpdateLastAccessed(ctx, session.ID, at)).To(Succeed())

			got, err := env.Sessions.GetByTokenHash(ctx, auth.HashSessionToken(token))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.LastAccessedAt).To(BeTemporally("~", at, time.Second))
		})

		It("returns ErrNotFound for a missing session", func() {
			err := env.Sessions.UpdateLastAccessed(ctx, ulid.Make(), time.Now().UTC())
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})

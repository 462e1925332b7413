// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

//go:build integration

package auth_test

import (
	"context"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/physicalai/authd/internal/auth"
)

const testPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHQ$aGFzaGVkcGFzc3dvcmQ"

func createTestUser(email string) *auth.User {
	user, err := auth.NewUser(email, "Test Reader", testPasswordHash,
		auth.SoftwareBeginner, auth.HardwareNone, nil)
	Expect(err).NotTo(HaveOccurred())
	return user
}

var _ = Describe("UserRepository", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
	})

	Describe("Create", func() {
		It("persists all user fields", func() {
			goal := "Build a walking robot"
			user, err := auth.NewUser("ada@example.com", "Ada", testPasswordHash,
				auth.SoftwareAdvanced, auth.HardwareRaspberryPi, &goal)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Users.Create(ctx, user)).To(Succeed())

			got, err := env.Users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("ada@example.com"))
			Expect(got.Name).To(Equal("Ada"))
			Expect(got.PasswordHash).To(Equal(testPasswordHash))
			Expect(got.SoftwareBackground).To(Equal(auth.SoftwareAdvanced))
			Expect(got.HardwareBackground).To(Equal(auth.HardwareRaspberryPi))
			Expect(got.LearningGoal).To(HaveValue(Equal(goal)))
			Expect(got.IsActive).To(BeTrue())
		})

		It("rejects a duplicate email", func() {
			Expect(env.Users.Create(ctx, createTestUser("dup@example.com"))).To(Succeed())

			err := env.Users.Create(ctx, createTestUser("dup@example.com"))
			Expect(err).To(MatchError(auth.ErrDuplicateEmail))
		})
	})

	Describe("GetByEmail", func() {
		It("finds the user by exact email", func() {
			user := createTestUser("grace@example.com")
			Expect(env.Users.Create(ctx, user)).To(Succeed())

			got, err := env.Users.GetByEmail(ctx, "grace@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))
		})

		It("returns ErrNotFound for an unknown email", func() {
			_, err := env.Users.GetByEmail(ctx, "ghost@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("UpdateProfile", func() {
		It("keeps omitted background fields and clears an omitted goal", func() {
			goal := "Learn ROS"
			user, err := auth.NewUser("mark@example.com", "Mark", testPasswordHash,
				auth.SoftwareIntermediate, auth.HardwareArduino, &goal)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Users.Create(ctx, user)).To(Succeed())

			sw := auth.SoftwareAdvanced
			got, err := env.Users.UpdateProfile(ctx, user.ID, auth.ProfileUpdate{
				SoftwareBackground: &sw,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.SoftwareBackground).To(Equal(auth.SoftwareAdvanced))
			Expect(got.HardwareBackground).To(Equal(auth.HardwareArduino))
			Expect(got.LearningGoal).To(BeNil())
		})

		It("advances updated_at", func() {
			user := createTestUser("tick@example.com")
			Expect(env.Users.Create(ctx, user)).To(Succeed())

			before, err := env.Users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())

			hw := auth.HardwareRaspberryPi
			after, err := env.Users.UpdateProfile(ctx, user.ID, auth.ProfileUpdate{
				HardwareBackground: &hw,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(after.UpdatedAt).To(BeTemporally(">=", before.UpdatedAt))
		})

		It("returns ErrNotFound for a missing user", func() {
			_, err := env.Users.UpdateProfile(ctx, ulid.Make(), auth.ProfileUpdate{})
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})

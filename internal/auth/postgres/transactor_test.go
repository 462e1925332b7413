// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physicalai/authd/internal/auth/postgres"
)

func TestTransactor_InTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectCommit()
		mockPool.ExpectRollback() // deferred rollback after commit is a no-op

		tx := postgres.NewTransactor(mockPool)
		err = tx.InTransaction(ctx, func(_ context.Context) error { return nil })
		require.NoError(t, err)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectRollback()

		tx := postgres.NewTransactor(mockPool)
		fnErr := errors.New("insert failed")
		err = tx.InTransaction(ctx, func(_ context.Context) error { return fnErr })
		assert.ErrorIs(t, err, fnErr)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("begin failure is wrapped", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin().WillReturnError(errors.New("no connection"))

		tx := postgres.NewTransactor(mockPool)
		err = tx.InTransaction(ctx, func(_ context.Context) error {
			t.Fatal("fn must not run when begin fails")
			return nil
		})
		assert.Error(t, err)
	})

	t.Run("repository calls inside fn join the transaction", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		session := testSession()
		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO sessions").
			WithArgs(
				session.ID.String(), session.UserID.String(), session.TokenHash,
				session.ExpiresAt, session.CreatedAt, session.LastAccessedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback()

		repo := postgres.NewSessionRepository(mockPool)
		tx := postgres.NewTransactor(mockPool)

		err = tx.InTransaction(ctx, func(txCtx context.Context) error {
			return repo.Create(txCtx, session)
		})
		require.NoError(t, err)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

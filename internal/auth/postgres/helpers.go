// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier abstracts query execution for *pgxpool.Pool and pgx.Tx, so
// repository methods work inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the subset of *pgxpool.Pool the repositories and the Transactor
// need. pgxmock's pool interface satisfies it too, which keeps repository
// tests off a live database.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// txKey is the context key under which Transactor stores the active pgx.Tx.
type txKey struct{}

// queryEngine returns the transaction stored in ctx if present, otherwise
// the pool. Repository methods route every statement through this so they
// transparently join an enclosing transaction.
func queryEngine(ctx context.Context, pool Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

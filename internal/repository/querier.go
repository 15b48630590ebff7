package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgx operations the repositories need. It is
// satisfied by both *pgxpool.Pool and pgx.Tx, so the same repository types
// serve pool-scoped reads and transaction-scoped settlement writes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Package postgres implements the storage backend on pgx. Bulk loading uses
// COPY, which is the fast path for republishing whole datasets.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gamecat/internal/storage"
)

// Repo implements storage.Repository for PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureTable(ctx context.Context, table string, columns []string) error {
	if _, err := r.pool.Exec(ctx, storage.CreateTableSQL(table, columns)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+storage.Ident(table)); err != nil {
		return 0, fmt.Errorf("clear table %s: %w", table, err)
	}

	src := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(columns))
		for j := range columns {
			if j < len(row) {
				vals[j] = row[j]
			} else {
				vals[j] = ""
			}
		}
		src[i] = vals
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(src))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, tx.Commit(ctx)
}

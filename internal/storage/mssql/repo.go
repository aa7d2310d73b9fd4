// Package mssql implements the storage backend on the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"gamecat/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable creates the table if missing. SQL Server has no CREATE TABLE
// IF NOT EXISTS, so existence is checked via OBJECT_ID.
func (r *Repo) EnsureTable(ctx context.Context, table string, columns []string) error {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = storage.Ident(c) + " NVARCHAR(MAX)"
	}
	q := fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(table, "'", "''"),
		storage.Ident(table), strings.Join(cols, ", "))
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+storage.Ident(table)); err != nil {
		return 0, fmt.Errorf("clear table %s: %w", table, err)
	}

	ph := make([]string, len(columns))
	for i := range columns {
		ph[i] = fmt.Sprintf("@p%d", i+1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		storage.Ident(table), storage.IdentList(columns), strings.Join(ph, ", ")))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	args := make([]any, len(columns))
	for _, row := range rows {
		for i := range columns {
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("insert into %s: %w", table, err)
		}
		n++
	}
	return n, tx.Commit()
}

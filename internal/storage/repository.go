// Package storage publishes cleaned datasets into a database for analytics.
// Backends register themselves by kind; callers select one via Config
// without importing backend packages.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is a registered backend kind: "sqlite", "postgres" or "mssql".
	Kind string
	// DSN is backend-specific and validated by the backend factory.
	DSN string
}

// Repository loads string-typed rows into one table. The cleaned datasets
// are string-typed CSVs, so columns are created as text; typed views are an
// analytics concern, not a load concern.
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureTable creates the table with the given text columns if it does
	// not exist. Idempotent.
	EnsureTable(ctx context.Context, table string, columns []string) error

	// ReplaceRows deletes the table's current content and inserts rows, so a
	// re-published dataset fully supersedes the prior load, mirroring how
	// finalize overwrites the CSV.
	ReplaceRows(ctx context.Context, table string, columns []string, rows [][]string) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Called from backend init()
// functions; registering a kind twice panics to fail fast on ambiguous
// selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, dup := factories[kind]; dup {
		panic("storage: Register called twice for kind " + kind)
	}
	factories[kind] = f
}

// New constructs the repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown backend kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}

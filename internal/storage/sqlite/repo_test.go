package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecat/internal/storage"
)

func openTestRepo(t *testing.T) (storage.Repository, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "catalog.db")
	repo, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo, dsn
}

func queryOne[T any](t *testing.T, dsn, q string) T {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	var v T
	require.NoError(t, db.QueryRow(q).Scan(&v))
	return v
}

func TestReplaceRows(t *testing.T) {
	ctx := context.Background()
	repo, dsn := openTestRepo(t)

	cols := []string{"name", "release_date"}
	require.NoError(t, repo.EnsureTable(ctx, "games_rawg", cols))
	// Idempotent.
	require.NoError(t, repo.EnsureTable(ctx, "games_rawg", cols))

	n, err := repo.ReplaceRows(ctx, "games_rawg", cols, [][]string{
		{"Hades", "2024-11-12"},
		{"Celeste", "2025-01-15"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// A second load fully supersedes the first.
	n, err = repo.ReplaceRows(ctx, "games_rawg", cols, [][]string{
		{"Hades", "2024-11-12"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count := queryOne[int](t, dsn, `SELECT COUNT(*) FROM "games_rawg"`)
	assert.Equal(t, 1, count, "replace must drop prior rows")
	name := queryOne[string](t, dsn, `SELECT "name" FROM "games_rawg"`)
	assert.Equal(t, "Hades", name)
}

func TestReplaceRows_ShortRowPads(t *testing.T) {
	ctx := context.Background()
	repo, dsn := openTestRepo(t)

	cols := []string{"name", "release_date", "genres"}
	require.NoError(t, repo.EnsureTable(ctx, "games", cols))
	_, err := repo.ReplaceRows(ctx, "games", cols, [][]string{{"Hades"}})
	require.NoError(t, err)

	genres := queryOne[string](t, dsn, `SELECT "genres" FROM "games"`)
	assert.Empty(t, genres, "short rows pad with empty cells")
}

func TestNew_RegisteredKind(t *testing.T) {
	assert.Contains(t, storage.Kinds(), "sqlite")
}

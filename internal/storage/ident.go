package storage

import (
	"fmt"
	"strings"
)

// Ident quotes a SQL identifier with double quotes (ANSI style, accepted by
// all three backends). Table and column names here come from compiled-in
// column sets and CSV headers the pipeline itself wrote, but quoting keeps
// headers with spaces or keywords loadable.
func Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// IdentList quotes and joins identifiers for a column list.
func IdentList(names []string) string {
	qs := make([]string, len(names))
	for i, n := range names {
		qs[i] = Ident(n)
	}
	return strings.Join(qs, ", ")
}

// CreateTableSQL builds the idempotent all-text CREATE TABLE statement shared
// by the backends.
func CreateTableSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = fmt.Sprintf("%s TEXT", Ident(c))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		Ident(table), strings.Join(cols, ", "))
}

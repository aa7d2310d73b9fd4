// Package all registers every storage backend. Blank-import it from binaries
// that select a backend at runtime.
package all

import (
	_ "gamecat/internal/storage/mssql"
	_ "gamecat/internal/storage/postgres"
	_ "gamecat/internal/storage/sqlite"
)

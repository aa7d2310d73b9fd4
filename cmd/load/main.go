// Command load publishes cleaned datasets into a database for analytics.
// Each source's FinalOutput CSV becomes one all-text table named
// <prefix><source>; republishing replaces the table's content, mirroring how
// finalize overwrites the CSV.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strings"

	"gamecat/internal/clean"
	"gamecat/internal/storage"

	// register all backends with the storage factory.
	_ "gamecat/internal/storage/all"
)

func main() {
	var (
		source  string
		dataDir string
		kind    string
		dsn     string
		prefix  string
	)

	flag.StringVar(&source, "source", "all", "source to load (rawg, metacritic, steam or all)")
	flag.StringVar(&dataDir, "data-dir", "data", "data directory root")
	flag.StringVar(&kind, "db", "sqlite", fmt.Sprintf("database backend (%s)", strings.Join(storage.Kinds(), ", ")))
	flag.StringVar(&dsn, "dsn", "gamecat.db", "database DSN (file path for sqlite)")
	flag.StringVar(&prefix, "table-prefix", "games_", "table name prefix")
	flag.Parse()

	sources := clean.Sources(dataDir)
	if source != "all" {
		s, ok := clean.SourceByName(dataDir, source)
		if !ok {
			fatalf("unknown source %q", source)
		}
		sources = []clean.Source{s}
	}

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: os.ExpandEnv(dsn)})
	if err != nil {
		fatalf("storage: %v", err)
	}
	defer repo.Close()

	for _, src := range sources {
		header, rows, err := readCSV(src.Output)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "%s: no cleaned output at %s; run clean first\n", src.Name, src.Output)
				continue
			}
			fatalf("%s: %v", src.Name, err)
		}

		table := prefix + src.Name
		if err := repo.EnsureTable(ctx, table, header); err != nil {
			fatalf("%s: %v", src.Name, err)
		}
		n, err := repo.ReplaceRows(ctx, table, header, rows)
		if err != nil {
			fatalf("%s: %v", src.Name, err)
		}
		fmt.Printf("loaded %d rows into %s\n", n, table)
	}
}

func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil, nil, fmt.Errorf("read %s: empty file", path)
	}
	return recs[0], recs[1:], nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

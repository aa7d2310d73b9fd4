package metacritic

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Columns is the raw export column set, matching the metacritic source's
// input schema.
var Columns = []string{
	"name", "platform", "release_date", "metascore", "user_score",
	"developer", "publisher", "genre",
}

// WriteCSV writes the extracted records as the raw CSV export. Missing
// fields become empty cells.
func WriteCSV(path string, records []map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	err = w.Write(Columns)
	row := make([]string, len(Columns))
	for _, rec := range records {
		if err != nil {
			break
		}
		for i, c := range Columns {
			row[i] = rec[c]
		}
		err = w.Write(row)
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

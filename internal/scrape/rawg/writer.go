package rawg

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gamecat/internal/clean"
)

// Columns is the raw export column set, matching the rawg source's input
// schema.
var Columns = []string{
	"rawg_id", "rawg_slug", "name", "release_date", "genres", "tags",
	"ratings", "platforms", "esrb", "metacritic", "description",
}

// WriteCSV writes games as the raw CSV export, list fields joined with the
// cleaner's list separator.
func WriteCSV(path string, games []Game) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	err = w.Write(Columns)
	for _, g := range games {
		if err != nil {
			break
		}
		err = w.Write([]string{
			strconv.FormatInt(g.ID, 10),
			g.Slug,
			g.Name,
			g.ReleaseDate,
			clean.JoinListField(g.Genres),
			clean.JoinListField(g.Tags),
			strconv.FormatFloat(g.Rating, 'f', -1, 64),
			clean.JoinListField(g.Platforms),
			g.ESRB,
			strconv.FormatInt(g.Metacritic, 10),
			g.Description,
		})
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

// WriteJSON writes games as a JSON array of records, the alternate raw input
// shape the cleaner accepts.
func WriteJSON(path string, games []Game) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(games)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

package clean

import "path/filepath"

// Source is the per-source cleaning configuration: where the raw export
// lives, which columns identify a record, which columns get which
// normalization, and the fixed output column set.
//
// The three catalog sources differ only in column names; one cleaner
// implementation parameterized by Source covers all of them.
type Source struct {
	Name string

	// InputPaths are the known raw export locations; the first existing one
	// wins. A .json path is read as a JSON array of records, anything else
	// as CSV.
	InputPaths []string

	// Output is the canonical cleaned CSV. The partial file lives next to it
	// with the ".inprogress" suffix.
	Output string

	// LogPath is the run's log sink.
	LogPath string

	// KeyFields identify a logical record for deduplication, both for the
	// resume skip during a run and for the final collapse.
	KeyFields []string

	// DateColumn is rewritten to ISO-8601 and checked against the window.
	DateColumn string

	// ListColumns are rewritten as ListSep-joined strings.
	ListColumns []string

	// TrimColumns are categorical columns stripped of surrounding space.
	TrimColumns []string

	// Defaults fills empty values of present columns after filtering.
	Defaults map[string]string

	// NameColumn is the designated lookup column for this source.
	NameColumn string

	// OutputColumns is the fixed output column set; the emitted header is
	// this list intersected with the columns actually present in the input.
	OutputColumns []string
}

// Partial returns the in-progress output path for the source.
func (s Source) Partial() string {
	return s.Output + ".inprogress"
}

// Sources returns the three catalog source configurations rooted at dataDir.
func Sources(dataDir string) []Source {
	j := func(elem ...string) string {
		return filepath.Join(append([]string{dataDir}, elem...)...)
	}

	return []Source{
		{
			Name: "rawg",
			InputPaths: []string{
				j("RAWG", "rawg_data.csv"),
				j("RAWG", "rawg_data.json"),
			},
			Output:      j("processed", "rawg_cleaned.csv"),
			LogPath:     filepath.Join("logs", "clean_rawg.log"),
			KeyFields:   []string{"name", "release_date"},
			DateColumn:  "release_date",
			ListColumns: []string{"genres", "tags", "platforms"},
			Defaults:    map[string]string{"esrb": "Unknown"},
			NameColumn:  "name",
			OutputColumns: []string{
				"rawg_id", "rawg_slug", "name", "release_date", "genres",
				"tags", "ratings", "platforms", "esrb", "metacritic",
				"description",
			},
		},
		{
			Name: "metacritic",
			InputPaths: []string{
				j("metacritic", "metacritic_dataset_clean.csv"),
				j("metacritic", "metacritic_dataset_raw.csv"),
			},
			Output:      j("processed", "metacritic_cleaned.csv"),
			LogPath:     filepath.Join("logs", "clean_metacritic.log"),
			KeyFields:   []string{"name", "platform", "release_date"},
			DateColumn:  "release_date",
			ListColumns: []string{"publisher", "developer", "genre"},
			TrimColumns: []string{"platform", "genre"},
			NameColumn:  "name",
			OutputColumns: []string{
				"name", "platform", "release_date", "metascore",
				"user_score", "developer", "publisher", "genre",
			},
		},
		{
			Name: "steam",
			InputPaths: []string{
				j("steam2025", "bestSelling_games.csv"),
			},
			Output:      j("processed", "steam_cleaned.csv"),
			LogPath:     filepath.Join("logs", "clean_steam.log"),
			KeyFields:   []string{"game_name", "release_date"},
			DateColumn:  "release_date",
			ListColumns: []string{"user_defined_tags", "supported_os"},
			NameColumn:  "game_name",
			OutputColumns: []string{
				"game_name", "release_date", "developer",
				"user_defined_tags", "supported_os", "price",
				"estimated_downloads", "reviews_like_rate",
			},
		},
	}
}

// SourceByName returns the named source config, or ok=false.
func SourceByName(dataDir, name string) (Source, bool) {
	for _, s := range Sources(dataDir) {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

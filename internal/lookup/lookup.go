// Package lookup reads the cleaned per-source CSVs and resolves a game name
// to one row per source: exact match on the source's designated name column
// first, then a closest-match fallback.
package lookup

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"

	"gamecat/internal/clean"
)

// DefaultCutoff is the minimum similarity for a fuzzy match to count.
const DefaultCutoff = 0.7

// Table is one cleaned dataset loaded for lookup. Columns are string-typed
// throughout, matching the downstream consumer contract of the cleaner.
type Table struct {
	Columns []string
	Rows    []map[string]string

	nameCol string
	folded  []string // folded name per row, aligned with Rows
}

var folder = cases.Fold()

func foldName(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// LoadTable reads the cleaned CSV at path. nameColumn designates the column
// lookups match against.
func LoadTable(path, nameColumn string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("read %s: empty file", path)
	}

	t := &Table{Columns: recs[0], nameCol: nameColumn}
	nameIx := -1
	for i, c := range t.Columns {
		if c == nameColumn {
			nameIx = i
		}
	}
	if nameIx < 0 {
		return nil, fmt.Errorf("read %s: no %q column", path, nameColumn)
	}

	for _, rec := range recs[1:] {
		row := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(rec) {
				row[c] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
		t.folded = append(t.folded, foldName(row[nameColumn]))
	}
	return t, nil
}

// Exact returns the first row whose name matches, ignoring case and
// surrounding space.
func (t *Table) Exact(name string) (map[string]string, bool) {
	want := foldName(name)
	for i, got := range t.folded {
		if got == want {
			return t.Rows[i], true
		}
	}
	return nil, false
}

// Closest returns the row with the most similar name, provided its
// similarity reaches cutoff. Similarity is 1 - editDistance/max(len), on the
// folded forms.
func (t *Table) Closest(name string, cutoff float64) (map[string]string, bool) {
	want := foldName(name)
	if want == "" {
		return nil, false
	}

	bestIx := -1
	bestSim := cutoff
	for i, got := range t.folded {
		sim := similarity(want, got)
		if sim > bestSim || (bestIx < 0 && sim == bestSim) {
			bestIx, bestSim = i, sim
		}
	}
	if bestIx < 0 {
		return nil, false
	}
	return t.Rows[bestIx], true
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Result is one source's answer for a lookup.
type Result struct {
	Source string
	Row    map[string]string // nil when the source has no match
	Fuzzy  bool

	// Err is set when the source's cleaned dataset exists but could not be
	// loaded, so callers can tell a broken dataset from a clean miss. A
	// not-yet-cleaned source (missing file) leaves Err nil.
	Err error
}

// Search resolves name against every cleaned dataset under dataDir. Sources
// whose cleaned file does not exist yet are reported with a nil Row.
func Search(dataDir, name string) []Result {
	var results []Result
	for _, src := range clean.Sources(dataDir) {
		res := Result{Source: src.Name}
		t, err := LoadTable(src.Output, src.NameColumn)
		switch {
		case err == nil:
			if row, ok := t.Exact(name); ok {
				res.Row = row
			} else if row, ok := t.Closest(name, DefaultCutoff); ok {
				res.Row = row
				res.Fuzzy = true
			}
		case !os.IsNotExist(err):
			res.Err = err
		}
		results = append(results, res)
	}
	return results
}

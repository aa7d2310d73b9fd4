package clean

import (
	"encoding/csv"
	"log/slog"
	"os"
)

// ResumeIndex is the set of RecordKeys already present in a partial output
// file. It is rebuilt once at the start of a run, grows monotonically while
// the run appends, and is discarded at process exit.
type ResumeIndex struct {
	keys map[string]struct{}

	// Header is the column order of the existing partial file, so a resumed
	// run keeps appending rows aligned to it. Nil when there was no usable
	// partial.
	Header []string
}

// NewResumeIndex returns an empty index.
func NewResumeIndex() *ResumeIndex {
	return &ResumeIndex{keys: make(map[string]struct{})}
}

// Has reports whether key was already emitted.
func (ix *ResumeIndex) Has(key string) bool {
	_, ok := ix.keys[key]
	return ok
}

// Add records key as emitted.
func (ix *ResumeIndex) Add(key string) {
	ix.keys[key] = struct{}{}
}

// Len returns the number of known keys.
func (ix *ResumeIndex) Len() int {
	return len(ix.keys)
}

// LoadResumeIndex rebuilds the key set from the partial file at path, using
// the same key fields as the live run.
//
// Failure handling follows the resume-state-corruption rule: an unreadable or
// malformed partial makes the run non-resumable, not failed. The index comes
// back empty, the file is left in place for finalize's dedup pass to
// supersede, and a warning is logged. A missing partial is the normal fresh
// start and is not logged.
func LoadResumeIndex(path string, keyFields []string, dateColumn string, log *slog.Logger) *ResumeIndex {
	ix := NewResumeIndex()

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("could not open partial output; reprocessing everything", "path", path, "error", err)
		}
		return ix
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	recs, err := cr.ReadAll()
	if err != nil || len(recs) == 0 {
		log.Warn("could not read partial output; reprocessing everything", "path", path, "error", err)
		return ix
	}

	header := recs[0]
	kb := newKeyBuilder(header, keyFields, dateColumn)
	for _, rec := range recs[1:] {
		ix.Add(kb.KeyStrings(rec))
	}
	ix.Header = header

	log.Info("resuming from partial output", "path", path, "rows", len(recs)-1, "keys", ix.Len())
	return ix
}

package clean

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Finalize collapses the source's partial output into the canonical cleaned
// CSV: rows are deduplicated by the source's key fields keeping the first
// occurrence, the result is published atomically (temp file + rename,
// overwriting any stale final output), and the partial is removed.
//
// A missing partial is a no-op: nothing was written this pass, so there is
// nothing to publish. Failure to remove the partial after a successful
// publish is only a warning; the final output is already authoritative, and
// the stale partial's keys will simply all be resume-skipped and superseded
// on the next invocation.
func Finalize(src Source, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	partial := src.Partial()

	f, err := os.Open(partial)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open partial %s: %w", partial, err)
	}

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("read partial %s: %w", partial, err)
	}
	if len(recs) == 0 {
		return nil
	}

	header := recs[0]
	kb := newKeyBuilder(header, src.KeyFields, src.DateColumn)

	seen := make(map[string]struct{}, len(recs)-1)
	rows := make([][]string, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		// Tolerate ragged rows around a damaged write boundary.
		if len(rec) != len(header) {
			fixed := make([]string, len(header))
			copy(fixed, rec)
			rec = fixed
		}
		key := kb.KeyStrings(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, rec)
	}

	if err := os.MkdirAll(filepath.Dir(src.Output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := src.Output + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := csv.NewWriter(out)
	if err := w.Write(header); err == nil {
		err = w.WriteAll(rows)
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, src.Output); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", src.Output, err)
	}

	log.Info("finalized cleaned output",
		"source", src.Name, "path", src.Output, "rows", len(rows))

	if err := os.Remove(partial); err != nil {
		log.Warn("could not remove partial output", "path", partial, "error", err)
	}
	return nil
}

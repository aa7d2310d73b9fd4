package clean

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoadResumeIndex_MissingFile(t *testing.T) {
	ix := LoadResumeIndex(filepath.Join(t.TempDir(), "none.csv.inprogress"),
		[]string{"name"}, "", discardLogger())
	if ix.Len() != 0 || ix.Header != nil {
		t.Fatalf("missing partial must yield an empty index, got %d keys", ix.Len())
	}
}

func TestLoadResumeIndex_RebuildsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv.inprogress")
	data := "name,release_date,genres\n" +
		"Hades,2024-12-01,Action|Roguelike\n" +
		"Celeste,2025-01-15,Platformer\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	ix := LoadResumeIndex(path, []string{"name", "release_date"}, "release_date", discardLogger())
	if ix.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ix.Len())
	}
	if !ix.Has("Hades||2024-12-01") || !ix.Has("Celeste||2025-01-15") {
		t.Fatal("expected keys missing from rebuilt index")
	}
	if ix.Has("Hades||2024-12-02") {
		t.Fatal("unexpected key present")
	}
	want := []string{"name", "release_date", "genres"}
	if len(ix.Header) != len(want) {
		t.Fatalf("Header = %v, want %v", ix.Header, want)
	}
	for i := range want {
		if ix.Header[i] != want[i] {
			t.Fatalf("Header = %v, want %v", ix.Header, want)
		}
	}
}

func TestLoadResumeIndex_CorruptPartial(t *testing.T) {
	// A malformed partial makes the run non-resumable, not failed: empty
	// index, file left in place for finalize to supersede.
	path := filepath.Join(t.TempDir(), "out.csv.inprogress")
	if err := os.WriteFile(path, []byte("name,\"unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ix := LoadResumeIndex(path, []string{"name"}, "", discardLogger())
	if ix.Len() != 0 || ix.Header != nil {
		t.Fatalf("corrupt partial must yield an empty index, got %d keys", ix.Len())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("corrupt partial must be left in place: %v", err)
	}
}

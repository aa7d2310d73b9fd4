package json

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gamecat/internal/config"
	"gamecat/internal/record"
)

func collect(t *testing.T, data string, columns []string, opt config.Options) (rows [][]any, present []string, err error) {
	t.Helper()

	out := make(chan *record.Row, 16)
	done := make(chan error, 1)
	go func() {
		done <- StreamRows(context.Background(), strings.NewReader(data),
			columns, opt, out,
			func(p []string) { present = append([]string(nil), p...) },
			nil)
		close(out)
	}()

	for row := range out {
		rows = append(rows, append([]any(nil), row.V...))
		row.Free()
	}
	return rows, present, <-done
}

func TestStreamRows_RootArray(t *testing.T) {
	data := `[
		{"name": "Hades", "release_date": "2024-11-12", "genres": ["Action", "Roguelike"], "metacritic": 93},
		null,
		{"name": "Celeste", "release_date": "2025-01-15", "genres": [], "metacritic": null}
	]`
	rows, present, err := collect(t, data,
		[]string{"name", "release_date", "genres", "metacritic"}, nil)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}

	if !reflect.DeepEqual(present, []string{"name", "release_date", "genres", "metacritic"}) {
		t.Fatalf("present = %v", present)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (null element skipped)", len(rows))
	}

	// Values pass through as decoded: lists stay lists, numbers stay
	// json.Number.
	if !reflect.DeepEqual(rows[0][2], []any{"Action", "Roguelike"}) {
		t.Fatalf("genres = %#v", rows[0][2])
	}
	if n, ok := rows[0][3].(json.Number); !ok || n.String() != "93" {
		t.Fatalf("metacritic = %#v", rows[0][3])
	}
	if rows[1][3] != nil {
		t.Fatalf("null value = %#v, want nil", rows[1][3])
	}
}

func TestStreamRows_SingleRootObject(t *testing.T) {
	rows, present, err := collect(t, `{"name": "Hades", "esrb": "E10+"}`,
		[]string{"name", "esrb"}, nil)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	if !reflect.DeepEqual(present, []string{"name", "esrb"}) {
		t.Fatalf("present = %v", present)
	}
	if !reflect.DeepEqual(rows, [][]any{{"Hades", "E10+"}}) {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_ConcatenatedObjects(t *testing.T) {
	data := `{"name": "A"}
{"name": "B"}
{"name": "C"}`
	rows, _, err := collect(t, data, []string{"name"}, nil)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	if len(rows) != 3 || rows[2][0] != "C" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_ObjectsTrailingArray(t *testing.T) {
	data := `[{"name": "A"}]{"name": "B"}`
	rows, _, err := collect(t, data, []string{"name"}, nil)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "B" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_HeaderMap(t *testing.T) {
	data := `[{"Title": "Hades", "release_date": "2024-11-12"}]`
	opt := config.Options{"header_map": map[string]string{"Title": "name"}}
	rows, present, err := collect(t, data, []string{"name", "release_date"}, opt)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	if !reflect.DeepEqual(present, []string{"name", "release_date"}) {
		t.Fatalf("present = %v", present)
	}
	if !reflect.DeepEqual(rows, [][]any{{"Hades", "2024-11-12"}}) {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_PresenceFixedByFirstObject(t *testing.T) {
	// Later objects may carry extra keys; the reported column set comes from
	// the first record only.
	data := `[{"name": "A"}, {"name": "B", "esrb": "M"}]`
	rows, present, err := collect(t, data, []string{"name", "esrb"}, nil)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	if !reflect.DeepEqual(present, []string{"name"}) {
		t.Fatalf("present = %v", present)
	}
	// The extra key still fills its requested cell.
	if rows[1][1] != "M" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_EmptyInput(t *testing.T) {
	rows, _, err := collect(t, "", []string{"name"}, nil)
	if err != nil || len(rows) != 0 {
		t.Fatalf("rows = %v, err = %v", rows, err)
	}
}

func TestStreamRows_ScalarRootRejected(t *testing.T) {
	_, _, err := collect(t, `"just a string"`, []string{"name"}, nil)
	if err == nil {
		t.Fatal("scalar root must error")
	}
}

func TestStreamRows_ArrayElementNotObject(t *testing.T) {
	_, _, err := collect(t, `[{"name": "A"}, 42]`, []string{"name"}, nil)
	if err == nil {
		t.Fatal("non-object array element must error")
	}
}

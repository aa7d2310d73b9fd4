package csv

import (
	"context"
	"io"
	"reflect"
	"strings"
	"testing"

	"gamecat/internal/config"
	"gamecat/internal/record"
)

// collect runs StreamRows over data and gathers every emitted row's cells.
func collect(t *testing.T, data string, columns []string, opt config.Options) (rows [][]any, present []string, parseErrs int) {
	t.Helper()

	out := make(chan *record.Row, 16)
	done := make(chan error, 1)
	go func() {
		done <- StreamRows(context.Background(),
			io.NopCloser(strings.NewReader(data)), columns, opt, out,
			func(p []string) { present = append([]string(nil), p...) },
			func(line int, err error) { parseErrs++ })
		close(out)
	}()

	for row := range out {
		rows = append(rows, append([]any(nil), row.V...))
		row.Free()
	}
	if err := <-done; err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	return rows, present, parseErrs
}

func TestStreamRows_HeaderNormalization(t *testing.T) {
	// Raw headers get trimmed, BOM-stripped, lowercased with spaces as
	// underscores; cells align to the requested column order regardless of
	// input order.
	data := "\uFEFFRelease Date, Name ,extra\n2024-11-12,Hades,x\n"
	rows, present, errs := collect(t, data,
		[]string{"name", "release_date", "genres"}, nil)

	if errs != 0 {
		t.Fatalf("parse errors = %d", errs)
	}
	if !reflect.DeepEqual(present, []string{"name", "release_date"}) {
		t.Fatalf("present = %v", present)
	}
	want := [][]any{{"Hades", "2024-11-12", nil}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestStreamRows_HeaderMap(t *testing.T) {
	data := "Title,Released\nHades,2024-11-12\n"
	opt := config.Options{"header_map": map[string]string{
		"Title":    "name",
		"Released": "release_date",
	}}
	rows, present, _ := collect(t, data, []string{"name", "release_date"}, opt)

	if !reflect.DeepEqual(present, []string{"name", "release_date"}) {
		t.Fatalf("present = %v", present)
	}
	if !reflect.DeepEqual(rows, [][]any{{"Hades", "2024-11-12"}}) {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_EmptyCellsAreNil(t *testing.T) {
	data := "name,esrb\nHades,\n,M\n"
	rows, _, _ := collect(t, data, []string{"name", "esrb"}, nil)

	want := [][]any{{"Hades", nil}, {nil, "M"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestStreamRows_NoHeader(t *testing.T) {
	data := "Hades,2024-11-12\n"
	opt := config.Options{"has_header": false}
	rows, present, _ := collect(t, data, []string{"name", "release_date"}, opt)

	if !reflect.DeepEqual(present, []string{"name", "release_date"}) {
		t.Fatalf("present = %v", present)
	}
	if !reflect.DeepEqual(rows, [][]any{{"Hades", "2024-11-12"}}) {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_BadRowSkipped(t *testing.T) {
	// A malformed record is reported through onErr and skipped; the stream
	// keeps going.
	data := "name,esrb\nok1,E\nbroken\"mid,quote,line\nok2,M\n"
	rows, _, errs := collect(t, data, []string{"name", "esrb"}, nil)

	if errs != 1 {
		t.Fatalf("parse errors = %d, want 1", errs)
	}
	if len(rows) != 2 || rows[0][0] != "ok1" || rows[1][0] != "ok2" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestStreamRows_ShortRecordPadsNil(t *testing.T) {
	data := "name,release_date,esrb\nHades,2024-11-12\n"
	rows, _, _ := collect(t, data, []string{"name", "release_date", "esrb"}, nil)

	want := [][]any{{"Hades", "2024-11-12", nil}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestStreamRows_EmptyInput(t *testing.T) {
	rows, _, errs := collect(t, "", []string{"name"}, nil)
	if len(rows) != 0 || errs != 0 {
		t.Fatalf("rows = %v, errs = %d", rows, errs)
	}
}

func TestStreamRows_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *record.Row) // unbuffered, nobody reads
	err := StreamRows(ctx,
		io.NopCloser(strings.NewReader("name\na\nb\n")),
		[]string{"name"}, nil, out, nil, nil)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

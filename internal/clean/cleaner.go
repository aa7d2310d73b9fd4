package clean

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gamecat/internal/config"
	"gamecat/internal/metrics"
	csvparser "gamecat/internal/parser/csv"
	jsonparser "gamecat/internal/parser/json"
	"gamecat/internal/record"
)

// ErrNoInput is returned when none of a source's known input paths exists.
// It fails the run before anything is read or written.
var ErrNoInput = errors.New("no input file found")

// DefaultChunkSize bounds memory for arbitrarily large inputs.
const DefaultChunkSize = 500

// RunStats summarizes one cleaning run.
type RunStats struct {
	Written       int
	ResumeSkipped int
	WindowDropped int
	Chunks        int
}

// Cleaner streams one source's raw export, normalizes and window-filters it
// in bounded chunks, and appends surviving rows to the source's partial
// output. Crash safety comes from the append-only partial plus the resume
// index, not from locking; each source's output paths have exactly one
// writer.
type Cleaner struct {
	Source    Source
	Window    Window
	ChunkSize int
	Log       *slog.Logger

	// ParserOptions is passed through to the input parser. Usually empty.
	ParserOptions config.Options
}

// Run executes the streaming pass. On error the partial output retains every
// previously flushed chunk, so the next run resumes where this one stopped;
// the final output is never touched here.
func (c *Cleaner) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	log := c.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	chunkSize := c.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	input, err := c.locateInput()
	if err != nil {
		return stats, err
	}
	partial := c.Source.Partial()

	ix := LoadResumeIndex(partial, c.Source.KeyFields, c.Source.DateColumn, log)

	cols := c.Source.OutputColumns
	kb := newKeyBuilder(cols, c.Source.KeyFields, c.Source.DateColumn)
	norm := newRowNormalizer(c.Source)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan *record.Row, chunkSize)
	headerCh := make(chan []string, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		onHeader := func(present []string) {
			headerCh <- append([]string(nil), present...)
		}
		onErr := func(line int, err error) {
			log.Warn("input parse error", "source", c.Source.Name, "line", line, "error", err)
		}

		f, err := os.Open(input)
		if err != nil {
			errCh <- fmt.Errorf("open input %s: %w", input, err)
			return
		}
		if strings.EqualFold(filepath.Ext(input), ".json") {
			defer f.Close()
			errCh <- jsonparser.StreamRows(ctx, f, cols, c.ParserOptions, out, onHeader, onErr)
			return
		}
		// The CSV parser owns closing f.
		errCh <- csvparser.StreamRows(ctx, f, cols, c.ParserOptions, out, onHeader, onErr)
	}()

	// abort drains in-flight rows so the parser goroutine can exit. The
	// parser sends its result exactly once; abort must not receive it again
	// after the post-loop receive already has.
	parserDone := false
	abort := func(err error) (RunStats, error) {
		cancel()
		for row := range out {
			row.Drop()
		}
		if !parserDone {
			<-errCh
		}
		log.Error("cleaning run failed", "source", c.Source.Name, "error", err)
		return stats, err
	}

	var (
		app     *appender
		outCols []string // resolved once the header (or resume header) is known
		outIx   []int
	)
	resolveOutput := func() {
		if outCols != nil {
			return
		}
		if ix.Header != nil {
			// Keep appending in the existing partial's column order so the
			// file carries exactly one header across restarts.
			outCols = ix.Header
		} else {
			select {
			case present := <-headerCh:
				outCols = present
			default:
				outCols = cols
			}
		}
		pos := make(map[string]int, len(cols))
		for i, col := range cols {
			pos[col] = i
		}
		outIx = make([]int, len(outCols))
		for j, col := range outCols {
			if p, ok := pos[col]; ok {
				outIx[j] = p
			} else {
				outIx[j] = -1
			}
		}
	}

	chunk := make([]*record.Row, 0, chunkSize)

	processChunk := func() error {
		if len(chunk) == 0 {
			return nil
		}
		started := time.Now()
		resolveOutput()

		kept := make([][]string, 0, len(chunk))
		keptKeys := make([]string, 0, len(chunk))

		for _, row := range chunk {
			key := kb.Key(row.V)
			if ix.Has(key) {
				stats.ResumeSkipped++
				row.Free()
				continue
			}

			vals := norm.normalize(row.V)
			row.Free()

			d, ok := ParseDate(vals[norm.dateIx])
			if !c.Window.Contains(d, ok) {
				stats.WindowDropped++
				continue
			}
			norm.fillDefaults(vals)

			outRow := make([]string, len(outCols))
			for j, p := range outIx {
				if p >= 0 {
					outRow[j] = vals[p]
				}
			}
			kept = append(kept, outRow)
			keptKeys = append(keptKeys, key)
		}
		chunk = chunk[:0]
		stats.Chunks++
		metrics.IncCounter("clean_chunks_total", 1, metrics.Labels{"source": c.Source.Name})

		if len(kept) == 0 {
			return nil
		}

		if app == nil {
			var err error
			app, err = newAppender(partial, outCols)
			if err != nil {
				return err
			}
		}
		if err := app.writeRows(kept); err != nil {
			return fmt.Errorf("append chunk to %s: %w", partial, err)
		}

		for _, k := range keptKeys {
			ix.Add(k)
		}
		stats.Written += len(kept)

		log.Info("wrote chunk",
			"source", c.Source.Name,
			"rows", len(kept),
			"total_written", stats.Written)
		metrics.IncCounter("clean_rows_total", float64(len(kept)),
			metrics.Labels{"source": c.Source.Name, "kind": "written"})
		metrics.ObserveHistogram("clean_chunk_duration_seconds",
			time.Since(started).Seconds(),
			metrics.Labels{"source": c.Source.Name})
		return nil
	}

	for row := range out {
		chunk = append(chunk, row)
		if len(chunk) >= chunkSize {
			if err := processChunk(); err != nil {
				return abort(err)
			}
		}
	}
	perr := <-errCh
	parserDone = true
	if perr != nil {
		return abort(fmt.Errorf("read input %s: %w", input, perr))
	}
	if err := processChunk(); err != nil {
		return abort(err)
	}
	if app != nil {
		if err := app.Close(); err != nil {
			return abort(fmt.Errorf("close partial %s: %w", partial, err))
		}
	}

	metrics.IncCounter("clean_rows_total", float64(stats.ResumeSkipped),
		metrics.Labels{"source": c.Source.Name, "kind": "resume_skipped"})
	metrics.IncCounter("clean_rows_total", float64(stats.WindowDropped),
		metrics.Labels{"source": c.Source.Name, "kind": "window_dropped"})

	log.Info("cleaning pass complete",
		"source", c.Source.Name,
		"written", stats.Written,
		"resume_skipped", stats.ResumeSkipped,
		"window_dropped", stats.WindowDropped,
		"chunks", stats.Chunks)
	return stats, nil
}

func (c *Cleaner) locateInput() (string, error) {
	for _, p := range c.Source.InputPaths {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w (looked in %s)",
		c.Source.Name, ErrNoInput, strings.Join(c.Source.InputPaths, ", "))
}

// rowNormalizer applies the source's per-column normalization rules to a
// parser row, producing string cells aligned to Source.OutputColumns.
type rowNormalizer struct {
	cols      []string
	dateIx    int
	isList    []bool
	isTrim    []bool
	defaultAt map[int]string
}

func newRowNormalizer(s Source) rowNormalizer {
	n := rowNormalizer{
		cols:      s.OutputColumns,
		dateIx:    0,
		isList:    make([]bool, len(s.OutputColumns)),
		isTrim:    make([]bool, len(s.OutputColumns)),
		defaultAt: map[int]string{},
	}
	in := func(list []string, c string) bool {
		for _, e := range list {
			if e == c {
				return true
			}
		}
		return false
	}
	for i, col := range s.OutputColumns {
		if col == s.DateColumn {
			n.dateIx = i
		}
		n.isList[i] = in(s.ListColumns, col)
		n.isTrim[i] = in(s.TrimColumns, col)
		if def, ok := s.Defaults[col]; ok {
			n.defaultAt[i] = def
		}
	}
	return n
}

func (n rowNormalizer) normalize(cells []any) []string {
	vals := make([]string, len(n.cols))
	for i := range n.cols {
		var v any
		if i < len(cells) {
			v = cells[i]
		}
		switch {
		case i == n.dateIx:
			vals[i] = FormatDate(v)
		case n.isList[i]:
			vals[i] = JoinListField(ParseListField(v))
		case n.isTrim[i]:
			vals[i] = strings.TrimSpace(cellString(v))
		default:
			vals[i] = cellString(v)
		}
	}
	return vals
}

func (n rowNormalizer) fillDefaults(vals []string) {
	for i, def := range n.defaultAt {
		if vals[i] == "" {
			vals[i] = def
		}
	}
}

// appender owns the append-only partial file. The header is written only when
// the file is new or empty, so the single-header contract holds across
// process restarts.
type appender struct {
	f *os.File
	w *csv.Writer
}

func newAppender(path string, header []string) (*appender, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open partial %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat partial %s: %w", path, err)
	}

	a := &appender{f: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := a.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return a, nil
}

// writeRows appends rows and flushes, so a crash after writeRows returns
// loses at most the next in-flight chunk.
func (a *appender) writeRows(rows [][]string) error {
	for _, r := range rows {
		if err := a.w.Write(r); err != nil {
			return err
		}
	}
	a.w.Flush()
	return a.w.Error()
}

func (a *appender) Close() error {
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}
